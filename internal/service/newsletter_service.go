package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/jobs"
)

type newsletterRepository interface {
	FindSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	CreateSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error
	SetSubscribed(ctx context.Context, id string, subscribed bool) error
	ListActiveSubscribers(ctx context.Context) ([]models.NewsletterSubscriber, error)
	CountActiveSubscribers(ctx context.Context) (int, error)
	ListIssues(ctx context.Context, page, pageSize int) ([]models.NewsletterIssue, int, error)
	FindIssueByID(ctx context.Context, id string) (*models.NewsletterIssue, error)
	CreateIssue(ctx context.Context, issue *models.NewsletterIssue) error
	UpdateIssueStatus(ctx context.Context, id string, status models.NewsletterIssueStatus, sentCount int, sentAt *time.Time) error
}

// Mailer delivers a rendered newsletter to one address.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, to, subject, body string) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

type issueDispatcher interface {
	Enqueue(job jobs.Job) error
}

// SubscribeRequest adds an address to the mailing list.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateIssueRequest drafts a newsletter issue.
type CreateIssueRequest struct {
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// NewsletterService manages subscribers and dispatches issues through the
// background queue.
type NewsletterService struct {
	repo       newsletterRepository
	mailer     Mailer
	dispatcher issueDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewNewsletterService constructs the newsletter service.
func NewNewsletterService(repo newsletterRepository, mailer Mailer, validate *validator.Validate, logger *zap.Logger) *NewsletterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = MailerFunc(func(ctx context.Context, to, subject, body string) error {
			logger.Debug("newsletter mail suppressed, no mailer configured", zap.String("to", to))
			return nil
		})
	}
	return &NewsletterService{repo: repo, mailer: mailer, validator: validate, logger: logger}
}

// SetDispatcher wires the background queue once it exists. Without a
// dispatcher, SendIssue delivers synchronously.
func (s *NewsletterService) SetDispatcher(d issueDispatcher) {
	s.dispatcher = d
}

// Subscribe adds an address to the list, reactivating it if it had
// unsubscribed before.
func (s *NewsletterService) Subscribe(ctx context.Context, req SubscribeRequest) (*models.NewsletterSubscriber, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}

	existing, err := s.repo.FindSubscriberByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subscriber")
	}
	if existing != nil {
		if existing.Subscribed {
			return existing, nil
		}
		if err := s.repo.SetSubscribed(ctx, existing.ID, true); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubscribe")
		}
		existing.Subscribed = true
		existing.UnsubscribedAt = nil
		return existing, nil
	}

	sub := &models.NewsletterSubscriber{Email: req.Email, Subscribed: true}
	if err := s.repo.CreateSubscriber(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subscriber")
	}
	return sub, nil
}

// Unsubscribe removes an address from active delivery.
func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	sub, err := s.repo.FindSubscriberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subscriber not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subscriber")
	}
	if err := s.repo.SetSubscribed(ctx, sub.ID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unsubscribe")
	}
	return nil
}

// ListIssues returns issues and pagination metadata.
func (s *NewsletterService) ListIssues(ctx context.Context, page, pageSize int) ([]models.NewsletterIssue, *models.Pagination, error) {
	issues, total, err := s.repo.ListIssues(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list issues")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return issues, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// CreateIssue drafts a new issue.
func (s *NewsletterService) CreateIssue(ctx context.Context, req CreateIssueRequest) (*models.NewsletterIssue, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue payload")
	}
	issue := &models.NewsletterIssue{Subject: req.Subject, Body: req.Body, Status: models.NewsletterIssueDraft}
	if err := s.repo.CreateIssue(ctx, issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create issue")
	}
	return issue, nil
}

// SendIssue queues a draft issue for dispatch to all active subscribers.
func (s *NewsletterService) SendIssue(ctx context.Context, id string) (*models.NewsletterIssue, error) {
	issue, err := s.repo.FindIssueByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "issue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issue")
	}
	if issue.Status != models.NewsletterIssueDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only draft issues can be sent")
	}

	if err := s.repo.UpdateIssueStatus(ctx, id, models.NewsletterIssueQueued, 0, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue issue")
	}
	issue.Status = models.NewsletterIssueQueued

	if s.dispatcher != nil {
		if err := s.dispatcher.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "newsletter_issue", Payload: id}); err != nil {
			s.logger.Error("failed to enqueue newsletter issue", zap.String("issue_id", id), zap.Error(err))
			if dbErr := s.repo.UpdateIssueStatus(ctx, id, models.NewsletterIssueFailed, 0, nil); dbErr != nil {
				s.logger.Error("failed to mark issue failed", zap.Error(dbErr))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue issue")
		}
		return issue, nil
	}

	if err := s.Dispatch(ctx, id); err != nil {
		return nil, err
	}
	issue.Status = models.NewsletterIssueSent
	return issue, nil
}

// Dispatch delivers a queued issue to every active subscriber. Runs on
// the job queue workers.
func (s *NewsletterService) Dispatch(ctx context.Context, issueID string) error {
	issue, err := s.repo.FindIssueByID(ctx, issueID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issue for dispatch")
	}

	subs, err := s.repo.ListActiveSubscribers(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscribers")
	}

	sent := 0
	for _, sub := range subs {
		if err := s.mailer.Send(ctx, sub.Email, issue.Subject, issue.Body); err != nil {
			s.logger.Warn("newsletter delivery failed", zap.String("email", sub.Email), zap.Error(err))
			continue
		}
		sent++
	}

	now := time.Now().UTC()
	status := models.NewsletterIssueSent
	if sent == 0 && len(subs) > 0 {
		status = models.NewsletterIssueFailed
	}
	if err := s.repo.UpdateIssueStatus(ctx, issueID, status, sent, &now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalise issue")
	}

	s.logger.Info("newsletter issue dispatched",
		zap.String("issue_id", issueID), zap.Int("sent", sent), zap.Int("subscribers", len(subs)))
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (s *NewsletterService) SubscriberCount(ctx context.Context) (int, error) {
	count, err := s.repo.CountActiveSubscribers(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subscribers")
	}
	return count, nil
}
