package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/learnsphere/academy-api/internal/models"
)

// NewsletterRepository handles subscriber and issue persistence.
type NewsletterRepository struct {
	db *sqlx.DB
}

// NewNewsletterRepository constructs the repository.
func NewNewsletterRepository(db *sqlx.DB) *NewsletterRepository {
	return &NewsletterRepository{db: db}
}

// FindSubscriberByEmail returns a subscriber by address.
func (r *NewsletterRepository) FindSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	const query = `SELECT id, email, subscribed, unsubscribed_at, created_at
        FROM newsletter_subscribers WHERE LOWER(email) = LOWER($1)`
	var sub models.NewsletterSubscriber
	if err := r.db.GetContext(ctx, &sub, query, email); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriber persists a new subscriber.
func (r *NewsletterRepository) CreateSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO newsletter_subscribers (id, email, subscribed, unsubscribed_at, created_at)
        VALUES (:id, :email, :subscribed, :unsubscribed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

// SetSubscribed flips the subscription flag and stamps unsubscription time.
func (r *NewsletterRepository) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	var unsubscribedAt *time.Time
	if !subscribed {
		now := time.Now().UTC()
		unsubscribedAt = &now
	}
	const query = `UPDATE newsletter_subscribers SET subscribed = $2, unsubscribed_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, subscribed, unsubscribedAt); err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}

// ListActiveSubscribers returns all currently subscribed addresses.
func (r *NewsletterRepository) ListActiveSubscribers(ctx context.Context) ([]models.NewsletterSubscriber, error) {
	const query = `SELECT id, email, subscribed, unsubscribed_at, created_at
        FROM newsletter_subscribers WHERE subscribed = TRUE ORDER BY created_at ASC`
	var subs []models.NewsletterSubscriber
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}

// CountActiveSubscribers returns the count of currently subscribed addresses.
func (r *NewsletterRepository) CountActiveSubscribers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM newsletter_subscribers WHERE subscribed = TRUE`); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return count, nil
}

// ListIssues returns newsletter issues, newest first.
func (r *NewsletterRepository) ListIssues(ctx context.Context, page, pageSize int) ([]models.NewsletterIssue, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, subject, body, status, sent_count, sent_at, created_at
        FROM newsletter_issues ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var issues []models.NewsletterIssue
	if err := r.db.SelectContext(ctx, &issues, query); err != nil {
		return nil, 0, fmt.Errorf("list newsletter issues: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM newsletter_issues`); err != nil {
		return nil, 0, fmt.Errorf("count newsletter issues: %w", err)
	}
	return issues, total, nil
}

// FindIssueByID returns an issue by its ID.
func (r *NewsletterRepository) FindIssueByID(ctx context.Context, id string) (*models.NewsletterIssue, error) {
	const query = `SELECT id, subject, body, status, sent_count, sent_at, created_at FROM newsletter_issues WHERE id = $1`
	var issue models.NewsletterIssue
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue persists a new draft issue.
func (r *NewsletterRepository) CreateIssue(ctx context.Context, issue *models.NewsletterIssue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.Status == "" {
		issue.Status = models.NewsletterIssueDraft
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO newsletter_issues (id, subject, body, status, sent_count, sent_at, created_at)
        VALUES (:id, :subject, :body, :status, :sent_count, :sent_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create newsletter issue: %w", err)
	}
	return nil
}

// UpdateIssueStatus transitions an issue and records dispatch results.
func (r *NewsletterRepository) UpdateIssueStatus(ctx context.Context, id string, status models.NewsletterIssueStatus, sentCount int, sentAt *time.Time) error {
	const query = `UPDATE newsletter_issues SET status = $2, sent_count = $3, sent_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, sentCount, sentAt); err != nil {
		return fmt.Errorf("update newsletter issue: %w", err)
	}
	return nil
}
