package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/jobs"

	"github.com/learnsphere/academy-api/internal/models"
)

type newsletterRepoStub struct {
	subscribers map[string]*models.NewsletterSubscriber
	issues      map[string]*models.NewsletterIssue
	sequence    int
}

func newNewsletterRepoStub() *newsletterRepoStub {
	return &newsletterRepoStub{
		subscribers: make(map[string]*models.NewsletterSubscriber),
		issues:      make(map[string]*models.NewsletterIssue),
	}
}

func (r *newsletterRepoStub) FindSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	for _, sub := range r.subscribers {
		if sub.Email == email {
			copy := *sub
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *newsletterRepoStub) CreateSubscriber(ctx context.Context, sub *models.NewsletterSubscriber) error {
	r.sequence++
	sub.ID = fmt.Sprintf("sub-%d", r.sequence)
	copy := *sub
	r.subscribers[sub.ID] = &copy
	return nil
}

func (r *newsletterRepoStub) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	sub, ok := r.subscribers[id]
	if !ok {
		return sql.ErrNoRows
	}
	sub.Subscribed = subscribed
	if !subscribed {
		now := time.Now().UTC()
		sub.UnsubscribedAt = &now
	} else {
		sub.UnsubscribedAt = nil
	}
	return nil
}

func (r *newsletterRepoStub) ListActiveSubscribers(ctx context.Context) ([]models.NewsletterSubscriber, error) {
	var out []models.NewsletterSubscriber
	for _, sub := range r.subscribers {
		if sub.Subscribed {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *newsletterRepoStub) CountActiveSubscribers(ctx context.Context) (int, error) {
	subs, _ := r.ListActiveSubscribers(ctx)
	return len(subs), nil
}

func (r *newsletterRepoStub) ListIssues(ctx context.Context, page, pageSize int) ([]models.NewsletterIssue, int, error) {
	var out []models.NewsletterIssue
	for _, issue := range r.issues {
		out = append(out, *issue)
	}
	return out, len(out), nil
}

func (r *newsletterRepoStub) FindIssueByID(ctx context.Context, id string) (*models.NewsletterIssue, error) {
	if issue, ok := r.issues[id]; ok {
		copy := *issue
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *newsletterRepoStub) CreateIssue(ctx context.Context, issue *models.NewsletterIssue) error {
	r.sequence++
	issue.ID = fmt.Sprintf("issue-%d", r.sequence)
	copy := *issue
	r.issues[issue.ID] = &copy
	return nil
}

func (r *newsletterRepoStub) UpdateIssueStatus(ctx context.Context, id string, status models.NewsletterIssueStatus, sentCount int, sentAt *time.Time) error {
	issue, ok := r.issues[id]
	if !ok {
		return sql.ErrNoRows
	}
	issue.Status = status
	issue.SentCount = sentCount
	issue.SentAt = sentAt
	return nil
}

type recordingMailer struct {
	sent    []string
	failFor map[string]bool
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.failFor[to] {
		return fmt.Errorf("smtp refused %s", to)
	}
	m.sent = append(m.sent, to)
	return nil
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newNewsletterFixture() (*NewsletterService, *newsletterRepoStub, *recordingMailer) {
	repo := newNewsletterRepoStub()
	mailer := &recordingMailer{failFor: make(map[string]bool)}
	svc := NewNewsletterService(repo, mailer, nil, nil)
	return svc, repo, mailer
}

func TestNewsletterSubscribeReactivates(t *testing.T) {
	svc, repo, _ := newNewsletterFixture()

	sub, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.True(t, sub.Subscribed)

	require.NoError(t, svc.Unsubscribe(context.Background(), "reader@example.com"))
	assert.False(t, repo.subscribers[sub.ID].Subscribed)
	assert.NotNil(t, repo.subscribers[sub.ID].UnsubscribedAt)

	again, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.True(t, repo.subscribers[sub.ID].Subscribed)
}

func TestNewsletterSubscribeIdempotent(t *testing.T) {
	svc, repo, _ := newNewsletterFixture()

	first, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	second, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.subscribers, 1)
}

func TestNewsletterSubscribeInvalidEmail(t *testing.T) {
	svc, _, _ := newNewsletterFixture()

	_, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNewsletterUnsubscribeUnknown(t *testing.T) {
	svc, _, _ := newNewsletterFixture()

	err := svc.Unsubscribe(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNewsletterSendIssueEnqueuesJob(t *testing.T) {
	svc, repo, _ := newNewsletterFixture()
	queue := &queueStub{}
	svc.SetDispatcher(queue)

	issue, err := svc.CreateIssue(context.Background(), CreateIssueRequest{Subject: "August digest", Body: "New batches open."})
	require.NoError(t, err)
	assert.Equal(t, models.NewsletterIssueDraft, issue.Status)

	queued, err := svc.SendIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NewsletterIssueQueued, queued.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "newsletter_issue", queue.enqueued[0].Type)
	assert.Equal(t, issue.ID, queue.enqueued[0].Payload)
	assert.Equal(t, models.NewsletterIssueQueued, repo.issues[issue.ID].Status)
}

func TestNewsletterSendIssueOnlyDrafts(t *testing.T) {
	svc, repo, _ := newNewsletterFixture()
	repo.issues["issue-sent"] = &models.NewsletterIssue{ID: "issue-sent", Subject: "Old digest", Status: models.NewsletterIssueSent}

	_, err := svc.SendIssue(context.Background(), "issue-sent")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestNewsletterDispatchSkipsUnsubscribed(t *testing.T) {
	svc, repo, mailer := newNewsletterFixture()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: email})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Unsubscribe(context.Background(), "c@example.com"))

	issue, err := svc.CreateIssue(context.Background(), CreateIssueRequest{Subject: "Digest", Body: "Body"})
	require.NoError(t, err)

	require.NoError(t, svc.Dispatch(context.Background(), issue.ID))
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, mailer.sent)
	assert.Equal(t, models.NewsletterIssueSent, repo.issues[issue.ID].Status)
	assert.Equal(t, 2, repo.issues[issue.ID].SentCount)
	assert.NotNil(t, repo.issues[issue.ID].SentAt)
}

func TestNewsletterDispatchPartialFailureStillSent(t *testing.T) {
	svc, repo, mailer := newNewsletterFixture()
	mailer.failFor["b@example.com"] = true

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: email})
		require.NoError(t, err)
	}
	issue, err := svc.CreateIssue(context.Background(), CreateIssueRequest{Subject: "Digest", Body: "Body"})
	require.NoError(t, err)

	require.NoError(t, svc.Dispatch(context.Background(), issue.ID))
	assert.Equal(t, models.NewsletterIssueSent, repo.issues[issue.ID].Status)
	assert.Equal(t, 1, repo.issues[issue.ID].SentCount)
}

func TestNewsletterDispatchTotalFailureMarksFailed(t *testing.T) {
	svc, repo, mailer := newNewsletterFixture()
	mailer.failFor["a@example.com"] = true

	_, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "a@example.com"})
	require.NoError(t, err)
	issue, err := svc.CreateIssue(context.Background(), CreateIssueRequest{Subject: "Digest", Body: "Body"})
	require.NoError(t, err)

	require.NoError(t, svc.Dispatch(context.Background(), issue.ID))
	assert.Equal(t, models.NewsletterIssueFailed, repo.issues[issue.ID].Status)
	assert.Equal(t, 0, repo.issues[issue.ID].SentCount)
}

func TestNewsletterSendIssueSynchronousWithoutQueue(t *testing.T) {
	svc, repo, mailer := newNewsletterFixture()

	_, err := svc.Subscribe(context.Background(), SubscribeRequest{Email: "a@example.com"})
	require.NoError(t, err)
	issue, err := svc.CreateIssue(context.Background(), CreateIssueRequest{Subject: "Digest", Body: "Body"})
	require.NoError(t, err)

	sent, err := svc.SendIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NewsletterIssueSent, sent.Status)
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, models.NewsletterIssueSent, repo.issues[issue.ID].Status)
}
