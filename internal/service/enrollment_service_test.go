package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type enrollmentRepoStub struct {
	enrollments map[string]*models.Enrollment
	filter      models.EnrollmentFilter
	seq         int
	createErr   error
}

func newEnrollmentRepoStub() *enrollmentRepoStub {
	return &enrollmentRepoStub{enrollments: make(map[string]*models.Enrollment)}
}

func (r *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	r.filter = filter
	result := make([]models.EnrollmentDetail, 0, len(r.enrollments))
	for _, e := range r.enrollments {
		result = append(result, models.EnrollmentDetail{Enrollment: *e})
	}
	return result, len(result), nil
}

func (r *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := r.enrollments[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *enrollmentRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnrollmentDetail{Enrollment: *e}, nil
}

func (r *enrollmentRepoStub) ExistsLive(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID &&
			e.Status != models.EnrollmentStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *enrollmentRepoStub) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", r.seq)
	stored := *enrollment
	r.enrollments[enrollment.ID] = &stored
	return nil
}

func (r *enrollmentRepoStub) Approve(ctx context.Context, id, adminID string, approvedAt time.Time) error {
	e, ok := r.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = models.EnrollmentStatusApproved
	e.ApprovedBy = &adminID
	e.ApprovedAt = &approvedAt
	return nil
}

func (r *enrollmentRepoStub) Reject(ctx context.Context, id, reason string) error {
	e, ok := r.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = models.EnrollmentStatusRejected
	e.RejectionReason = &reason
	return nil
}

func (r *enrollmentRepoStub) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	e, ok := r.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

type seatBatchStub struct {
	batches  map[string]*models.Batch
	claims   int
	releases int
	full     bool
}

func (r *seatBatchStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := r.batches[id]; ok {
		copy := *b
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *seatBatchStub) ClaimSeat(ctx context.Context, id string) (bool, error) {
	if r.full {
		return false, nil
	}
	r.claims++
	return true, nil
}

func (r *seatBatchStub) ReleaseSeat(ctx context.Context, id string) error {
	r.releases++
	return nil
}

type invoiceCreatorStub struct {
	invoices []*models.Invoice
	err      error
}

func (r *invoiceCreatorStub) CreateForEnrollment(ctx context.Context, enrollment *models.Enrollment, promoCode string) (*models.Invoice, error) {
	if r.err != nil {
		return nil, r.err
	}
	invoice := &models.Invoice{
		ID:           fmt.Sprintf("inv-%d", len(r.invoices)+1),
		StudentID:    enrollment.StudentID,
		EnrollmentID: &enrollment.ID,
		BatchID:      enrollment.BatchID,
		Status:       models.InvoiceStatusPending,
	}
	r.invoices = append(r.invoices, invoice)
	return invoice, nil
}

func newEnrollmentFixture() (*EnrollmentService, *enrollmentRepoStub, *seatBatchStub, *invoiceCreatorStub, *auditStub) {
	repo := newEnrollmentRepoStub()
	batches := &seatBatchStub{batches: map[string]*models.Batch{
		"batch-1": {ID: "batch-1", CourseID: "course-1", Status: models.BatchStatusPublished, MaxStudents: 30},
		"batch-d": {ID: "batch-d", CourseID: "course-1", Status: models.BatchStatusDraft, MaxStudents: 30},
	}}
	courses := &courseLookupStub{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Title: "Go Fundamentals", Price: 100000, Published: true},
		"course-2": {ID: "course-2", Title: "Unreleased", Price: 100000, Published: false},
	}}
	billing := &invoiceCreatorStub{}
	audit := &auditStub{}
	svc := NewEnrollmentService(repo, batches, courses, billing, audit, nil, nil)
	return svc, repo, batches, billing, audit
}

func TestEnrollmentCreateClaimsSeatAndIssuesInvoice(t *testing.T) {
	svc, repo, batches, billing, _ := newEnrollmentFixture()

	enrollment, invoice, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID:      "course-1",
		BatchID:       "batch-1",
		PaymentMethod: "bkash",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, models.EnrollmentPaymentPending, enrollment.PaymentStatus)
	require.NotNil(t, invoice)
	require.NotNil(t, invoice.EnrollmentID)
	assert.Equal(t, enrollment.ID, *invoice.EnrollmentID)
	assert.Equal(t, 1, batches.claims)
	assert.Equal(t, 0, batches.releases)
	require.Len(t, billing.invoices, 1)
	assert.Len(t, repo.enrollments, 1)
}

func TestEnrollmentCreateFullBatch(t *testing.T) {
	svc, _, batches, _, _ := newEnrollmentFixture()
	batches.full = true

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBatchFull.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateClosedBatch(t *testing.T) {
	svc, _, batches, _, _ := newEnrollmentFixture()

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-d",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, batches.claims)
}

func TestEnrollmentCreateUnpublishedCourse(t *testing.T) {
	svc, _, _, _, _ := newEnrollmentFixture()

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-2",
		BatchID:  "batch-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateBatchCourseMismatch(t *testing.T) {
	svc, _, batches, _, _ := newEnrollmentFixture()
	batches.batches["batch-x"] = &models.Batch{ID: "batch-x", CourseID: "course-9", Status: models.BatchStatusPublished}

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-x",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateDuplicateLiveEnrollment(t *testing.T) {
	svc, repo, _, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-0"] = &models.Enrollment{
		ID:        "enr-0",
		StudentID: "student-1",
		CourseID:  "course-1",
		BatchID:   "batch-1",
		Status:    models.EnrollmentStatusApproved,
	}

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateAllowedAfterRejection(t *testing.T) {
	svc, repo, _, _, _ := newEnrollmentFixture()
	reason := "changed mind"
	repo.enrollments["enr-0"] = &models.Enrollment{
		ID:              "enr-0",
		StudentID:       "student-1",
		CourseID:        "course-1",
		BatchID:         "batch-1",
		Status:          models.EnrollmentStatusRejected,
		RejectionReason: &reason,
	}

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-1",
	})
	require.NoError(t, err)
}

func TestEnrollmentCreateInvoiceFailureRollsBack(t *testing.T) {
	svc, repo, batches, billing, _ := newEnrollmentFixture()
	billing.err = appErrors.Clone(appErrors.ErrInvalidPromo, "promo code not found")

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID:  "course-1",
		BatchID:   "batch-1",
		PromoCode: "NOPE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPromo.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, batches.releases)

	// The enrollment row stays but is dead, so the course slot reopens.
	for _, e := range repo.enrollments {
		assert.Equal(t, models.EnrollmentStatusRejected, e.Status)
	}
}

func TestEnrollmentCreateRepoFailureReleasesSeat(t *testing.T) {
	svc, repo, batches, _, _ := newEnrollmentFixture()
	repo.createErr = sql.ErrConnDone

	_, _, err := svc.Create(context.Background(), "student-1", CreateEnrollmentRequest{
		CourseID: "course-1",
		BatchID:  "batch-1",
	})
	require.Error(t, err)
	assert.Equal(t, 1, batches.claims)
	assert.Equal(t, 1, batches.releases)
}

func TestEnrollmentApproveOnlyPending(t *testing.T) {
	svc, repo, _, _, audit := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:     "enr-1",
		Status: models.EnrollmentStatusPending,
	}

	approved, err := svc.Approve(context.Background(), "enr-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "admin-1", *approved.ApprovedBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEnrollmentApprove, audit.logs[0].Action)

	_, err = svc.Approve(context.Background(), "enr-1", "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Len(t, audit.logs, 1)
}

func TestEnrollmentRejectReleasesSeat(t *testing.T) {
	svc, repo, batches, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:      "enr-1",
		BatchID: "batch-1",
		Status:  models.EnrollmentStatusPending,
	}

	rejected, err := svc.Reject(context.Background(), "enr-1", "admin-1", RejectEnrollmentRequest{Reason: "no payment"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "no payment", *rejected.RejectionReason)
	assert.Equal(t, 1, batches.releases)
}

func TestEnrollmentRejectRequiresReason(t *testing.T) {
	svc, repo, _, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:     "enr-1",
		Status: models.EnrollmentStatusPending,
	}

	_, err := svc.Reject(context.Background(), "enr-1", "admin-1", RejectEnrollmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentRejectOnlyPending(t *testing.T) {
	svc, repo, batches, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:      "enr-1",
		BatchID: "batch-1",
		Status:  models.EnrollmentStatusRejected,
	}

	_, err := svc.Reject(context.Background(), "enr-1", "admin-1", RejectEnrollmentRequest{Reason: "late"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, 0, batches.releases)
}

func TestEnrollmentCompleteOnlyApproved(t *testing.T) {
	svc, repo, _, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:     "enr-1",
		Status: models.EnrollmentStatusApproved,
	}
	repo.enrollments["enr-2"] = &models.Enrollment{
		ID:     "enr-2",
		Status: models.EnrollmentStatusPending,
	}

	completed, err := svc.Complete(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, completed.Status)

	_, err = svc.Complete(context.Background(), "enr-2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestEnrollmentGetStudentScoped(t *testing.T) {
	svc, repo, _, _, _ := newEnrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{ID: "enr-1", StudentID: "student-1"}

	_, err := svc.Get(context.Background(), "enr-1", "student-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	detail, err := svc.Get(context.Background(), "enr-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", detail.ID)
}
