package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsLive(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Approve(ctx context.Context, id, adminID string, approvedAt time.Time) error
	Reject(ctx context.Context, id, reason string) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type enrollmentBatchRepository interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	ClaimSeat(ctx context.Context, id string) (bool, error)
	ReleaseSeat(ctx context.Context, id string) error
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentInvoiceCreator interface {
	CreateForEnrollment(ctx context.Context, enrollment *models.Enrollment, promoCode string) (*models.Invoice, error)
}

type enrollmentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateEnrollmentRequest is the payload students submit to join a batch.
type CreateEnrollmentRequest struct {
	CourseID      string `json:"course_id" validate:"required"`
	BatchID       string `json:"batch_id" validate:"required"`
	PaymentMethod string `json:"payment_method"`
	PromoCode     string `json:"promo_code"`
}

// RejectEnrollmentRequest carries the mandatory rejection reason.
type RejectEnrollmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// EnrollmentService orchestrates the enrollment approval workflow. A seat
// is claimed once at creation; rejection releases it, approval does not
// claim again.
type EnrollmentService struct {
	repo      enrollmentRepository
	batches   enrollmentBatchRepository
	courses   enrollmentCourseRepository
	billing   enrollmentInvoiceCreator
	audit     enrollmentAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(
	repo enrollmentRepository,
	batches enrollmentBatchRepository,
	courses enrollmentCourseRepository,
	billing enrollmentInvoiceCreator,
	audit enrollmentAuditRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		batches:   batches,
		courses:   courses,
		billing:   billing,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single enrollment with joined details. Students may only
// see their own enrollments; callerID is empty for staff.
func (s *EnrollmentService) Get(ctx context.Context, id, callerID string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if callerID != "" && detail.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	return detail, nil
}

// Create registers a pending enrollment. The batch must be open, the
// student must not already hold a live enrollment for the course, and a
// seat must be available. The claimed seat stays claimed until rejection.
func (s *EnrollmentService) Create(ctx context.Context, studentID string, req CreateEnrollmentRequest) (*models.Enrollment, *models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Published {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "course is not published")
	}

	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if batch.CourseID != req.CourseID {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "batch does not belong to course")
	}
	if !batch.Status.Open() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "batch is not open for enrollment")
	}

	exists, err := s.repo.ExistsLive(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	}

	claimed, err := s.batches.ClaimSeat(ctx, req.BatchID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim seat")
	}
	if !claimed {
		return nil, nil, appErrors.Clone(appErrors.ErrBatchFull, "batch is full")
	}

	enrollment := &models.Enrollment{
		StudentID:     studentID,
		CourseID:      req.CourseID,
		BatchID:       req.BatchID,
		Status:        models.EnrollmentStatusPending,
		PaymentStatus: models.EnrollmentPaymentPending,
		PaymentMethod: req.PaymentMethod,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if releaseErr := s.batches.ReleaseSeat(ctx, req.BatchID); releaseErr != nil {
			s.logger.Error("failed to release seat after enrollment create failure",
				zap.String("batch_id", req.BatchID), zap.Error(releaseErr))
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	invoice, err := s.billing.CreateForEnrollment(ctx, enrollment, req.PromoCode)
	if err != nil {
		// Invoice creation failures roll the whole enrollment back so a
		// student never ends up enrolled without a bill.
		if rbErr := s.repo.Reject(ctx, enrollment.ID, "invoice creation failed"); rbErr != nil {
			s.logger.Error("failed to roll back enrollment", zap.String("enrollment_id", enrollment.ID), zap.Error(rbErr))
		}
		if releaseErr := s.batches.ReleaseSeat(ctx, req.BatchID); releaseErr != nil {
			s.logger.Error("failed to release seat after invoice failure",
				zap.String("batch_id", req.BatchID), zap.Error(releaseErr))
		}
		return nil, nil, err
	}

	return enrollment, invoice, nil
}

// Approve moves a pending enrollment to APPROVED. The seat was already
// claimed at creation, so capacity is not touched here.
func (s *EnrollmentService) Approve(ctx context.Context, id, adminID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment is %s, only PENDING can be approved", enrollment.Status))
	}

	now := time.Now().UTC()
	if err := s.repo.Approve(ctx, id, adminID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve enrollment")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionEnrollmentApprove,
		Resource:   "enrollments",
		ResourceID: &id,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, enrollment.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, models.EnrollmentStatusApproved)),
	}); err != nil {
		s.logger.Warn("failed to record approval audit log", zap.Error(err))
	}

	enrollment.Status = models.EnrollmentStatusApproved
	enrollment.ApprovedBy = &adminID
	enrollment.ApprovedAt = &now
	return enrollment, nil
}

// Reject moves a pending enrollment to REJECTED and releases its seat.
func (s *EnrollmentService) Reject(ctx context.Context, id, adminID string, req RejectEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment is %s, only PENDING can be rejected", enrollment.Status))
	}

	if err := s.repo.Reject(ctx, id, req.Reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
	}

	if err := s.batches.ReleaseSeat(ctx, enrollment.BatchID); err != nil {
		s.logger.Error("failed to release seat on rejection",
			zap.String("batch_id", enrollment.BatchID), zap.Error(err))
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionEnrollmentReject,
		Resource:   "enrollments",
		ResourceID: &id,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, enrollment.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"reason":%q}`, models.EnrollmentStatusRejected, req.Reason)),
	}); err != nil {
		s.logger.Warn("failed to record rejection audit log", zap.Error(err))
	}

	enrollment.Status = models.EnrollmentStatusRejected
	enrollment.RejectionReason = &req.Reason
	return enrollment, nil
}

// Complete marks an approved enrollment as finished.
func (s *EnrollmentService) Complete(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment is %s, only APPROVED can be completed", enrollment.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
	}
	enrollment.Status = models.EnrollmentStatusCompleted
	return enrollment, nil
}
