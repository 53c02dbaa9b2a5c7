package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/repository"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	FindDetailByID(ctx context.Context, id string) (*models.InvoiceDetail, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	ApplyBalance(ctx context.Context, id string, paid, remaining int64, status models.InvoiceStatus) error
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error
	LedgerTotal(ctx context.Context, invoiceID string) (int64, error)
	ListPayments(ctx context.Context, invoiceID string) ([]models.Payment, error)
	FindPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	VerifyPayment(ctx context.Context, id, adminID string, verifiedAt time.Time) error
	RejectPayment(ctx context.Context, id, adminID, reason string, rejectedAt time.Time) error
	DeletePayment(ctx context.Context, id string) error
	BillingReport(ctx context.Context) ([]repository.BillingReportRow, error)
}

type billingPromoRepository interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindByID(ctx context.Context, id string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, id string) (bool, error)
	ReleaseUsage(ctx context.Context, id string) error
	CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error
	CountRedemptionsByUser(ctx context.Context, promoID, userID string) (int, error)
}

type billingEnrollmentRepository interface {
	UpdatePaymentStatus(ctx context.Context, id string, status models.EnrollmentPaymentStatus) error
}

type billingBatchRepository interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type billingCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type billingAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SubmitPaymentRequest is the payload for recording a payment against an
// invoice. Amount is in minor currency units.
type SubmitPaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference"`
}

// RejectPaymentRequest carries the mandatory rejection reason.
type RejectPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BillingConfig tunes invoice issuance.
type BillingConfig struct {
	InvoiceDueDays int
}

// BillingService owns invoices and their payment ledgers. Balance fields
// are always recomputed from the ledger after every mutation, never
// adjusted increment-by-increment.
type BillingService struct {
	invoices    invoiceRepository
	promos      billingPromoRepository
	enrollments billingEnrollmentRepository
	batches     billingBatchRepository
	courses     billingCourseRepository
	audit       billingAuditRepository
	validator   *validator.Validate
	logger      *zap.Logger
	config      BillingConfig
}

// NewBillingService constructs the billing service.
func NewBillingService(
	invoices invoiceRepository,
	promos billingPromoRepository,
	enrollments billingEnrollmentRepository,
	batches billingBatchRepository,
	courses billingCourseRepository,
	audit billingAuditRepository,
	validate *validator.Validate,
	logger *zap.Logger,
	config BillingConfig,
) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.InvoiceDueDays <= 0 {
		config.InvoiceDueDays = 30
	}
	return &BillingService{
		invoices:    invoices,
		promos:      promos,
		enrollments: enrollments,
		batches:     batches,
		courses:     courses,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// List returns invoices and pagination metadata.
func (s *BillingService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, *models.Pagination, error) {
	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an invoice with its payment ledger. Students may only see
// their own invoices; callerID is empty for staff.
func (s *BillingService) Get(ctx context.Context, id, callerID string) (*models.InvoiceDetail, error) {
	detail, err := s.invoices.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if callerID != "" && detail.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice belongs to another student")
	}
	return detail, nil
}

// CreateInvoiceRequest issues an invoice outside the enrollment flow,
// for manual billing of a student against a batch.
type CreateInvoiceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	BatchID   string `json:"batch_id" validate:"required"`
	PromoCode string `json:"promo_code"`
}

// Create issues a standalone invoice for a student and batch.
func (s *BillingService) Create(ctx context.Context, req CreateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch for invoice")
	}
	return s.issue(ctx, req.StudentID, batch, nil, req.PromoCode)
}

// CreateForEnrollment issues the invoice for a freshly created enrollment.
func (s *BillingService) CreateForEnrollment(ctx context.Context, enrollment *models.Enrollment, promoCode string) (*models.Invoice, error) {
	batch, err := s.batches.FindByID(ctx, enrollment.BatchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch for invoice")
	}
	return s.issue(ctx, enrollment.StudentID, batch, &enrollment.ID, promoCode)
}

// issue prices and persists an invoice. The batch price overrides the
// course price when set; a promo code, when supplied, must be valid at
// this moment and its usage is claimed atomically. The code is never
// re-validated later in the invoice lifecycle.
func (s *BillingService) issue(ctx context.Context, studentID string, batch *models.Batch, enrollmentID *string, promoCode string) (*models.Invoice, error) {
	course, err := s.courses.FindByID(ctx, batch.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course for invoice")
	}

	amount := batch.EffectivePrice(course.Price)

	var discount int64
	var promoID *string
	if strings.TrimSpace(promoCode) != "" {
		promo, err := s.validatePromo(ctx, promoCode, studentID, amount)
		if err != nil {
			return nil, err
		}
		claimed, err := s.promos.IncrementUsage(ctx, promo.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim promo usage")
		}
		if !claimed {
			return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code usage limit reached")
		}
		discount = promo.DiscountFor(amount)
		promoID = &promo.ID
	}

	final := amount - discount
	now := time.Now().UTC()
	invoice := &models.Invoice{
		Number:          s.nextInvoiceNumber(now),
		StudentID:       studentID,
		EnrollmentID:    enrollmentID,
		BatchID:         batch.ID,
		Amount:          amount,
		DiscountAmount:  discount,
		FinalAmount:     final,
		PaidAmount:      0,
		RemainingAmount: final,
		Status:          models.InvoiceStatusPending,
		PromoCodeID:     promoID,
		DueDate:         now.AddDate(0, 0, s.config.InvoiceDueDays),
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		if promoID != nil {
			if releaseErr := s.promos.ReleaseUsage(ctx, *promoID); releaseErr != nil {
				s.logger.Error("failed to release promo usage after invoice failure", zap.Error(releaseErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}

	if promoID != nil {
		if err := s.promos.CreateRedemption(ctx, &models.PromoRedemption{
			PromoCodeID: *promoID,
			UserID:      studentID,
			InvoiceID:   invoice.ID,
		}); err != nil {
			s.logger.Warn("failed to record promo redemption", zap.Error(err))
		}
	}

	return invoice, nil
}

// SubmitPayment appends a PENDING payment to the invoice ledger and
// recomputes the balance. Submissions count toward the balance
// immediately; a later rejection takes them back out.
func (s *BillingService) SubmitPayment(ctx context.Context, invoiceID, callerID string, req SubmitPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if callerID != "" && invoice.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invoice belongs to another student")
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invoice is cancelled")
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invoice is already paid")
	}
	if req.Amount > invoice.RemainingAmount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment exceeds remaining balance")
	}

	payment := &models.Payment{
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Status:    models.PaymentStatusPending,
	}
	if err := s.invoices.CreatePayment(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if _, err := s.recalculate(ctx, invoice); err != nil {
		return nil, err
	}
	return payment, nil
}

// VerifyPayment marks a pending payment verified. The balance does not
// move since pending payments already count, but the ledger entry gains
// its verifier.
func (s *BillingService) VerifyPayment(ctx context.Context, paymentID, adminID string) (*models.Payment, error) {
	payment, invoice, err := s.loadPaymentWithInvoice(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment is %s, only PENDING can be verified", payment.Status))
	}

	now := time.Now().UTC()
	if err := s.invoices.VerifyPayment(ctx, paymentID, adminID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify payment")
	}
	if _, err := s.recalculate(ctx, invoice); err != nil {
		return nil, err
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionPaymentVerify,
		Resource:   "payments",
		ResourceID: &paymentID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"invoice_id":%q}`, models.PaymentStatusVerified, invoice.ID)),
	}); err != nil {
		s.logger.Warn("failed to record payment verification audit log", zap.Error(err))
	}

	payment.Status = models.PaymentStatusVerified
	payment.VerifiedBy = &adminID
	payment.VerifiedAt = &now
	return payment, nil
}

// RejectPayment marks a pending payment rejected and recomputes the
// balance without it.
func (s *BillingService) RejectPayment(ctx context.Context, paymentID, adminID string, req RejectPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}

	payment, invoice, err := s.loadPaymentWithInvoice(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment is %s, only PENDING can be rejected", payment.Status))
	}

	now := time.Now().UTC()
	if err := s.invoices.RejectPayment(ctx, paymentID, adminID, req.Reason, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject payment")
	}
	if _, err := s.recalculate(ctx, invoice); err != nil {
		return nil, err
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionPaymentReject,
		Resource:   "payments",
		ResourceID: &paymentID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"reason":%q}`, models.PaymentStatusRejected, req.Reason)),
	}); err != nil {
		s.logger.Warn("failed to record payment rejection audit log", zap.Error(err))
	}

	payment.Status = models.PaymentStatusRejected
	payment.VerifiedBy = &adminID
	payment.VerifiedAt = &now
	payment.RejectionReason = &req.Reason
	return payment, nil
}

// DeletePayment removes a ledger entry entirely and recomputes the
// balance. Meant for correcting erroneous submissions.
func (s *BillingService) DeletePayment(ctx context.Context, paymentID, adminID string) error {
	payment, invoice, err := s.loadPaymentWithInvoice(ctx, paymentID)
	if err != nil {
		return err
	}

	if err := s.invoices.DeletePayment(ctx, paymentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	if _, err := s.recalculate(ctx, invoice); err != nil {
		return err
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionPaymentDelete,
		Resource:   "payments",
		ResourceID: &paymentID,
		OldValues:  []byte(fmt.Sprintf(`{"amount":%d,"status":%q}`, payment.Amount, payment.Status)),
	}); err != nil {
		s.logger.Warn("failed to record payment deletion audit log", zap.Error(err))
	}
	return nil
}

// Recalculate rebuilds the invoice balance from its ledger. Exposed as a
// repair endpoint for drifted invoices.
func (s *BillingService) Recalculate(ctx context.Context, invoiceID, adminID string) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}

	updated, err := s.recalculate(ctx, invoice)
	if err != nil {
		return nil, err
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionInvoiceRepair,
		Resource:   "invoices",
		ResourceID: &invoiceID,
		OldValues:  []byte(fmt.Sprintf(`{"paid":%d,"status":%q}`, invoice.PaidAmount, invoice.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"paid":%d,"status":%q}`, updated.PaidAmount, updated.Status)),
	}); err != nil {
		s.logger.Warn("failed to record recalculation audit log", zap.Error(err))
	}
	return updated, nil
}

// Cancel voids an invoice and returns the claimed promo usage. Paid
// invoices cannot be cancelled.
func (s *BillingService) Cancel(ctx context.Context, invoiceID, adminID string) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "paid invoices cannot be cancelled")
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice is already cancelled")
	}

	if err := s.invoices.UpdateStatus(ctx, invoiceID, models.InvoiceStatusCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel invoice")
	}

	if invoice.PromoCodeID != nil {
		if err := s.promos.ReleaseUsage(ctx, *invoice.PromoCodeID); err != nil {
			s.logger.Warn("failed to release promo usage on cancellation", zap.Error(err))
		}
	}

	if invoice.EnrollmentID != nil {
		if err := s.enrollments.UpdatePaymentStatus(ctx, *invoice.EnrollmentID, models.EnrollmentPaymentFailed); err != nil {
			s.logger.Warn("failed to sync enrollment payment status", zap.Error(err))
		}
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionInvoiceCancel,
		Resource:   "invoices",
		ResourceID: &invoiceID,
		OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, invoice.Status)),
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, models.InvoiceStatusCancelled)),
	}); err != nil {
		s.logger.Warn("failed to record cancellation audit log", zap.Error(err))
	}

	invoice.Status = models.InvoiceStatusCancelled
	return invoice, nil
}

// Report returns the raw billing rows for CSV exports.
func (s *BillingService) Report(ctx context.Context) ([]repository.BillingReportRow, error) {
	rows, err := s.invoices.BillingReport(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build billing report")
	}
	return rows, nil
}

// recalculate derives paid/remaining/status from the ledger sum and
// persists the result, syncing the enrollment payment status alongside.
func (s *BillingService) recalculate(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	total, err := s.invoices.LedgerTotal(ctx, invoice.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payment ledger")
	}
	if total > invoice.FinalAmount {
		total = invoice.FinalAmount
	}

	remaining := invoice.FinalAmount - total
	status := models.InvoiceStatusPending
	paymentStatus := models.EnrollmentPaymentPending
	switch {
	case remaining == 0:
		// Covers fully paid invoices and zero-balance invoices from a
		// 100% discount.
		status = models.InvoiceStatusPaid
		paymentStatus = models.EnrollmentPaymentPaid
	case total > 0:
		status = models.InvoiceStatusPartial
		paymentStatus = models.EnrollmentPaymentPartial
	}

	if invoice.Status == models.InvoiceStatusCancelled {
		// Cancelled invoices keep their status; only balances refresh.
		status = models.InvoiceStatusCancelled
		paymentStatus = models.EnrollmentPaymentFailed
	}

	if err := s.invoices.ApplyBalance(ctx, invoice.ID, total, remaining, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist invoice balance")
	}

	if invoice.EnrollmentID != nil {
		if err := s.enrollments.UpdatePaymentStatus(ctx, *invoice.EnrollmentID, paymentStatus); err != nil {
			s.logger.Warn("failed to sync enrollment payment status", zap.Error(err))
		}
	}

	invoice.PaidAmount = total
	invoice.RemainingAmount = remaining
	invoice.Status = status
	return invoice, nil
}

func (s *BillingService) loadPaymentWithInvoice(ctx context.Context, paymentID string) (*models.Payment, *models.Invoice, error) {
	payment, err := s.invoices.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	invoice, err := s.invoices.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice for payment")
	}
	return payment, invoice, nil
}

// validatePromo checks activation window, minimum amount, exhaustion and
// the per-user limit. Usage is claimed separately with IncrementUsage.
func (s *BillingService) validatePromo(ctx context.Context, code, userID string, amount int64) (*models.PromoCode, error) {
	promo, err := s.promos.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promo code")
	}

	now := time.Now().UTC()
	if !promo.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code is inactive")
	}
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code is outside its validity window")
	}
	if promo.MinAmount > 0 && amount < promo.MinAmount {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "order amount below promo minimum")
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code usage limit reached")
	}
	if promo.PerUserLimit > 0 {
		used, err := s.promos.CountRedemptionsByUser(ctx, promo.ID, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count promo redemptions")
		}
		if used >= promo.PerUserLimit {
			return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code already used by this account")
		}
	}
	return promo, nil
}

func (s *BillingService) nextInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), suffix)
}
