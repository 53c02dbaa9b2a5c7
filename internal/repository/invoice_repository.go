package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/learnsphere/academy-api/internal/models"
)

// InvoiceRepository handles persistence of invoices and their payment
// ledger. Invoice balance fields are always written from a ledger sum,
// never incremented in place.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoices filtered by the provided criteria.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error) {
	base := `FROM invoices i
LEFT JOIN users s ON s.id = i.student_id
LEFT JOIN batches b ON b.id = i.batch_id
LEFT JOIN courses c ON c.id = b.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("i.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("i.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "i.created_at",
		"due_date":   "i.due_date",
		"number":     "i.number",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "i.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT i.id, i.number, i.student_id, i.enrollment_id, i.batch_id, i.amount, i.discount_amount,
        i.final_amount, i.paid_amount, i.remaining_amount, i.status, i.promo_code_id, i.due_date, i.created_at, i.updated_at,
        s.full_name AS student_name, c.title AS course_title, b.name AS batch_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var invoices []models.InvoiceDetail
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID returns an invoice by its ID.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	const query = `SELECT id, number, student_id, enrollment_id, batch_id, amount, discount_amount, final_amount,
        paid_amount, remaining_amount, status, promo_code_id, due_date, created_at, updated_at FROM invoices WHERE id = $1`
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindDetailByID returns an invoice with joined info and its payment ledger.
func (r *InvoiceRepository) FindDetailByID(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	const query = `SELECT i.id, i.number, i.student_id, i.enrollment_id, i.batch_id, i.amount, i.discount_amount,
        i.final_amount, i.paid_amount, i.remaining_amount, i.status, i.promo_code_id, i.due_date, i.created_at, i.updated_at,
        s.full_name AS student_name, c.title AS course_title, b.name AS batch_name
        FROM invoices i
        LEFT JOIN users s ON s.id = i.student_id
        LEFT JOIN batches b ON b.id = i.batch_id
        LEFT JOIN courses c ON c.id = b.course_id
        WHERE i.id = $1`
	var detail models.InvoiceDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	payments, err := r.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Payments = payments
	return &detail, nil
}

// Create persists a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPending
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, number, student_id, enrollment_id, batch_id, amount, discount_amount,
        final_amount, paid_amount, remaining_amount, status, promo_code_id, due_date, created_at, updated_at)
        VALUES (:id, :number, :student_id, :enrollment_id, :batch_id, :amount, :discount_amount,
        :final_amount, :paid_amount, :remaining_amount, :status, :promo_code_id, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// ApplyBalance writes the derived balance fields and status.
func (r *InvoiceRepository) ApplyBalance(ctx context.Context, id string, paid, remaining int64, status models.InvoiceStatus) error {
	const query = `UPDATE invoices SET paid_amount = $2, remaining_amount = $3, status = $4, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, paid, remaining, status); err != nil {
		return fmt.Errorf("apply invoice balance: %w", err)
	}
	return nil
}

// UpdateStatus transitions the invoice status without touching balances.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// LedgerTotal sums payments that count toward the invoice balance.
func (r *InvoiceRepository) LedgerTotal(ctx context.Context, invoiceID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1 AND status IN ($2, $3)`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, invoiceID, models.PaymentStatusPending, models.PaymentStatusVerified); err != nil {
		return 0, fmt.Errorf("sum payment ledger: %w", err)
	}
	return total, nil
}

// ListPayments returns the payment ledger for an invoice, oldest first.
func (r *InvoiceRepository) ListPayments(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	const query = `SELECT id, invoice_id, amount, method, reference, status, verified_by, verified_at, rejection_reason, created_at
        FROM payments WHERE invoice_id = $1 ORDER BY created_at ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, invoiceID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// FindPaymentByID returns a payment by its ID.
func (r *InvoiceRepository) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, invoice_id, amount, method, reference, status, verified_by, verified_at, rejection_reason, created_at
        FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePayment appends a payment to the invoice ledger.
func (r *InvoiceRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, invoice_id, amount, method, reference, status, verified_by, verified_at, rejection_reason, created_at)
        VALUES (:id, :invoice_id, :amount, :method, :reference, :status, :verified_by, :verified_at, :rejection_reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// VerifyPayment marks a payment verified by the given admin.
func (r *InvoiceRepository) VerifyPayment(ctx context.Context, id, adminID string, verifiedAt time.Time) error {
	const query = `UPDATE payments SET status = $2, verified_by = $3, verified_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusVerified, adminID, verifiedAt); err != nil {
		return fmt.Errorf("verify payment: %w", err)
	}
	return nil
}

// RejectPayment marks a payment rejected with a reason.
func (r *InvoiceRepository) RejectPayment(ctx context.Context, id, adminID, reason string, rejectedAt time.Time) error {
	const query = `UPDATE payments SET status = $2, verified_by = $3, verified_at = $4, rejection_reason = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusRejected, adminID, rejectedAt, reason); err != nil {
		return fmt.Errorf("reject payment: %w", err)
	}
	return nil
}

// DeletePayment removes a payment from the ledger.
func (r *InvoiceRepository) DeletePayment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// BillingReportRow is one line of the billing CSV export.
type BillingReportRow struct {
	Number      string               `db:"number"`
	StudentName string               `db:"student_name"`
	CourseTitle string               `db:"course_title"`
	BatchName   string               `db:"batch_name"`
	FinalAmount int64                `db:"final_amount"`
	PaidAmount  int64                `db:"paid_amount"`
	Remaining   int64                `db:"remaining_amount"`
	Status      models.InvoiceStatus `db:"status"`
	DueDate     time.Time            `db:"due_date"`
}

// BillingReport returns one row per invoice for reporting exports.
func (r *InvoiceRepository) BillingReport(ctx context.Context) ([]BillingReportRow, error) {
	const query = `SELECT i.number, s.full_name AS student_name, c.title AS course_title, b.name AS batch_name,
        i.final_amount, i.paid_amount, i.remaining_amount, i.status, i.due_date
        FROM invoices i
        LEFT JOIN users s ON s.id = i.student_id
        LEFT JOIN batches b ON b.id = i.batch_id
        LEFT JOIN courses c ON c.id = b.course_id
        ORDER BY i.created_at DESC`
	var rows []BillingReportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("billing report: %w", err)
	}
	return rows, nil
}
