package models

import "time"

// InvoiceStatus represents the settlement state of an invoice.
type InvoiceStatus string

// Possible invoice statuses.
const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is the billable record for an enrollment. All monetary fields are
// integer minor currency units (taka). paid_amount and remaining_amount are
// derived from the payment ledger, never patched independently.
type Invoice struct {
	ID              string        `db:"id" json:"id"`
	Number          string        `db:"number" json:"number"`
	StudentID       string        `db:"student_id" json:"student_id"`
	EnrollmentID    *string       `db:"enrollment_id" json:"enrollment_id,omitempty"`
	BatchID         string        `db:"batch_id" json:"batch_id"`
	Amount          int64         `db:"amount" json:"amount"`
	DiscountAmount  int64         `db:"discount_amount" json:"discount_amount"`
	FinalAmount     int64         `db:"final_amount" json:"final_amount"`
	PaidAmount      int64         `db:"paid_amount" json:"paid_amount"`
	RemainingAmount int64         `db:"remaining_amount" json:"remaining_amount"`
	Status          InvoiceStatus `db:"status" json:"status"`
	PromoCodeID     *string       `db:"promo_code_id" json:"promo_code_id,omitempty"`
	DueDate         time.Time     `db:"due_date" json:"due_date"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// InvoiceDetail enriches Invoice with joined display fields and payments.
type InvoiceDetail struct {
	Invoice
	StudentName string    `db:"student_name" json:"student_name"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	BatchName   string    `db:"batch_name" json:"batch_name"`
	Payments    []Payment `db:"-" json:"payments,omitempty"`
}

// InvoiceFilter provides filters for listing invoices.
type InvoiceFilter struct {
	StudentID string
	BatchID   string
	Status    InvoiceStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PaymentStatus represents the verification state of a payment submission.
type PaymentStatus string

// Possible payment statuses. PENDING and VERIFIED payments count toward the
// invoice balance; REJECTED and REFUNDED do not.
const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// CountsTowardBalance reports whether a payment in this state contributes
// to the invoice paid amount.
func (s PaymentStatus) CountsTowardBalance() bool {
	return s == PaymentStatusPending || s == PaymentStatusVerified
}

// Payment is one discrete payment submission applied toward an invoice.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	InvoiceID       string        `db:"invoice_id" json:"invoice_id"`
	Amount          int64         `db:"amount" json:"amount"`
	Method          string        `db:"method" json:"method"`
	Reference       string        `db:"reference" json:"reference"`
	Status          PaymentStatus `db:"status" json:"status"`
	VerifiedBy      *string       `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}
