package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment request.
type EnrollmentStatus string

// Possible enrollment statuses. PENDING moves to APPROVED or REJECTED;
// APPROVED may later become COMPLETED. APPROVED and COMPLETED are terminal
// for rejection purposes.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved  EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// EnrollmentPaymentStatus mirrors the billing state of the enrollment.
type EnrollmentPaymentStatus string

// Possible payment statuses of an enrollment.
const (
	EnrollmentPaymentPending  EnrollmentPaymentStatus = "PENDING"
	EnrollmentPaymentPartial  EnrollmentPaymentStatus = "PARTIAL"
	EnrollmentPaymentPaid     EnrollmentPaymentStatus = "PAID"
	EnrollmentPaymentFailed   EnrollmentPaymentStatus = "FAILED"
	EnrollmentPaymentRefunded EnrollmentPaymentStatus = "REFUNDED"
)

// Enrollment links a student to a batch of a course, subject to approval.
type Enrollment struct {
	ID              string                  `db:"id" json:"id"`
	StudentID       string                  `db:"student_id" json:"student_id"`
	CourseID        string                  `db:"course_id" json:"course_id"`
	BatchID         string                  `db:"batch_id" json:"batch_id"`
	Status          EnrollmentStatus        `db:"status" json:"status"`
	PaymentStatus   EnrollmentPaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod   string                  `db:"payment_method" json:"payment_method"`
	ApprovedBy      *string                 `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time              `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string                 `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student, course and batch info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	StudentCode string `db:"student_code" json:"student_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	BatchName   string `db:"batch_name" json:"batch_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	BatchID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
