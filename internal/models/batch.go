package models

import "time"

// BatchStatus represents the lifecycle of a scheduled batch.
type BatchStatus string

// Possible batch statuses.
const (
	BatchStatusDraft     BatchStatus = "DRAFT"
	BatchStatusPublished BatchStatus = "PUBLISHED"
	BatchStatusUpcoming  BatchStatus = "UPCOMING"
	BatchStatusOngoing   BatchStatus = "ONGOING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusCancelled BatchStatus = "CANCELLED"
)

// Open reports whether the batch accepts new enrollments.
func (s BatchStatus) Open() bool {
	switch s {
	case BatchStatusPublished, BatchStatusUpcoming, BatchStatusOngoing:
		return true
	}
	return false
}

// Batch is a scheduled cohort of a course with a capacity limit.
// Price overrides the course price when non-zero; minor currency units.
type Batch struct {
	ID              string      `db:"id" json:"id"`
	CourseID        string      `db:"course_id" json:"course_id"`
	Name            string      `db:"name" json:"name"`
	StartDate       time.Time   `db:"start_date" json:"start_date"`
	EndDate         time.Time   `db:"end_date" json:"end_date"`
	Price           int64       `db:"price" json:"price"`
	Status          BatchStatus `db:"status" json:"status"`
	CurrentStudents int         `db:"current_students" json:"current_students"`
	MaxStudents     int         `db:"max_students" json:"max_students"`
	MentorID        *string     `db:"mentor_id" json:"mentor_id,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the batch price, falling back to the course price.
func (b Batch) EffectivePrice(coursePrice int64) int64 {
	if b.Price > 0 {
		return b.Price
	}
	return coursePrice
}

// BatchDetail enriches Batch with course and mentor info.
type BatchDetail struct {
	Batch
	CourseTitle string  `db:"course_title" json:"course_title"`
	MentorName  *string `db:"mentor_name" json:"mentor_name,omitempty"`
}

// BatchFilter defines filter criteria for listing batches.
type BatchFilter struct {
	CourseID  string
	Status    BatchStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
