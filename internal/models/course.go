package models

import "time"

// Course represents an offered course in the catalog.
// Prices are stored in minor currency units (taka).
type Course struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Price       int64     `db:"price" json:"price"`
	Published   bool      `db:"published" json:"published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	Search    string
	Category  string
	Published *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
