package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/learnsphere/academy-api/internal/models"
)

// DashboardRepository exposes read-optimised aggregate queries for the
// admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats computes the headline dashboard numbers in a single round trip.
// Revenue figures only count VERIFIED payments; outstanding is the sum of
// remaining balances on open invoices.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM users WHERE role = 'STUDENT' AND is_active = TRUE) AS active_students,
        (SELECT COUNT(*) FROM courses WHERE published = TRUE) AS published_courses,
        (SELECT COUNT(*) FROM batches WHERE status IN ('PUBLISHED', 'UPCOMING', 'ONGOING')) AS open_batches,
        (SELECT COUNT(*) FROM enrollments WHERE status = 'PENDING') AS pending_enrollments,
        (SELECT COUNT(*) FROM payments WHERE status = 'PENDING') AS pending_payments,
        (SELECT COALESCE(SUM(p.amount), 0) FROM payments p WHERE p.status = 'VERIFIED') AS revenue_collected,
        (SELECT COALESCE(SUM(i.remaining_amount), 0) FROM invoices i WHERE i.status IN ('PENDING', 'PARTIAL')) AS revenue_outstanding`

	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}
	return &stats, nil
}

// EnrollmentTrend is one month of enrollment volume.
type EnrollmentTrend struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

// EnrollmentTrends returns monthly enrollment counts for the last n months.
func (r *DashboardRepository) EnrollmentTrends(ctx context.Context, months int) ([]EnrollmentTrend, error) {
	if months <= 0 {
		months = 6
	}
	const query = `SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS count
        FROM enrollments
        WHERE created_at >= DATE_TRUNC('month', NOW()) - ($1 || ' months')::INTERVAL
        GROUP BY 1 ORDER BY 1 ASC`
	var trends []EnrollmentTrend
	if err := r.db.SelectContext(ctx, &trends, query, months); err != nil {
		return nil, fmt.Errorf("query enrollment trends: %w", err)
	}
	return trends, nil
}

// CoursePopularity is approved enrollment volume per course.
type CoursePopularity struct {
	CourseID    string `db:"course_id" json:"course_id"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Enrollments int    `db:"enrollments" json:"enrollments"`
}

// TopCourses returns the most enrolled courses.
func (r *DashboardRepository) TopCourses(ctx context.Context, limit int) ([]CoursePopularity, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT c.id AS course_id, c.title AS course_title, COUNT(e.id) AS enrollments
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id AND e.status IN ('APPROVED', 'COMPLETED')
        GROUP BY c.id, c.title ORDER BY enrollments DESC LIMIT %d`, limit)
	var courses []CoursePopularity
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("query top courses: %w", err)
	}
	return courses, nil
}
