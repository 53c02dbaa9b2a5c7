package models

import "time"

// DashboardStats aggregates headline numbers for the admin dashboard.
type DashboardStats struct {
	ActiveStudents     int       `db:"active_students" json:"active_students"`
	PublishedCourses   int       `db:"published_courses" json:"published_courses"`
	OpenBatches        int       `db:"open_batches" json:"open_batches"`
	PendingEnrollments int       `db:"pending_enrollments" json:"pending_enrollments"`
	PendingPayments    int       `db:"pending_payments" json:"pending_payments"`
	RevenueCollected   int64     `db:"revenue_collected" json:"revenue_collected"`
	RevenueOutstanding int64     `db:"revenue_outstanding" json:"revenue_outstanding"`
	GeneratedAt        time.Time `db:"-" json:"generated_at"`
}

// SystemMetrics is a lightweight runtime snapshot for ops endpoints.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
