package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/learnsphere/academy-api/internal/models"
)

// BatchRepository handles persistence of course batches. Seat accounting is
// done with conditional updates so concurrent enrollments cannot oversell
// a batch.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches filtered by the provided criteria.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error) {
	base := `FROM batches b
LEFT JOIN courses c ON c.id = b.course_id
LEFT JOIN users m ON m.id = b.mentor_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("b.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("b.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date": "b.start_date",
		"name":       "b.name",
		"created_at": "b.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "b.start_date"
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

	query := fmt.Sprintf(`SELECT b.id, b.course_id, b.name, b.start_date, b.end_date, b.price, b.status,
        b.current_students, b.max_students, b.mentor_id, b.created_at, b.updated_at,
        c.title AS course_title, m.full_name AS mentor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var batches []models.BatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}
	return batches, total, nil
}

// FindByID returns a batch by its ID.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	const query = `SELECT id, course_id, name, start_date, end_date, price, status, current_students, max_students, mentor_id, created_at, updated_at
        FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindDetailByID returns a batch with joined course and mentor info.
func (r *BatchRepository) FindDetailByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	const query = `SELECT b.id, b.course_id, b.name, b.start_date, b.end_date, b.price, b.status,
        b.current_students, b.max_students, b.mentor_id, b.created_at, b.updated_at,
        c.title AS course_title, m.full_name AS mentor_name
        FROM batches b
        LEFT JOIN courses c ON c.id = b.course_id
        LEFT JOIN users m ON m.id = b.mentor_id
        WHERE b.id = $1`
	var detail models.BatchDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsName reports whether a batch name is taken within a course.
func (r *BatchRepository) ExistsName(ctx context.Context, courseID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM batches WHERE course_id = $1 AND name = $2`
	args := []interface{}{courseID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check batch name: %w", err)
	}
	return true, nil
}

// Create persists a new batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchStatusDraft
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	const query = `INSERT INTO batches (id, course_id, name, start_date, end_date, price, status, current_students, max_students, mentor_id, created_at, updated_at)
        VALUES (:id, :course_id, :name, :start_date, :end_date, :price, :status, :current_students, :max_students, :mentor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update persists mutable batch fields. Seat counters are managed only by
// ClaimSeat and ReleaseSeat.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, start_date = :start_date, end_date = :end_date, price = :price,
        status = :status, max_students = :max_students, mentor_id = :mentor_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// ClaimSeat atomically takes one seat in the batch. Returns false when the
// batch is already full; the conditional update is the admission check.
func (r *BatchRepository) ClaimSeat(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE batches SET current_students = current_students + 1, updated_at = NOW()
        WHERE id = $1 AND current_students < max_students`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("claim batch seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim batch seat: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSeat atomically returns one seat to the batch, never below zero.
func (r *BatchRepository) ReleaseSeat(ctx context.Context, id string) error {
	const query = `UPDATE batches SET current_students = current_students - 1, updated_at = NOW()
        WHERE id = $1 AND current_students > 0`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("release batch seat: %w", err)
	}
	return nil
}

// UpdateStatus transitions the batch lifecycle status.
func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status models.BatchStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE batches SET status = $2, updated_at = NOW() WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return nil
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}
