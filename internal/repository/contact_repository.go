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

// ContactRepository handles inbound contact message persistence.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs the repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns contact messages, optionally filtered by status, newest first.
func (r *ContactRepository) List(ctx context.Context, status models.ContactStatus, page, pageSize int) ([]models.ContactMessage, int, error) {
	var conditions []string
	var args []interface{}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, name, email, subject, message, status, created_at, updated_at
        FROM contact_messages%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, clause, pageSize, offset)

	var messages []models.ContactMessage
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM contact_messages"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count contact messages: %w", err)
	}
	return messages, total, nil
}

// FindByID returns a contact message by its ID.
func (r *ContactRepository) FindByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	const query = `SELECT id, name, email, subject, message, status, created_at, updated_at
        FROM contact_messages WHERE id = $1`
	var message models.ContactMessage
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, err
	}
	return &message, nil
}

// Create persists a new contact message with NEW status.
func (r *ContactRepository) Create(ctx context.Context, message *models.ContactMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Status == "" {
		message.Status = models.ContactStatusNew
	}
	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now
	const query = `INSERT INTO contact_messages (id, name, email, subject, message, status, created_at, updated_at)
        VALUES (:id, :name, :email, :subject, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

// UpdateStatus transitions the handling status of a message.
func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error {
	const query = `UPDATE contact_messages SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update contact message status: %w", err)
	}
	return nil
}

// Delete removes a contact message.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	return nil
}
