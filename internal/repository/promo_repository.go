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

// PromoRepository handles promo code persistence and redemption counting.
type PromoRepository struct {
	db *sqlx.DB
}

// NewPromoRepository constructs the repository.
func NewPromoRepository(db *sqlx.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

// List returns promo codes filtered by the provided criteria.
func (r *PromoRepository) List(ctx context.Context, filter models.PromoCodeFilter) ([]models.PromoCode, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("code ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":        "code",
		"created_at":  "created_at",
		"valid_until": "valid_until",
		"used_count":  "used_count",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf(`SELECT id, code, discount_type, value, min_amount, max_uses, used_count, per_user_limit,
        valid_from, valid_until, active, created_at, updated_at
        FROM promo_codes%s ORDER BY %s %s LIMIT %d OFFSET %d`, clause, orderBy, order, size, offset)

	var codes []models.PromoCode
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promo codes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM promo_codes"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count promo codes: %w", err)
	}
	return codes, total, nil
}

// FindByID returns a promo code by its ID.
func (r *PromoRepository) FindByID(ctx context.Context, id string) (*models.PromoCode, error) {
	const query = `SELECT id, code, discount_type, value, min_amount, max_uses, used_count, per_user_limit,
        valid_from, valid_until, active, created_at, updated_at FROM promo_codes WHERE id = $1`
	var promo models.PromoCode
	if err := r.db.GetContext(ctx, &promo, query, id); err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindByCode returns a promo code by its code, case-insensitively.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const query = `SELECT id, code, discount_type, value, min_amount, max_uses, used_count, per_user_limit,
        valid_from, valid_until, active, created_at, updated_at FROM promo_codes WHERE UPPER(code) = UPPER($1)`
	var promo models.PromoCode
	if err := r.db.GetContext(ctx, &promo, query, code); err != nil {
		return nil, err
	}
	return &promo, nil
}

// ExistsCode reports whether a promo code string is already taken.
func (r *PromoRepository) ExistsCode(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM promo_codes WHERE UPPER(code) = UPPER($1) AND id <> $2)`, code, excludeID)
	if err != nil {
		return false, fmt.Errorf("check promo code exists: %w", err)
	}
	return exists, nil
}

// Create persists a new promo code.
func (r *PromoRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	if promo.ID == "" {
		promo.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	promo.CreatedAt = now
	promo.UpdatedAt = now
	const query = `INSERT INTO promo_codes (id, code, discount_type, value, min_amount, max_uses, used_count,
        per_user_limit, valid_from, valid_until, active, created_at, updated_at)
        VALUES (:id, :code, :discount_type, :value, :min_amount, :max_uses, :used_count,
        :per_user_limit, :valid_from, :valid_until, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, promo); err != nil {
		return fmt.Errorf("create promo code: %w", err)
	}
	return nil
}

// Update persists changes to a promo code.
func (r *PromoRepository) Update(ctx context.Context, promo *models.PromoCode) error {
	promo.UpdatedAt = time.Now().UTC()
	const query = `UPDATE promo_codes SET code = :code, discount_type = :discount_type, value = :value,
        min_amount = :min_amount, max_uses = :max_uses, per_user_limit = :per_user_limit,
        valid_from = :valid_from, valid_until = :valid_until, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, promo); err != nil {
		return fmt.Errorf("update promo code: %w", err)
	}
	return nil
}

// Delete removes a promo code.
func (r *PromoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete promo code: %w", err)
	}
	return nil
}

// IncrementUsage claims one use of the code. The conditional update keeps
// the counter under max_uses even under concurrent redemptions; a zero
// max_uses means unlimited. Returns false when the code is exhausted.
func (r *PromoRepository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE promo_codes SET used_count = used_count + 1, updated_at = NOW()
        WHERE id = $1 AND (max_uses = 0 OR used_count < max_uses)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment promo usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment promo usage: %w", err)
	}
	return affected > 0, nil
}

// ReleaseUsage returns one use to the code, e.g. when an invoice is cancelled.
func (r *PromoRepository) ReleaseUsage(ctx context.Context, id string) error {
	const query = `UPDATE promo_codes SET used_count = used_count - 1, updated_at = NOW()
        WHERE id = $1 AND used_count > 0`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("release promo usage: %w", err)
	}
	return nil
}

// CreateRedemption records a redemption of the code by a user.
func (r *PromoRepository) CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error {
	if redemption.ID == "" {
		redemption.ID = uuid.NewString()
	}
	if redemption.CreatedAt.IsZero() {
		redemption.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO promo_redemptions (id, promo_code_id, user_id, invoice_id, created_at)
        VALUES (:id, :promo_code_id, :user_id, :invoice_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, redemption); err != nil {
		return fmt.Errorf("create promo redemption: %w", err)
	}
	return nil
}

// CountRedemptionsByUser returns how many times a user redeemed a code.
func (r *PromoRepository) CountRedemptionsByUser(ctx context.Context, promoID, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM promo_redemptions WHERE promo_code_id = $1 AND user_id = $2`, promoID, userID)
	if err != nil {
		return 0, fmt.Errorf("count promo redemptions: %w", err)
	}
	return count, nil
}
