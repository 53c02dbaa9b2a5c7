package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/learnsphere/academy-api/internal/models"
)

// SEORepository handles per-path SEO metadata persistence.
type SEORepository struct {
	db *sqlx.DB
}

// NewSEORepository constructs the repository.
func NewSEORepository(db *sqlx.DB) *SEORepository {
	return &SEORepository{db: db}
}

// List returns all SEO entries ordered by path.
func (r *SEORepository) List(ctx context.Context) ([]models.PageSEO, error) {
	const query = `SELECT id, path, title, description, keywords, og_title, og_description, og_image_url,
        canonical_url, robots_directive, created_at, updated_at FROM page_seo ORDER BY path ASC`
	var entries []models.PageSEO
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list seo entries: %w", err)
	}
	return entries, nil
}

// FindByPath returns the SEO entry for a page path.
func (r *SEORepository) FindByPath(ctx context.Context, path string) (*models.PageSEO, error) {
	const query = `SELECT id, path, title, description, keywords, og_title, og_description, og_image_url,
        canonical_url, robots_directive, created_at, updated_at FROM page_seo WHERE path = $1`
	var entry models.PageSEO
	if err := r.db.GetContext(ctx, &entry, query, path); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert creates or replaces the SEO entry for a path.
func (r *SEORepository) Upsert(ctx context.Context, entry *models.PageSEO) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	const query = `INSERT INTO page_seo (id, path, title, description, keywords, og_title, og_description,
        og_image_url, canonical_url, robots_directive, created_at, updated_at)
        VALUES (:id, :path, :title, :description, :keywords, :og_title, :og_description,
        :og_image_url, :canonical_url, :robots_directive, :created_at, :updated_at)
        ON CONFLICT (path) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description,
        keywords = EXCLUDED.keywords, og_title = EXCLUDED.og_title, og_description = EXCLUDED.og_description,
        og_image_url = EXCLUDED.og_image_url, canonical_url = EXCLUDED.canonical_url,
        robots_directive = EXCLUDED.robots_directive, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert seo entry: %w", err)
	}
	return nil
}

// Delete removes the SEO entry for a path.
func (r *SEORepository) Delete(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM page_seo WHERE path = $1`, path); err != nil {
		return fmt.Errorf("delete seo entry: %w", err)
	}
	return nil
}
