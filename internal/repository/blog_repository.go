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

// BlogRepository handles blog post persistence.
type BlogRepository struct {
	db *sqlx.DB
}

// NewBlogRepository constructs the repository.
func NewBlogRepository(db *sqlx.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

// List returns blog posts filtered by the provided criteria.
func (r *BlogRepository) List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("tags ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Tag+"%")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR excerpt ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":        "title",
		"created_at":   "created_at",
		"published_at": "published_at",
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

	query := fmt.Sprintf(`SELECT id, title, slug, excerpt, body, tags, author_id, status, meta_title,
        meta_description, published_at, created_at, updated_at
        FROM blog_posts%s ORDER BY %s %s LIMIT %d OFFSET %d`, clause, orderBy, order, size, offset)

	var posts []models.BlogPost
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM blog_posts"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}
	return posts, total, nil
}

// FindByID returns a blog post by its ID.
func (r *BlogRepository) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	const query = `SELECT id, title, slug, excerpt, body, tags, author_id, status, meta_title,
        meta_description, published_at, created_at, updated_at FROM blog_posts WHERE id = $1`
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// FindBySlug returns a blog post by its slug.
func (r *BlogRepository) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	const query = `SELECT id, title, slug, excerpt, body, tags, author_id, status, meta_title,
        meta_description, published_at, created_at, updated_at FROM blog_posts WHERE slug = $1`
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, slug); err != nil {
		return nil, err
	}
	return &post, nil
}

// ExistsSlug reports whether a slug is already taken by another post.
func (r *BlogRepository) ExistsSlug(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND id <> $2)`, slug, excludeID)
	if err != nil {
		return false, fmt.Errorf("check blog slug exists: %w", err)
	}
	return exists, nil
}

// Create persists a new blog post.
func (r *BlogRepository) Create(ctx context.Context, post *models.BlogPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Status == "" {
		post.Status = models.BlogStatusDraft
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	const query = `INSERT INTO blog_posts (id, title, slug, excerpt, body, tags, author_id, status, meta_title,
        meta_description, published_at, created_at, updated_at)
        VALUES (:id, :title, :slug, :excerpt, :body, :tags, :author_id, :status, :meta_title,
        :meta_description, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create blog post: %w", err)
	}
	return nil
}

// Update persists changes to a blog post.
func (r *BlogRepository) Update(ctx context.Context, post *models.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blog_posts SET title = :title, slug = :slug, excerpt = :excerpt, body = :body,
        tags = :tags, status = :status, meta_title = :meta_title, meta_description = :meta_description,
        published_at = :published_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	return nil
}

// Delete removes a blog post.
func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blog post: %w", err)
	}
	return nil
}
