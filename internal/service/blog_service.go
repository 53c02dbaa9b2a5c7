package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type blogRepository interface {
	List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error)
	FindByID(ctx context.Context, id string) (*models.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	ExistsSlug(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id string) error
}

// UpsertBlogPostRequest holds payload for creating or updating a post.
type UpsertBlogPostRequest struct {
	Title           string            `json:"title" validate:"required"`
	Slug            string            `json:"slug"`
	Excerpt         string            `json:"excerpt"`
	Body            string            `json:"body" validate:"required"`
	Tags            string            `json:"tags"`
	Status          models.BlogStatus `json:"status"`
	MetaTitle       string            `json:"meta_title"`
	MetaDescription string            `json:"meta_description"`
}

// BlogService handles editorial content.
type BlogService struct {
	repo      blogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlogService constructs the blog service.
func NewBlogService(repo blogRepository, validate *validator.Validate, logger *zap.Logger) *BlogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogService{repo: repo, validator: validate, logger: logger}
}

// List returns posts and pagination metadata. Public callers only see
// published posts; the handler pins the status filter.
func (s *BlogService) List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, *models.Pagination, error) {
	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blog posts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return posts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a post by ID.
func (s *BlogService) Get(ctx context.Context, id string) (*models.BlogPost, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blog post")
	}
	return post, nil
}

// GetPublishedBySlug returns a published post by slug for public pages.
func (s *BlogService) GetPublishedBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blog post")
	}
	if post.Status != models.BlogStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
	}
	return post, nil
}

// Create registers a new post, stamping published_at on publication.
func (s *BlogService) Create(ctx context.Context, authorID string, req UpsertBlogPostRequest) (*models.BlogPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blog payload")
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}
	exists, err := s.repo.ExistsSlug(ctx, slug, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slug already used")
	}

	status := req.Status
	if status == "" {
		status = models.BlogStatusDraft
	}
	post := &models.BlogPost{
		Title:           req.Title,
		Slug:            slug,
		Excerpt:         req.Excerpt,
		Body:            req.Body,
		Tags:            req.Tags,
		AuthorID:        authorID,
		Status:          status,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
	}
	if status == models.BlogStatusPublished {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blog post")
	}
	return post, nil
}

// Update modifies an existing post, stamping published_at on the first
// transition to PUBLISHED.
func (s *BlogService) Update(ctx context.Context, id string, req UpsertBlogPostRequest) (*models.BlogPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blog payload")
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blog post")
	}

	slug := req.Slug
	if slug == "" {
		slug = post.Slug
	}
	exists, err := s.repo.ExistsSlug(ctx, slug, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate slug")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slug already used")
	}

	status := req.Status
	if status == "" {
		status = post.Status
	}
	if status == models.BlogStatusPublished && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	post.Title = req.Title
	post.Slug = slug
	post.Excerpt = req.Excerpt
	post.Body = req.Body
	post.Tags = req.Tags
	post.Status = status
	post.MetaTitle = req.MetaTitle
	post.MetaDescription = req.MetaDescription
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blog post")
	}
	return post, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blog post")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blog post")
	}
	return nil
}
