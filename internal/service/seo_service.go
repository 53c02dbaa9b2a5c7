package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type seoRepository interface {
	List(ctx context.Context) ([]models.PageSEO, error)
	FindByPath(ctx context.Context, path string) (*models.PageSEO, error)
	Upsert(ctx context.Context, entry *models.PageSEO) error
	Delete(ctx context.Context, path string) error
}

// UpsertSEORequest sets SEO metadata for a page path.
type UpsertSEORequest struct {
	Path            string `json:"path" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Keywords        string `json:"keywords"`
	OGTitle         string `json:"og_title"`
	OGDescription   string `json:"og_description"`
	OGImageURL      string `json:"og_image_url"`
	CanonicalURL    string `json:"canonical_url"`
	RobotsDirective string `json:"robots_directive"`
}

// SEOService manages per-path SEO metadata for marketing.
type SEOService struct {
	repo      seoRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSEOService constructs the SEO service.
func NewSEOService(repo seoRepository, validate *validator.Validate, logger *zap.Logger) *SEOService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SEOService{repo: repo, validator: validate, logger: logger}
}

// List returns all SEO entries.
func (s *SEOService) List(ctx context.Context) ([]models.PageSEO, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list seo entries")
	}
	return entries, nil
}

// Get returns the SEO entry for a path.
func (s *SEOService) Get(ctx context.Context, path string) (*models.PageSEO, error) {
	entry, err := s.repo.FindByPath(ctx, normalisePath(path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no seo entry for path")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seo entry")
	}
	return entry, nil
}

// Upsert creates or replaces the SEO entry for a path.
func (s *SEOService) Upsert(ctx context.Context, req UpsertSEORequest) (*models.PageSEO, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seo payload")
	}

	entry := &models.PageSEO{
		Path:            normalisePath(req.Path),
		Title:           req.Title,
		Description:     req.Description,
		Keywords:        req.Keywords,
		OGTitle:         req.OGTitle,
		OGDescription:   req.OGDescription,
		OGImageURL:      req.OGImageURL,
		CanonicalURL:    req.CanonicalURL,
		RobotsDirective: req.RobotsDirective,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save seo entry")
	}
	return entry, nil
}

// Delete removes the SEO entry for a path.
func (s *SEOService) Delete(ctx context.Context, path string) error {
	if err := s.repo.Delete(ctx, normalisePath(path)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete seo entry")
	}
	return nil
}

func normalisePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
