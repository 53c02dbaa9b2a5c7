package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type promoRepository interface {
	List(ctx context.Context, filter models.PromoCodeFilter) ([]models.PromoCode, int, error)
	FindByID(ctx context.Context, id string) (*models.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	ExistsCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, promo *models.PromoCode) error
	Update(ctx context.Context, promo *models.PromoCode) error
	Delete(ctx context.Context, id string) error
	CountRedemptionsByUser(ctx context.Context, promoID, userID string) (int, error)
}

// UpsertPromoRequest holds payload for creating or updating a promo code.
type UpsertPromoRequest struct {
	Code         string                   `json:"code" validate:"required"`
	DiscountType models.PromoDiscountType `json:"discount_type" validate:"required"`
	Value        int64                    `json:"value" validate:"required,gt=0"`
	MinAmount    int64                    `json:"min_amount" validate:"gte=0"`
	MaxUses      int                      `json:"max_uses" validate:"gte=0"`
	PerUserLimit int                      `json:"per_user_limit" validate:"gte=0"`
	ValidFrom    time.Time                `json:"valid_from" validate:"required"`
	ValidUntil   time.Time                `json:"valid_until" validate:"required"`
	Active       bool                     `json:"active"`
}

// PromoQuoteRequest asks what a code would discount for an amount.
type PromoQuoteRequest struct {
	Code   string `json:"code" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

// PromoQuote is the preview result for a promo application.
type PromoQuote struct {
	Code           string `json:"code"`
	Amount         int64  `json:"amount"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
}

// PromoService manages promo codes and discount previews.
type PromoService struct {
	repo      promoRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPromoService constructs the promo service.
func NewPromoService(repo promoRepository, validate *validator.Validate, logger *zap.Logger) *PromoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromoService{repo: repo, validator: validate, logger: logger}
}

// List returns promo codes and pagination metadata.
func (s *PromoService) List(ctx context.Context, filter models.PromoCodeFilter) ([]models.PromoCode, *models.Pagination, error) {
	codes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promo codes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return codes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a promo code by ID.
func (s *PromoService) Get(ctx context.Context, id string) (*models.PromoCode, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promo code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promo code")
	}
	return promo, nil
}

// Create registers a new promo code.
func (s *PromoService) Create(ctx context.Context, req UpsertPromoRequest) (*models.PromoCode, error) {
	promo, err := s.buildPromo(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promo code")
	}
	return promo, nil
}

// Update modifies an existing promo code. The used counter is preserved.
func (s *PromoService) Update(ctx context.Context, id string, req UpsertPromoRequest) (*models.PromoCode, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promo code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promo code")
	}

	promo, err := s.buildPromo(ctx, req, id)
	if err != nil {
		return nil, err
	}
	promo.ID = id
	promo.UsedCount = existing.UsedCount
	promo.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update promo code")
	}
	return promo, nil
}

// Delete removes a promo code.
func (s *PromoService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "promo code not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promo code")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete promo code")
	}
	return nil
}

// Quote previews the discount a code would yield for the given amount and
// user without claiming a use.
func (s *PromoService) Quote(ctx context.Context, userID string, req PromoQuoteRequest) (*PromoQuote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quote payload")
	}

	promo, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promo code")
	}

	now := time.Now().UTC()
	if !promo.Active || now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code is not currently valid")
	}
	if promo.MinAmount > 0 && req.Amount < promo.MinAmount {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "order amount below promo minimum")
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code usage limit reached")
	}
	if userID != "" && promo.PerUserLimit > 0 {
		used, err := s.repo.CountRedemptionsByUser(ctx, promo.ID, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count promo redemptions")
		}
		if used >= promo.PerUserLimit {
			return nil, appErrors.Clone(appErrors.ErrInvalidPromo, "promo code already used by this account")
		}
	}

	discount := promo.DiscountFor(req.Amount)
	return &PromoQuote{
		Code:           promo.Code,
		Amount:         req.Amount,
		DiscountAmount: discount,
		FinalAmount:    req.Amount - discount,
	}, nil
}

func (s *PromoService) buildPromo(ctx context.Context, req UpsertPromoRequest, excludeID string) (*models.PromoCode, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promo payload")
	}
	switch req.DiscountType {
	case models.PromoDiscountPercentage:
		if req.Value > 100 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "percentage discount cannot exceed 100")
		}
	case models.PromoDiscountFixed:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown discount type")
	}
	if req.ValidUntil.Before(req.ValidFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "valid_until precedes valid_from")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsCode(ctx, code, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate promo code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "promo code already exists")
	}

	return &models.PromoCode{
		Code:         code,
		DiscountType: req.DiscountType,
		Value:        req.Value,
		MinAmount:    req.MinAmount,
		MaxUses:      req.MaxUses,
		PerUserLimit: req.PerUserLimit,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		Active:       req.Active,
	}, nil
}
