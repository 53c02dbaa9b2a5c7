package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/academy-api/internal/models"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
)

type promoAdminRepoStub struct {
	promos      map[string]*models.PromoCode
	redemptions map[string]int
	seq         int
}

func newPromoAdminRepoStub() *promoAdminRepoStub {
	return &promoAdminRepoStub{
		promos:      make(map[string]*models.PromoCode),
		redemptions: make(map[string]int),
	}
}

func (r *promoAdminRepoStub) List(ctx context.Context, filter models.PromoCodeFilter) ([]models.PromoCode, int, error) {
	result := make([]models.PromoCode, 0, len(r.promos))
	for _, p := range r.promos {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (r *promoAdminRepoStub) FindByID(ctx context.Context, id string) (*models.PromoCode, error) {
	if p, ok := r.promos[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *promoAdminRepoStub) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	for _, p := range r.promos {
		if strings.EqualFold(p.Code, code) {
			copy := *p
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *promoAdminRepoStub) ExistsCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, p := range r.promos {
		if p.ID != excludeID && strings.EqualFold(p.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (r *promoAdminRepoStub) Create(ctx context.Context, promo *models.PromoCode) error {
	r.seq++
	if promo.ID == "" {
		promo.ID = strings.ToLower(promo.Code)
	}
	stored := *promo
	r.promos[promo.ID] = &stored
	return nil
}

func (r *promoAdminRepoStub) Update(ctx context.Context, promo *models.PromoCode) error {
	if _, ok := r.promos[promo.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *promo
	r.promos[promo.ID] = &stored
	return nil
}

func (r *promoAdminRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.promos[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.promos, id)
	return nil
}

func (r *promoAdminRepoStub) CountRedemptionsByUser(ctx context.Context, promoID, userID string) (int, error) {
	return r.redemptions[promoID+"/"+userID], nil
}

func validPromoWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.Add(24 * time.Hour)
}

func TestPromoCreateNormalisesCode(t *testing.T) {
	repo := newPromoAdminRepoStub()
	svc := NewPromoService(repo, nil, nil)
	from, until := validPromoWindow()

	promo, err := svc.Create(context.Background(), UpsertPromoRequest{
		Code:         "  launch20 ",
		DiscountType: models.PromoDiscountPercentage,
		Value:        20,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH20", promo.Code)
}

func TestPromoCreateDuplicateCode(t *testing.T) {
	repo := newPromoAdminRepoStub()
	repo.promos["p1"] = &models.PromoCode{ID: "p1", Code: "LAUNCH20"}
	svc := NewPromoService(repo, nil, nil)
	from, until := validPromoWindow()

	_, err := svc.Create(context.Background(), UpsertPromoRequest{
		Code:         "launch20",
		DiscountType: models.PromoDiscountFixed,
		Value:        5000,
		ValidFrom:    from,
		ValidUntil:   until,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPromoCreatePercentageOverHundred(t *testing.T) {
	repo := newPromoAdminRepoStub()
	svc := NewPromoService(repo, nil, nil)
	from, until := validPromoWindow()

	_, err := svc.Create(context.Background(), UpsertPromoRequest{
		Code:         "TOOMUCH",
		DiscountType: models.PromoDiscountPercentage,
		Value:        150,
		ValidFrom:    from,
		ValidUntil:   until,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPromoCreateInvertedWindow(t *testing.T) {
	repo := newPromoAdminRepoStub()
	svc := NewPromoService(repo, nil, nil)
	from, until := validPromoWindow()

	_, err := svc.Create(context.Background(), UpsertPromoRequest{
		Code:         "BACKWARDS",
		DiscountType: models.PromoDiscountFixed,
		Value:        5000,
		ValidFrom:    until,
		ValidUntil:   from,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPromoUpdatePreservesUsedCount(t *testing.T) {
	repo := newPromoAdminRepoStub()
	from, until := validPromoWindow()
	repo.promos["p1"] = &models.PromoCode{
		ID:           "p1",
		Code:         "LAUNCH20",
		DiscountType: models.PromoDiscountPercentage,
		Value:        20,
		UsedCount:    7,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	}
	svc := NewPromoService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), "p1", UpsertPromoRequest{
		Code:         "LAUNCH25",
		DiscountType: models.PromoDiscountPercentage,
		Value:        25,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.UsedCount)
	assert.Equal(t, int64(25), updated.Value)
}

func TestPromoQuotePercentage(t *testing.T) {
	repo := newPromoAdminRepoStub()
	from, until := validPromoWindow()
	repo.promos["p1"] = &models.PromoCode{
		ID:           "p1",
		Code:         "LAUNCH20",
		DiscountType: models.PromoDiscountPercentage,
		Value:        20,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	}
	svc := NewPromoService(repo, nil, nil)

	quote, err := svc.Quote(context.Background(), "student-1", PromoQuoteRequest{Code: "launch20", Amount: 100000})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), quote.DiscountAmount)
	assert.Equal(t, int64(80000), quote.FinalAmount)
	// A quote never claims a use.
	assert.Equal(t, 0, repo.promos["p1"].UsedCount)
}

func TestPromoQuoteBelowMinimum(t *testing.T) {
	repo := newPromoAdminRepoStub()
	from, until := validPromoWindow()
	repo.promos["p1"] = &models.PromoCode{
		ID:           "p1",
		Code:         "BIGSPEND",
		DiscountType: models.PromoDiscountFixed,
		Value:        10000,
		MinAmount:    50000,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	}
	svc := NewPromoService(repo, nil, nil)

	_, err := svc.Quote(context.Background(), "student-1", PromoQuoteRequest{Code: "BIGSPEND", Amount: 40000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPromo.Code, appErrors.FromError(err).Code)
}

func TestPromoQuotePerUserLimit(t *testing.T) {
	repo := newPromoAdminRepoStub()
	from, until := validPromoWindow()
	repo.promos["p1"] = &models.PromoCode{
		ID:           "p1",
		Code:         "ONCE",
		DiscountType: models.PromoDiscountFixed,
		Value:        5000,
		PerUserLimit: 1,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       true,
	}
	repo.redemptions["p1/student-1"] = 1
	svc := NewPromoService(repo, nil, nil)

	_, err := svc.Quote(context.Background(), "student-1", PromoQuoteRequest{Code: "ONCE", Amount: 100000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPromo.Code, appErrors.FromError(err).Code)

	quote, err := svc.Quote(context.Background(), "student-2", PromoQuoteRequest{Code: "ONCE", Amount: 100000})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), quote.DiscountAmount)
}

func TestPromoQuoteInactive(t *testing.T) {
	repo := newPromoAdminRepoStub()
	from, until := validPromoWindow()
	repo.promos["p1"] = &models.PromoCode{
		ID:           "p1",
		Code:         "PAUSED",
		DiscountType: models.PromoDiscountFixed,
		Value:        5000,
		ValidFrom:    from,
		ValidUntil:   until,
		Active:       false,
	}
	svc := NewPromoService(repo, nil, nil)

	_, err := svc.Quote(context.Background(), "student-1", PromoQuoteRequest{Code: "PAUSED", Amount: 100000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPromo.Code, appErrors.FromError(err).Code)
}
