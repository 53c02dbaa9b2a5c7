package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/service"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/response"
)

// PromoHandler exposes promo code endpoints.
type PromoHandler struct {
	promos *service.PromoService
}

// NewPromoHandler constructs PromoHandler.
func NewPromoHandler(promos *service.PromoService) *PromoHandler {
	return &PromoHandler{promos: promos}
}

// List godoc
// @Summary List promo codes
// @Tags Promos
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search by code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /promos [get]
func (h *PromoHandler) List(c *gin.Context) {
	var filter models.PromoCodeFilter
	if raw, ok := c.GetQuery("active"); ok {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	promos, pagination, err := h.promos.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promos, pagination)
}

// Get godoc
// @Summary Get promo code by ID
// @Tags Promos
// @Produce json
// @Param id path string true "Promo ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /promos/{id} [get]
func (h *PromoHandler) Get(c *gin.Context) {
	promo, err := h.promos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promo, nil)
}

// Create godoc
// @Summary Create promo code
// @Tags Promos
// @Accept json
// @Produce json
// @Param payload body service.UpsertPromoRequest true "Promo payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /promos [post]
func (h *PromoHandler) Create(c *gin.Context) {
	var req service.UpsertPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	promo, err := h.promos.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, promo)
}

// Update godoc
// @Summary Update promo code
// @Tags Promos
// @Accept json
// @Produce json
// @Param id path string true "Promo ID"
// @Param payload body service.UpsertPromoRequest true "Promo payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /promos/{id} [put]
func (h *PromoHandler) Update(c *gin.Context) {
	var req service.UpsertPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	promo, err := h.promos.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promo, nil)
}

// Delete godoc
// @Summary Delete promo code
// @Tags Promos
// @Produce json
// @Param id path string true "Promo ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /promos/{id} [delete]
func (h *PromoHandler) Delete(c *gin.Context) {
	if err := h.promos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Quote godoc
// @Summary Preview the discount for a promo code
// @Description Computes the discount without claiming usage
// @Tags Promos
// @Accept json
// @Produce json
// @Param payload body service.PromoQuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /promos/quote [post]
func (h *PromoHandler) Quote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PromoQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	quote, err := h.promos.Quote(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}
