package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/response"
)

// SEOHandler exposes per-page SEO metadata endpoints.
type SEOHandler struct {
	seo *service.SEOService
}

// NewSEOHandler constructs SEOHandler.
func NewSEOHandler(seo *service.SEOService) *SEOHandler {
	return &SEOHandler{seo: seo}
}

// List godoc
// @Summary List SEO entries
// @Tags SEO
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /seo [get]
func (h *SEOHandler) List(c *gin.Context) {
	entries, err := h.seo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Get godoc
// @Summary Get SEO metadata for a page path
// @Tags SEO
// @Produce json
// @Param path query string true "Page path"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seo/lookup [get]
func (h *SEOHandler) Get(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path query parameter required"))
		return
	}
	entry, err := h.seo.Get(c.Request.Context(), path)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Upsert godoc
// @Summary Create or replace SEO metadata for a page
// @Tags SEO
// @Accept json
// @Produce json
// @Param payload body service.UpsertSEORequest true "SEO payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /seo [put]
func (h *SEOHandler) Upsert(c *gin.Context) {
	var req service.UpsertSEORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.seo.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete SEO metadata for a page
// @Tags SEO
// @Produce json
// @Param path query string true "Page path"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /seo [delete]
func (h *SEOHandler) Delete(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path query parameter required"))
		return
	}
	if err := h.seo.Delete(c.Request.Context(), path); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
