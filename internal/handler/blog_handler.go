package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/models"
	"github.com/learnsphere/academy-api/internal/service"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/response"
)

// BlogHandler exposes blog post endpoints.
type BlogHandler struct {
	blog *service.BlogService
}

// NewBlogHandler constructs BlogHandler.
func NewBlogHandler(blog *service.BlogService) *BlogHandler {
	return &BlogHandler{blog: blog}
}

// List godoc
// @Summary List blog posts
// @Tags Blog
// @Produce json
// @Param status query string false "Filter by status (staff only)"
// @Param tag query string false "Filter by tag"
// @Param search query string false "Search in title and body"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blog [get]
func (h *BlogHandler) List(c *gin.Context) {
	var filter models.BlogFilter
	filter.Tag = c.Query("tag")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	claims := claimsFromContext(c)
	staff := claims != nil && claims.Role != models.RoleStudent
	if staff {
		filter.Status = models.BlogStatus(strings.ToUpper(c.Query("status")))
	} else {
		filter.Status = models.BlogStatusPublished
	}

	posts, pagination, err := h.blog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// Get godoc
// @Summary Get blog post by ID
// @Tags Blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/{id} [get]
func (h *BlogHandler) Get(c *gin.Context) {
	post, err := h.blog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// GetBySlug godoc
// @Summary Get published blog post by slug
// @Tags Blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/slug/{slug} [get]
func (h *BlogHandler) GetBySlug(c *gin.Context) {
	post, err := h.blog.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Create godoc
// @Summary Create blog post
// @Tags Blog
// @Accept json
// @Produce json
// @Param payload body service.UpsertBlogPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blog [post]
func (h *BlogHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	post, err := h.blog.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Update godoc
// @Summary Update blog post
// @Tags Blog
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.UpsertBlogPostRequest true "Post payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/{id} [put]
func (h *BlogHandler) Update(c *gin.Context) {
	var req service.UpsertBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	post, err := h.blog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete blog post
// @Tags Blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/{id} [delete]
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.blog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
