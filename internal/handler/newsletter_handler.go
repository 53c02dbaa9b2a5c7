package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
	appErrors "github.com/learnsphere/academy-api/pkg/errors"
	"github.com/learnsphere/academy-api/pkg/response"
)

// NewsletterHandler exposes newsletter endpoints.
type NewsletterHandler struct {
	newsletter *service.NewsletterService
}

// NewNewsletterHandler constructs NewsletterHandler.
func NewNewsletterHandler(newsletter *service.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{newsletter: newsletter}
}

// Subscribe godoc
// @Summary Subscribe to the newsletter
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param payload body service.SubscribeRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /newsletter/subscribe [post]
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var req service.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subscriber, err := h.newsletter.Subscribe(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subscriber)
}

// Unsubscribe godoc
// @Summary Unsubscribe from the newsletter
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Email"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /newsletter/unsubscribe [post]
func (h *NewsletterHandler) Unsubscribe(c *gin.Context) {
	var payload struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "valid email required"))
		return
	}
	if err := h.newsletter.Unsubscribe(c.Request.Context(), payload.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListIssues godoc
// @Summary List newsletter issues
// @Tags Newsletter
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /newsletter/issues [get]
func (h *NewsletterHandler) ListIssues(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	issues, pagination, err := h.newsletter.ListIssues(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, pagination)
}

// CreateIssue godoc
// @Summary Create newsletter issue draft
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param payload body service.CreateIssueRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /newsletter/issues [post]
func (h *NewsletterHandler) CreateIssue(c *gin.Context) {
	var req service.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	issue, err := h.newsletter.CreateIssue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, issue)
}

// SendIssue godoc
// @Summary Queue a draft issue for sending
// @Tags Newsletter
// @Produce json
// @Param id path string true "Issue ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /newsletter/issues/{id}/send [post]
func (h *NewsletterHandler) SendIssue(c *gin.Context) {
	issue, err := h.newsletter.SendIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, issue, nil)
}

// SubscriberCount godoc
// @Summary Active subscriber count
// @Tags Newsletter
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /newsletter/subscribers/count [get]
func (h *NewsletterHandler) SubscriberCount(c *gin.Context) {
	count, err := h.newsletter.SubscriberCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subscribers": count}, nil)
}
