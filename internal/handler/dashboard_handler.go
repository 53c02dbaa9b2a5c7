package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
	"github.com/learnsphere/academy-api/pkg/response"
)

// DashboardHandler exposes admin dashboard aggregates.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats godoc
// @Summary Headline dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, cached, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cached": cached})
}

// EnrollmentTrends godoc
// @Summary Monthly enrollment counts
// @Tags Dashboard
// @Produce json
// @Param months query int false "Trailing months (default 6)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/trends [get]
func (h *DashboardHandler) EnrollmentTrends(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))

	trends, cached, err := h.dashboard.EnrollmentTrends(c.Request.Context(), months)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trends, nil, map[string]interface{}{"cached": cached})
}

// TopCourses godoc
// @Summary Most enrolled courses
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Result limit (default 5)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/top-courses [get]
func (h *DashboardHandler) TopCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	courses, cached, err := h.dashboard.TopCourses(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"cached": cached})
}

// SystemMetrics godoc
// @Summary Runtime metrics snapshot
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/system [get]
func (h *DashboardHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.dashboard.SystemMetrics(), nil)
}
