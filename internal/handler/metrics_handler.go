package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
)

// MetricsHandler serves the Prometheus scrape endpoint and the health
// probe. Both sit outside the versioned API surface.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus delegates to the promhttp handler backed by the service's
// registry. Without a metrics service the endpoint answers 503.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is the readiness/liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
