package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/service"
)

// Metrics records method, route, status and latency for every handled
// request. A nil service disables collection entirely.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// prefer the route template so path params don't explode label cardinality
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
