package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fyp-portal-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request latency keyed by the matched route template, so
// /advisors/:id/workload stays one series no matter how many advisors exist.
// Requests that hit no route share a single label instead of the raw path,
// and scrapes listed in skip are not recorded at all.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
