package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gem-registry/gem-registry/internal/telemetry"
)

// Metrics records two Prometheus series for every request that passes through
// the router:
//
//	http_requests_total{method, path, status}    — CounterVec
//	http_request_duration_seconds{method, path}  — HistogramVec
//
// The path label is set from c.FullPath(), the matched route template (e.g.
// /gems/:id) rather than the raw URL. Requests that match no registered route
// use the literal "<no-route>" so unhandled paths do not inflate label
// cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
