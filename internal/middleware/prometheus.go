package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/metrics"
)

// PrometheusMiddleware records HTTP request duration and count, and counts
// error responses by their envelope code.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath() // route pattern, not actual path (avoids cardinality explosion)
		if path == "" {
			path = "unknown"
		}
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if code := c.GetString(httputil.ErrorCodeKey); code != "" {
			metrics.ErrorsTotal.WithLabelValues(code).Inc()
		}
	}
}
