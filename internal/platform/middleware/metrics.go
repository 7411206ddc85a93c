package middleware

import (
	"strconv"
	"time"

	"dm-gateway/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware 記錄 Prometheus HTTP 指標
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// 使用路由模板而非原始路徑，避免指標基數爆炸
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
