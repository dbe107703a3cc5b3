package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signet-id/signet/internal/service"
)

// Metrics returns middleware that captures request metrics using the
// provided instrumentation.
func Metrics(m *service.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
