package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-backend/internal/platform/logger"
)

// RequestLog logs one line per request on the shared zap logger.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	requestLog := log.With("middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
