package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"go.uber.org/zap"
)

// AccessLog writes one line per request. 5xx log at error, 4xx at warn.
// Request and trace ids come from the request context.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		logAt := log.InfoContext
		if status >= 500 {
			logAt = log.ErrorContext
		} else if status >= 400 {
			logAt = log.WarnContext
		}
		logAt(c.Request.Context(), "http request", fields...)
	}
}
