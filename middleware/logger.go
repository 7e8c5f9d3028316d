package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger returns a Gin middleware that logs each request with zap. Server
// errors are logged at error level, client errors at warn. Paths in skip are
// not logged.
func Logger(log *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := skipped[c.FullPath()]; ok {
			return
		}
		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("trace_id", GetTraceID(c)),
			zap.String("client_ip", c.ClientIP()),
		}
		if sub := GetSubject(c); sub != "" {
			fields = append(fields, zap.String("subject", sub))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		log.Log(level, "http", fields...)
	}
}
