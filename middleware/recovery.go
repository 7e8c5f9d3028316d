package middleware

import (
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 carrying the trace id. When the
// client has already gone away (broken pipe, reset) nothing is written and the
// panic is logged without a stack.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			fields := []zap.Field{
				zap.Any("error", r),
				zap.String("trace_id", GetTraceID(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			}
			if sub := GetSubject(c); sub != "" {
				fields = append(fields, zap.String("subject", sub))
			}
			if err, ok := r.(error); ok && brokenConn(err) {
				log.Warn("client connection lost", fields...)
				c.Abort()
				return
			}
			log.Error("panic recovered", append(fields, zap.Stack("stack"))...)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal server error",
				"trace_id": GetTraceID(c),
			})
		}()
		c.Next()
	}
}

func brokenConn(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) &&
		(errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET))
}
