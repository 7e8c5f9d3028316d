package middleware

import (
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"
	// TraceParentHeader is the W3C trace context header some gameplay
	// servers already send.
	TraceParentHeader = "traceparent"
)

// maxTraceIDLen bounds caller-supplied ids; longer ones are replaced.
const maxTraceIDLen = 64

// TraceID tags every request with a trace id, echoed in the X-Trace-ID
// response header. The id is taken from X-Trace-ID, then from the trace-id
// field of a valid traceparent, and generated otherwise.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = fromTraceParent(c.GetHeader(TraceParentHeader))
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// fromTraceParent extracts the 32-hex trace id of a version-00 traceparent
// ("00-<trace-id>-<parent-id>-<flags>"). An all-zero id is invalid.
func fromTraceParent(h string) string {
	parts := strings.Split(strings.TrimSpace(h), "-")
	if len(parts) != 4 || parts[0] != "00" || len(parts[1]) != 32 || len(parts[2]) != 16 || len(parts[3]) != 2 {
		return ""
	}
	id := strings.ToLower(parts[1])
	if _, err := hex.DecodeString(id); err != nil || strings.Trim(id, "0") == "" {
		return ""
	}
	return id
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
