package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedRouter(skip ...string) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(TraceID(), Logger(zap.New(core), skip...))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r, logs
}

func get(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestLogger_RequestLogged(t *testing.T) {
	r, logs := observedRouter()
	get(r, "/ping")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["trace_id"])
}

func TestLogger_LevelByStatus(t *testing.T) {
	r, logs := observedRouter()
	get(r, "/fail")
	get(r, "/bad")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestLogger_SkipPaths(t *testing.T) {
	r, logs := observedRouter("/health")
	get(r, "/health")
	get(r, "/ping")
	assert.Equal(t, 1, logs.Len())
}
