package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newRateLimitRouter(r rate.Limit, b int) *gin.Engine {
	eng := gin.New()
	eng.Use(NewRateLimiter(r, b).Middleware())
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func hit(r *gin.Engine, ip, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsFirst(t *testing.T) {
	r := newRateLimitRouter(100, 5)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1", ""))
}

func TestRateLimit_Burst(t *testing.T) {
	r := newRateLimitRouter(0.001, 3) // near-zero refill so we exhaust quickly
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.1.1", ""), "request %d should be allowed", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.1.1", ""))
}

func TestRateLimit_PerIP(t *testing.T) {
	r := newRateLimitRouter(0.001, 1)
	for _, ip := range []string{"10.1.1.1", "10.1.1.2"} {
		assert.Equal(t, http.StatusOK, hit(r, ip, ""), "first request from %s should be OK", ip)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "10.1.1.1", ""))
}

func TestRateLimit_PerSubject(t *testing.T) {
	eng := gin.New()
	eng.Use(Auth(testSec), NewRateLimiter(0.001, 1).Middleware())
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := bearer(t, "realm-a", RoleService)
	b := bearer(t, "realm-b", RoleService)
	// same IP, different subjects: separate budgets
	assert.Equal(t, http.StatusOK, hit(eng, "10.2.2.2", a))
	assert.Equal(t, http.StatusOK, hit(eng, "10.2.2.2", b))
	assert.Equal(t, http.StatusTooManyRequests, hit(eng, "10.2.2.2", a))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.allow("old", now.Add(-time.Hour))
	rl.allow("fresh", now)

	assert.Equal(t, 1, rl.Prune(now.Add(-10*time.Minute)))
}
