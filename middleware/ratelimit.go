package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per caller. The caller is the token subject
// when Auth ran first, the client IP otherwise.
type RateLimiter struct {
	r        rate.Limit
	b        int
	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

// NewRateLimiter: r = requests per second, b = burst size.
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{r: r, b: b, limiters: make(map[string]*limiterEntry)}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Prune drops limiters idle since before cutoff and returns how many remain.
func (rl *RateLimiter) Prune(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
		}
	}
	return len(rl.limiters)
}

// Run prunes idle limiters every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Prune(now.Add(-idle))
		}
	}
}

// Middleware rejects callers over their budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetSubject(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !rl.allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
