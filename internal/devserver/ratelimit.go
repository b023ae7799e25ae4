package devserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter is a fixed-window per-token limiter. Deliberately simple: its
// job is to exercise the client's 429 handling, not to be fair or precise.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  time.Minute,
		buckets: map[string]*bucket{},
	}
}

// allow reports whether the token may proceed; when denied it returns the
// seconds remaining in the current window for the Retry-After header.
func (r *rateLimiter) allow(token string, now time.Time) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[token]
	if !ok || now.Sub(b.windowStart) >= r.window {
		r.buckets[token] = &bucket{count: 1, windowStart: now}
		return true, 0
	}
	if b.count < r.limit {
		b.count++
		return true, 0
	}
	remaining := int(r.window.Seconds() - now.Sub(b.windowStart).Seconds())
	if remaining < 1 {
		remaining = 1
	}
	return false, remaining
}

// middleware enforces the limit. 0 disables throttling.
func (r *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limit <= 0 {
			c.Next()
			return
		}
		token := c.GetHeader("Authorization")
		ok, retryAfter := r.allow(token, time.Now())
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
