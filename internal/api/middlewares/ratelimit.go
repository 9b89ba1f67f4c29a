package middlewares

import (
	"net/http"
	"sync"
	"time"

	"portal-gateway/internal/api/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed one-minute window counter per client IP
type RateLimiter struct {
	visitors  map[string]*Visitor
	mutex     sync.Mutex
	rate      int
	cleanup   time.Duration
	lastEvict time.Time
	now       func() time.Time
}

type Visitor struct {
	lastSeen time.Time
	count    int
	window   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per minute
func NewRateLimiter(rate int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate,
		cleanup:  time.Minute * 10,
		now:      time.Now,
	}
}

// RateLimit middleware implements rate limiting. A non-positive rate disables it.
func RateLimit(rate int) gin.HandlerFunc {
	if rate <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(rate)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !limiter.Allow(ip) {
			apiErr := models.NewAPIError(models.ErrCodeRateLimited,
				"Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			c.AbortWithStatusJSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		c.Next()
	}
}

// Allow reports whether ip may make another request in the current window
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	rl.evict(now)

	visitor, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &Visitor{
			lastSeen: now,
			count:    1,
			window:   now,
		}
		return true
	}

	visitor.lastSeen = now

	// Reset counter if window has passed
	if now.Sub(visitor.window) >= time.Minute {
		visitor.count = 1
		visitor.window = now
		return true
	}

	if visitor.count >= rl.rate {
		return false
	}

	visitor.count++
	return true
}

// evict drops idle visitors, scanning at most once per cleanup interval;
// caller holds the mutex
func (rl *RateLimiter) evict(now time.Time) {
	if now.Sub(rl.lastEvict) < rl.cleanup {
		return
	}
	rl.lastEvict = now
	for ip, visitor := range rl.visitors {
		if now.Sub(visitor.lastSeen) > rl.cleanup {
			delete(rl.visitors, ip)
		}
	}
}
