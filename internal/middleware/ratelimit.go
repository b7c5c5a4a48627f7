package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillup/examflow-backend/internal/response"
)

const staleBucketAge = 3 * time.Minute

// RateLimiter is a per-client token bucket guarding the high-frequency
// attempt endpoints (answer saves, violation reports) against runaway
// clients. Buckets refill continuously in proportion to elapsed time.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	rate     float64 // tokens added per interval
	interval time.Duration
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter allows rate requests per interval for each client IP.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     float64(rate),
		interval: interval,
	}
	go rl.evictLoop()
	return rl
}

// Middleware rejects requests with 429 once a client's bucket runs dry.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.rate, lastRefill: now}
		rl.buckets[key] = b
	} else {
		refill := rl.rate * float64(now.Sub(b.lastRefill)) / float64(rl.interval)
		if b.tokens += refill; b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleBucketAge)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if b.lastRefill.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
