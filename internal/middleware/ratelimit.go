package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"

	"github.com/campuspulse/occupancy-backend-go/pkg/response"
)

// RateLimiter keeps a sliding log of request times per client IP and allows
// at most limit requests in any window-long span. Stale entries are swept
// during Allow once per window.
type RateLimiter struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	limit     int           // Maximum requests per window
	window    time.Duration // Time window
	clock     quartz.Clock
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration, clock quartz.Clock) *RateLimiter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &RateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		clock:     clock,
		lastSweep: clock.Now(),
	}
}

// Allow checks if a request from the given IP is allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now("ratelimit")
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	valid := rl.recent(rl.requests[ip], now)
	if len(valid) >= rl.limit {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

// recent drops times older than the window
func (rl *RateLimiter) recent(times []time.Time, now time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}
	return valid
}

func (rl *RateLimiter) sweep(now time.Time) {
	for ip, times := range rl.requests {
		if valid := rl.recent(times, now); len(valid) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = valid
		}
	}
	rl.lastSweep = now
}

// tracked returns the number of IPs with a live window
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// RateLimit middleware limits requests per IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		c.Next()
	}
}
