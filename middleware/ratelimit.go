package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter allows limit requests per client IP in each fixed window.
// Counters idle for a full window are swept, so the map only holds IPs seen
// recently.
type IPRateLimiter struct {
	mu        sync.Mutex
	counters  map[string]*ipWindow
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type ipWindow struct {
	start time.Time
	count int
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		counters: make(map[string]*ipWindow),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	w, ok := rl.counters[ip]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.counters[ip] = &ipWindow{start: now, count: 1}
		return rl.limit > 0
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *IPRateLimiter) sweep(now time.Time) {
	for ip, w := range rl.counters {
		if now.Sub(w.start) >= rl.window {
			delete(rl.counters, ip)
		}
	}
	rl.lastSweep = now
}

// Tracked reports how many IPs currently hold a counter.
func (rl *IPRateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
