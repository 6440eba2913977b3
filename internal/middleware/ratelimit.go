// ratelimit.go implements a per-IP rate limiter using a fixed window
// counter stored in memory. Used on the media upload endpoint.
package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter holds the per-IP counters for one RateLimit middleware.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

// allow records a request from ip and reports whether it is within budget.
// Expired entries are pruned lazily once per window.
func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[ip]
	if !ok || now.Sub(entry.windowStart) > l.window {
		if len(l.entries) > 0 && !ok {
			l.prune(now)
		}
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.max
}

func (l *rateLimiter) prune(now time.Time) {
	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. Returns 429 when exceeded.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := &rateLimiter{
		entries: make(map[string]*rateLimitEntry),
		max:     maxRequests,
		window:  window,
		now:     time.Now,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				return apperror.NewTooManyRequests("rate limit exceeded, please try again later")
			}
			return next(c)
		}
	}
}
