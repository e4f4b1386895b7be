package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// record tracks one client's current window.
type record struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window per-client counter. It is explicitly a
// best-effort, single-process limiter: state lives in one in-memory map and
// does not survive restarts or span instances. Construct one per route
// budget in routes.go and pass it by reference — no package-level state.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*record
	checks  int

	now func() time.Time // swapped in tests
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*record),
		now:     time.Now,
	}
}

// cleanupLocked drops expired records every ~100 checks to keep the map from
// growing without bound. Caller holds mu.
func (rl *RateLimiter) cleanupLocked() {
	rl.checks++
	if rl.checks%100 != 0 {
		return
	}
	now := rl.now()
	for key, rec := range rl.entries {
		if now.After(rec.resetAt) {
			delete(rl.entries, key)
		}
	}
}

// Limited counts this call against key's current window and reports whether
// the key has exceeded max requests. An expired window is reset before
// counting, so the first request of a new window always passes.
func (rl *RateLimiter) Limited(key string, max int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupLocked()

	now := rl.now()
	rec, ok := rl.entries[key]
	if !ok {
		rec = &record{resetAt: now.Add(window)}
		rl.entries[key] = rec
	}
	if now.After(rec.resetAt) {
		rec.count = 0
		rec.resetAt = now.Add(window)
	}
	rec.count++
	return rec.count > max
}

// RateLimit returns route middleware enforcing max requests per window for
// the caller's best-effort client address.
func RateLimit(rl *RateLimiter, max int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.Limited(clientIP(c), max, window) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many requests",
			})
		}
		return c.Next()
	}
}

// clientIP prefers the first X-Forwarded-For hop (the service runs behind a
// proxy in production), falling back to the connection address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}
