package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// stale buckets are swept on every pruneEvery-th new key
const pruneEvery = 256

// RateLimiter is a fixed-window counter per derived key. Counts live in
// process memory; a multi-instance deployment shares nothing here.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	inserts int
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
	}
}

// RateLimiterMiddleware enforces the limit for whatever key keyFn derives,
// falling back to the client IP when keyFn yields nothing.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		allowed, remaining, retryAfter := rl.take(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})

			return
		}

		c.Next()
	}
}

// take consumes one slot for key, opening a fresh window when the old one
// lapsed. It reports whether the request fits, how many slots remain in
// the window, and how many seconds until a blocked caller may retry.
func (rl *RateLimiter) take(key string) (allowed bool, remaining, retryAfter int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]

	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{count: 1, windowEnd: now.Add(rl.window)}

		rl.inserts++
		if rl.inserts%pruneEvery == 0 {
			rl.prune(now)
		}

		return true, rl.limit - 1, 0
	}

	if b.count >= rl.limit {
		retryAfter = int(time.Until(b.windowEnd).Seconds())

		if retryAfter < 0 {
			retryAfter = 0
		}

		return false, 0, retryAfter
	}

	b.count++

	return true, rl.limit - b.count, 0
}

// prune drops buckets whose window already ended. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	for k, b := range rl.clients {
		if now.After(b.windowEnd) {
			delete(rl.clients, k)
		}
	}
}

// KeyByIP buckets anonymous traffic by client address.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// KeyByUserOrIP buckets signed-in traffic by user so one account cannot
// spread its budget across addresses. Anonymous callers fall back to IP.
func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id != "" {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP already honors X-Forwarded-For / X-Real-IP.
	ip := c.ClientIP()

	// strip a port if one is present
	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
