package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the fallback limits used when the
// configured rate is unset or nonsensical.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucket is one client's remaining allowance. Tokens refill
// continuously at the configured rate up to the burst ceiling.
type bucket struct {
	tokens float64
	last   time.Time
}

// limiterSet maps client keys to buckets behind a single mutex; the
// critical section is a few float operations, far cheaper than
// fine-grained locking would buy back.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*bucket
	cfg     RateLimitConfig
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{clients: make(map[string]*bucket), cfg: cfg}
}

// take consumes one token for the client, or reports how many seconds
// until the next token when the bucket is empty.
func (s *limiterSet) take(key string, now time.Time) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]
	if !ok {
		b = &bucket{tokens: float64(s.cfg.BurstSize), last: now}
		s.clients[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * s.cfg.RequestsPerSecond
	if ceil := float64(s.cfg.BurstSize); b.tokens > ceil {
		b.tokens = ceil
	}
	b.last = now

	if b.tokens < 1 {
		wait := int(math.Ceil((1 - b.tokens) / s.cfg.RequestsPerSecond))
		if wait < 1 {
			wait = 1
		}
		return false, wait
	}
	b.tokens--
	return true, 0
}

// RateLimit throttles clients by authenticated subject, falling back
// to the remote IP for anonymous callers. An evaluation is cheap to
// serve from cache but expensive to compute, so the limit applies
// before any handler work.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	set := newLimiterSet(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if sub, ok := c.Get("auth_subject").(string); ok && sub != "" {
				key = sub
			}

			ok, retryAfter := set.take(key, time.Now())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
