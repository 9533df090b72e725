package http

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
)

// maxTrackedClients bounds the number of per-client limiters kept in memory.
// The least recently seen client is forgotten first.
const maxTrackedClients = 10_000

// rateLimiter applies a token bucket per client IP.
type rateLimiter struct {
	limit      rate.Limit
	burst      int
	retryAfter string

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

func newRateLimiter(cfg config.RateLimitConfig) (*rateLimiter, error) {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = config.DefaultRatePerMinute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = config.DefaultRateBurst
	}

	cache, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, err
	}

	return &rateLimiter{
		limit:      rate.Limit(float64(perMinute) / 60),
		burst:      burst,
		retryAfter: strconv.Itoa(int(math.Ceil(60 / float64(perMinute)))),
		limiters:   cache,
	}, nil
}

// limiterFor returns the limiter for ip, creating it on first use.
func (rl *rateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(ip); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Add(ip, l)
	return l
}

// Middleware rejects requests over the limit with 429.
func (rl *rateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.limiterFor(clientIP(c.Request())).Allow() {
				c.Response().Header().Set("Retry-After", rl.retryAfter)
				return echo.NewHTTPError(http.StatusTooManyRequests, v1.ErrRateLimited.Error())
			}
			return next(c)
		}
	}
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
