// Package ratelimit is a per-client token bucket for the upload routes.
package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "IEXCast/pkg/http"
)

// pruneEvery is how many Allow calls pass between sweeps of idle buckets.
const pruneEvery = 1024

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*rate.Limiter
	limit    rate.Limit
	capacity int
	calls    int
	now      func() time.Time
}

// New creates a limiter holding capacity tokens per key and adding one token
// every refill. A non-positive refill never refills.
func New(capacity int, refill time.Duration) *Limiter {
	limit := rate.Limit(0)
	if refill > 0 {
		limit = rate.Every(refill)
	}
	return &Limiter{
		m:        make(map[string]*rate.Limiter),
		limit:    limit,
		capacity: capacity,
		now:      time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.calls++; l.calls%pruneEvery == 0 {
		l.pruneLocked(now)
	}
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.capacity)
		l.m[key] = b
	}
	return b.AllowN(now, 1)
}

// Prune drops buckets that have refilled completely; they behave exactly
// like a fresh bucket.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(now)
}

func (l *Limiter) pruneLocked(now time.Time) int {
	n := 0
	for k, b := range l.m {
		if b.TokensAt(now) >= float64(l.capacity) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Middleware rejects requests of a client address whose bucket is empty.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many simulation requests, slow down"))
			}
			return next(c)
		}
	}
}
