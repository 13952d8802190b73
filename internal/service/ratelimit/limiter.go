package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	pkghttp "BandView/pkg/http"
)

type bucket struct {
	tokens float64
	last   time.Time
	used   time.Time
}

// Limiter is a per-key token bucket. Every key starts full and refills
// continuously at refillPerSec up to capacity.
type Limiter struct {
	capacity     float64
	refillPerSec float64

	mu  sync.Mutex
	m   map[string]*bucket
	now func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerSec < 0 {
		refillPerSec = 0
	}
	return &Limiter{
		capacity:     capacity,
		refillPerSec: refillPerSec,
		m:            make(map[string]*bucket),
		now:          time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, now)
	b.used = now
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter estimates how long key has to wait for the next token.
func (l *Limiter) RetryAfter(key string) time.Duration {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, now)
	if b.tokens >= 1 {
		return 0
	}
	if l.refillPerSec == 0 {
		return time.Hour
	}
	return time.Duration((1 - b.tokens) / l.refillPerSec * float64(time.Second))
}

// Prune forgets keys that have not called Allow for idle. A forgotten key
// starts again with a full bucket.
func (l *Limiter) Prune(idle time.Duration) int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, b := range l.m {
		if now.Sub(b.used) >= idle {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// StartPruning calls Prune(idle) every interval until the returned func is
// called. The stop func waits for the pruning goroutine and is safe to call
// more than once.
func (l *Limiter) StartPruning(interval, idle time.Duration) func() error {
	if interval <= 0 {
		interval = idle
	}
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.Prune(idle)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() {
			close(done)
			<-exited
		})
		return nil
	}
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// refill must be called with mu held.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now, used: now}
		l.m[key] = b
		return b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillPerSec
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	return b
}

// Middleware rejects requests over the limit with 429. Keys default to the
// client IP.
func (l *Limiter) Middleware(keyFn func(echo.Context) string) echo.MiddlewareFunc {
	if keyFn == nil {
		keyFn = func(c echo.Context) string { return c.RealIP() }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			if l.Allow(key) {
				return next(c)
			}
			wait := l.RetryAfter(key)
			secs := int(wait.Seconds())
			if wait > time.Duration(secs)*time.Second {
				secs++
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return pkghttp.AppErrorResponse(c, pkghttp.TooManyRequestsError("rate limit exceeded").
				WithParam("retry_after_seconds", secs))
		}
	}
}
