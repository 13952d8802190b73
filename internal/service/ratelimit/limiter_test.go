package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(capacity, refill float64) (*Limiter, *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(capacity, refill)
	l.now = clk.now
	return l, clk
}

func TestLimiterAllowAndRefill(t *testing.T) {
	l, clk := newTestLimiter(2, 1)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	assert.Equal(t, time.Second, l.RetryAfter("a"))
	clk.advance(500 * time.Millisecond)
	assert.False(t, l.Allow("a"))
	clk.advance(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))

	// refill is capped at capacity
	clk.advance(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiterPrune(t *testing.T) {
	l, clk := newTestLimiter(1, 1)
	l.Allow("a")
	clk.advance(time.Minute)
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	assert.Equal(t, 1, l.Prune(30*time.Second))
	assert.Equal(t, 1, l.Len())
}

func TestLimiterStartPruning(t *testing.T) {
	l := New(1, 1)
	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	stop := l.StartPruning(5*time.Millisecond, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())
	require.NoError(t, stop())

	// no pruning after stop
	l.Allow("c")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, l.Len())
}

func TestLimiterMiddleware(t *testing.T) {
	l, _ := newTestLimiter(1, 0.5)
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, l.Middleware(nil))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}
