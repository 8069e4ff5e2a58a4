package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := hit(); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, code)
		}
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded: got %d, want 429", code)
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := hit("10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := hit("10.0.0.1:1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client should be limited: %d", code)
	}
	if code := hit("10.0.0.2:1"); code != http.StatusOK {
		t.Errorf("second client must have its own bucket: %d", code)
	}
}

func TestRateLimiterStoreSweepsIdleBuckets(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	stale := store.getBucket("10.0.0.1")
	store.getBucket("10.0.0.2")

	stale.mu.Lock()
	stale.lastRefill = time.Now().Add(-2 * bucketIdleTimeout)
	stale.mu.Unlock()

	store.sweep(time.Now().Add(-bucketIdleTimeout))

	store.mu.RLock()
	defer store.mu.RUnlock()
	if _, ok := store.buckets["10.0.0.1"]; ok {
		t.Error("idle bucket not evicted")
	}
	if _, ok := store.buckets["10.0.0.2"]; !ok {
		t.Error("active bucket must survive the sweep")
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("request id = %q, want client-supplied", got)
	}
}
