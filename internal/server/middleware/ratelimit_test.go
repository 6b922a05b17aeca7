package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock ручные часы для limiter
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, rate int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rate, window)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, wait := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, wait)

	// другой ключ имеет свой bucket
	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok)

	clock.t = clock.t.Add(15 * time.Second)
	ok, wait = rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Second, wait)

	// за 20 секунд пополняется один токен, не все окно
	clock.t = clock.t.Add(5 * time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("10.0.0.1")
	assert.False(t, ok)

	// burst не больше rate даже после долгого простоя
	clock.t = clock.t.Add(time.Hour)
	for i := 0; i < 3; i++ {
		ok, _ = rl.Allow("10.0.0.1")
		assert.True(t, ok)
	}
	ok, _ = rl.Allow("10.0.0.1")
	assert.False(t, ok)
}

func TestRateLimiter_CleanupFullBuckets(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, time.Minute)

	rl.Allow("idle")
	clock.t = clock.t.Add(50 * time.Second)
	rl.Allow("busy")
	rl.Allow("busy")

	clock.t = clock.t.Add(20 * time.Second)
	rl.cleanupFullBuckets()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "idle")
	assert.Contains(t, rl.buckets, "busy")
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	bearer := func(r *http.Request) bool { return r.Header.Get("Authorization") != "" }
	handler := RateLimitMiddleware(rl, setupTestLogger(), bearer)(next)

	call := func(remote, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = remote
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	// порт не участвует в ключе
	assert.Equal(t, http.StatusOK, call("192.168.1.1:1000", "").Code)
	assert.Equal(t, http.StatusOK, call("192.168.1.1:2000", "").Code)

	w := call("192.168.1.1:3000", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests","message":"rate limit exceeded, please try again later"}`, w.Body.String())

	// исключенные запросы проходят и не тратят токены
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call("192.168.1.1:4000", "jwt").Code)
	}

	assert.Equal(t, http.StatusOK, call("192.168.1.2:1000", "").Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For with single IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For with multiple IPs",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1, 10.0.0.2, 10.0.0.3",
			expectedIP: "192.168.1.1", // Первый IP
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is empty",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.2.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.3.1:54321",
			expectedIP: "192.168.3.1",
		},
		{
			name:       "RemoteAddr that is not host:port",
			remoteAddr: "unix-socket",
			expectedIP: "unix-socket",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expectedIP, getClientIP(req))
		})
	}
}
