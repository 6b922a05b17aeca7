package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-key token bucket: rate requests per window, refilled
// continuously, with a burst of rate.
type RateLimiter struct {
	buckets  map[string]*bucket
	now      func() time.Time
	cleanupC chan struct{}
	stopOnce sync.Once
	perToken time.Duration // время пополнения одного токена
	rate     int
	window   time.Duration
	mu       sync.Mutex
}

type bucket struct {
	updated time.Time
	tokens  float64
}

// NewRateLimiter создает limiter; rate запросов за window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		now:      time.Now,
		perToken: window / time.Duration(rate),
		rate:     rate,
		window:   window,
		cleanupC: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupFullBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupFullBuckets удаляет buckets, успевшие пополниться полностью:
// такой bucket ничем не отличается от нового
func (rl *RateLimiter) cleanupFullBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if rl.refill(b, now) >= float64(rl.rate) {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.cleanupC)
	})
}

func (rl *RateLimiter) refill(b *bucket, now time.Time) float64 {
	elapsed := now.Sub(b.updated)
	if elapsed > 0 {
		b.tokens = math.Min(float64(rl.rate), b.tokens+float64(elapsed)/float64(rl.perToken))
		b.updated = now
	}
	return b.tokens
}

// Allow takes a token for key. When the bucket is empty it returns false and
// how long until the next token.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{updated: now, tokens: float64(rl.rate)}
		rl.buckets[key] = b
	}

	if rl.refill(b, now) >= 1 {
		b.tokens--
		return true, 0
	}

	return false, time.Duration((1 - b.tokens) * float64(rl.perToken))
}

// RateLimitMiddleware отвечает 429 когда limiter исчерпан для IP клиента.
// Запросы, для которых exempt возвращает true, не расходуют токены.
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger, exempt func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt != nil && exempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			ok, wait := limiter.Allow(key)
			if !ok {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after", wait,
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
