package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is a fixed window limit. Both fields must be positive.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be > 0 (got %d)", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("WindowDuration must be > 0 (got %s)", c.WindowDuration)
	}
	return nil
}

// RateLimitStore tracks request counts per key. Implementations exist for a
// single process (InMemoryRateLimitStore) and for a shared Redis backend.
type RateLimitStore interface {
	// Allow reports whether a request under key fits in the current window.
	// When it does not, retryAfter is the whole seconds until the window rolls.
	Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, retryAfter int)
}

type window struct {
	count int
	ends  time.Time
}

// InMemoryRateLimitStore counts requests in process memory. Suitable for a
// single API replica; multi-replica deployments share state through Redis.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{windows: make(map[string]*window)}
}

func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, config RateLimitConfig) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w := s.windows[key]
	if w == nil || now.After(w.ends) {
		s.windows[key] = &window{count: 1, ends: now.Add(config.WindowDuration)}
		return true, 0
	}
	if w.count < config.RequestsPerWindow {
		w.count++
		return true, 0
	}
	retryAfter := int(w.ends.Sub(now).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

// Cleanup drops expired windows. Call it on a ticker, a few multiples of the
// longest configured window apart.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, w := range s.windows {
		if now.After(w.ends) {
			delete(s.windows, key)
		}
	}
}

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys on the client address, honoring proxy headers in order of
// trust: X-Forwarded-For (first hop), then X-Real-IP, then RemoteAddr.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// UserKeyFunc keys on the authenticated user so a student on shared campus
// wifi is not throttled by their neighbors. Anonymous traffic keys on IP.
func UserKeyFunc() KeyFunc {
	byIP := IPKeyFunc()
	return func(r *http.Request) string {
		if id := GetUserID(r.Context()); id != "" {
			return "user:" + id
		}
		return "ip:" + byIP(r)
	}
}

// RateLimiter rejects requests over the limit with 429, Retry-After, and an
// X-RateLimit-Reset Unix timestamp. metrics may be nil.
func RateLimiter(store RateLimitStore, config RateLimitConfig, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			keyType, _, found := strings.Cut(key, ":")
			if !found {
				keyType = "ip"
			}
			if metrics != nil {
				metrics.IncRateLimitRequests(r.URL.Path, keyType)
			}

			allowed, retryAfter := store.Allow(r.Context(), key, config)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if metrics != nil {
				metrics.IncRateLimitBlocked(r.URL.Path, keyType)
			}
			r = r.WithContext(SetErrorCode(r.Context(), "rate_limit_exceeded"))

			reset := time.Now().Add(time.Duration(retryAfter) * time.Second).Unix()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		})
	}
}
