package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements fixed-window rate limiting backed by Redis,
// shared across API instances. It fails open: if Redis is unavailable the
// request is allowed and the full quota is reported.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a new Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// SetMetrics attaches middleware metrics so fail-open events are counted.
func (s *RedisRateLimitStore) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Allow checks if a request from the given key should be allowed.
// Returns whether the request is allowed, the remaining quota in the current
// window, and the number of seconds until the window resets when blocked.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, retryAfter int) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, config.WindowDuration)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: rate limiting must not take the API down with Redis
		slog.WarnContext(ctx, "redis rate limit check failed, allowing request", "error", err)
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	remaining = config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	if count > config.RequestsPerWindow {
		retryAfter = int(ttl.Val() / time.Second)
		if retryAfter <= 0 {
			retryAfter = 1
		}
		return false, remaining, retryAfter
	}
	return true, remaining, 0
}

// redisStoreAdapter narrows RedisRateLimitStore to the RateLimitStore
// interface used by the RateLimiter middleware.
type redisStoreAdapter struct {
	store *RedisRateLimitStore
}

// Store returns a RateLimitStore view of the Redis-backed limiter.
func (s *RedisRateLimitStore) Store() RateLimitStore {
	return redisStoreAdapter{store: s}
}

func (a redisStoreAdapter) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	allowed, _, retryAfter := a.store.Allow(ctx, key, config)
	return allowed, retryAfter
}
