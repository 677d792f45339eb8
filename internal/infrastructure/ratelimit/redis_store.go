// Package ratelimit provides the Redis-backed counter store for the rate
// limit middleware.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces all counters.
const DefaultKeyPrefix = "userdir:ratelimit:"

// RedisStore implements middleware.RateLimitStore on a fixed window per key.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisStore creates a new Redis-based rate limit store.
func NewRedisStore(client redis.Cmdable, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment increments the counter for key and starts its window on the
// first hit.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := s.keyPrefix + key

	count, err := s.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if count == 1 {
		if expireErr := s.client.Expire(ctx, fullKey, window).Err(); expireErr != nil {
			return count, fmt.Errorf("failed to set expiration: %w", expireErr)
		}
	}

	return count, nil
}

// GetCount returns the current count for key, 0 when absent.
func (s *RedisStore) GetCount(ctx context.Context, key string) (int64, error) {
	result, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

// GetTTL returns the remaining window for key, 0 when absent.
func (s *RedisStore) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get ttl: %w", err)
	}
	// -1 (no expiry) and -2 (missing) come back as negative durations
	return max(ttl, 0), nil
}
