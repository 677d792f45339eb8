package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Rate limit defaults.
const (
	DefaultRateLimit       = 120
	DefaultRateLimitWindow = time.Minute
	DefaultBurstSize       = 20
)

// RateLimitStore counts requests per key within a window.
type RateLimitStore interface {
	// Increment bumps the counter for key and returns the new count. A new
	// key expires after window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// GetCount returns the current count for key.
	GetCount(ctx context.Context, key string) (int64, error)

	// GetTTL returns the remaining lifetime of key.
	GetTTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Logger *slog.Logger

	// Store is the counter backend. A nil store disables rate limiting.
	Store RateLimitStore

	Limit     int
	Window    time.Duration
	BurstSize int

	// KeyFunc derives the counter key. Defaults to the session ID, falling
	// back to the client IP.
	KeyFunc func(c echo.Context) string

	SkipPaths []string
	Message   string
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Logger:    slog.Default(),
		Limit:     DefaultRateLimit,
		Window:    DefaultRateLimitWindow,
		BurstSize: DefaultBurstSize,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
		Message:   "Too many requests. Please try again later.",
	}
}

// RateLimit returns a fixed-window rate limiting middleware. Store failures
// let the request through.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	defaults := DefaultRateLimitConfig()
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Limit <= 0 {
		config.Limit = defaults.Limit
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.Message == "" {
		config.Message = defaults.Message
	}
	if config.KeyFunc == nil {
		config.KeyFunc = defaultRateLimitKey
	}

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}
	total := int64(config.Limit + config.BurstSize)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Store == nil {
				return next(c)
			}
			path := c.Request().URL.Path
			if _, ok := skip[path]; ok {
				return next(c)
			}

			ctx := c.Request().Context()
			key := config.KeyFunc(c)

			count, err := config.Store.Increment(ctx, key, config.Window)
			if err != nil {
				config.Logger.ErrorContext(ctx, "failed to increment rate limit counter",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			header := c.Response().Header()
			header.Set("X-Ratelimit-Limit", strconv.FormatInt(total, 10))
			header.Set("X-Ratelimit-Remaining", strconv.FormatInt(max(total-count, 0), 10))

			ttl, err := config.Store.GetTTL(ctx, key)
			if err == nil && ttl > 0 {
				header.Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
			}

			if count <= total {
				return next(c)
			}

			config.Logger.WarnContext(ctx, "rate limit exceeded",
				slog.String("key", key),
				slog.Int64("count", count),
				slog.Int64("limit", total),
				slog.String("path", path),
			)

			retryAfter := int64(ttl.Seconds())
			if retryAfter > 0 {
				header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success": false,
				"error": map[string]any{
					"code":        "RATE_LIMIT_EXCEEDED",
					"message":     config.Message,
					"retry_after": retryAfter,
				},
			})
		}
	}
}

func defaultRateLimitKey(c echo.Context) string {
	if sid := GetSessionID(c); sid != "" {
		return "session:" + sid
	}
	return "ip:" + c.RealIP()
}

// MemoryRateLimitStore is an in-process RateLimitStore, used when Redis is
// disabled and in tests.
type MemoryRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]*rateLimitEntry
	now    func() time.Time
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryRateLimitStore creates a new in-memory rate limit store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		counts: make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// Increment increments the counter for the given key.
func (s *MemoryRateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.counts[key]; ok && now.Before(entry.expiresAt) {
		entry.count++
		return entry.count, nil
	}

	// expired entries are dropped lazily
	for k, entry := range s.counts {
		if !now.Before(entry.expiresAt) {
			delete(s.counts, k)
		}
	}
	s.counts[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	return 1, nil
}

// GetCount returns the current count for the given key.
func (s *MemoryRateLimitStore) GetCount(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counts[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

// GetTTL returns the remaining TTL for the given key.
func (s *MemoryRateLimitStore) GetTTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counts[key]
	if !ok {
		return 0, nil
	}
	return max(entry.expiresAt.Sub(s.now()), 0), nil
}
