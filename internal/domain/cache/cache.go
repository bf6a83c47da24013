// Package cache provides a small typed read-through cache over Redis or process memory.
package cache

import (
	"context"
	"time"
)

// Cache stores values of one type under string keys.
type Cache[T any] interface {
	// Get reports ok=false for a missing or expired entry.
	Get(ctx context.Context, key string) (value T, ok bool, err error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
}

// Logger receives cache write failures, which never fail a read.
type Logger interface {
	Warn(format string, args ...any)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Loader errors are returned unchanged; cache failures only get logged.
func GetOrLoad[T any](ctx context.Context, c Cache[T], key string, ttl time.Duration, load func(context.Context) (T, error), logger Logger) (T, error) {
	value, ok, err := c.Get(ctx, key)
	if err != nil && logger != nil {
		logger.Warn("[CACHE] read %s failed, loading: %v", key, err)
	}
	if err == nil && ok {
		return value, nil
	}

	value, err = load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil && logger != nil {
		logger.Warn("[CACHE] write %s failed: %v", key, err)
	}
	return value, nil
}
