package cache

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"grant-store/internal/platform/clock"
)

const defaultMemoryEntries = 1024

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache is a bounded LRU with per-entry expiry.
type MemoryCache[T any] struct {
	mu    sync.Mutex
	lru   *lru.Cache
	clock clock.Clock
}

// NewMemory builds an LRU holding at most size entries.
func NewMemory[T any](size int, clk clock.Clock) *MemoryCache[T] {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	return &MemoryCache[T]{
		lru:   lru.New(size),
		clock: clock.OrSystem(clk),
	}
}

func (c *MemoryCache[T]) Get(_ context.Context, key string) (T, bool, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false, nil
	}
	entry := raw.(memoryEntry[T])
	if !entry.expiresAt.IsZero() && !c.clock.Now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return zero, false, nil
	}
	return entry.value, true, nil
}

// Set stores value; a non-positive ttl keeps it until evicted.
func (c *MemoryCache[T]) Set(_ context.Context, key string, value T, ttl time.Duration) error {
	entry := memoryEntry[T]{value: value}
	if ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	c.lru.Add(key, entry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *MemoryCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
