package store

import (
	"context"
	"time"

	"grant-store/internal/domain/grant/model"
)

// Store persists grants and resolves them by key or by filter.
type Store interface {
	// Store writes the grant and, when it has a subject, indexes it.
	Store(ctx context.Context, grant *model.PersistedGrant) error
	// Get returns nil without error when the key is unknown or expired.
	Get(ctx context.Context, key string) (*model.PersistedGrant, error)
	// GetAll returns the grants matching every non-empty filter field.
	GetAll(ctx context.Context, filter model.Filter) ([]model.PersistedGrant, error)
	// Remove is a no-op for unknown keys.
	Remove(ctx context.Context, key string) error
	// RemoveAll requires the filter to name a subject.
	RemoveAll(ctx context.Context, filter model.Filter) error
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// PruneFunc observes index entries dropped because their record was gone.
type PruneFunc func(ctx context.Context, filter model.Filter, keys []string)

// Config describes the high level store selection parameters.
type Config struct {
	Driver    string
	KeyPrefix string
	Redis     *RedisConfig
	SQLite    *SQLiteConfig
	Memory    *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database location.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

const (
	opStore     = "grant.store"
	opGet       = "grant.get"
	opGetAll    = "grant.get_all"
	opRemove    = "grant.remove"
	opRemoveAll = "grant.remove_all"
	opCleanup   = "grant.cleanup"
)
