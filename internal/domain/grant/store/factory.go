package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"grant-store/internal/platform/clock"
	"grant-store/internal/platform/storage"
)

// Driver identifiers supported by the grant domain.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

const dialTimeout = 5 * time.Second

// Dependencies captures external handles required by certain drivers.
// A missing handle is dialled from Config and then owned by the store.
type Dependencies struct {
	Redis    redis.UniversalClient
	SQLiteDB *gorm.DB
	Clock    clock.Clock
	OnPrune  PruneFunc
}

// New creates a grant store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverRedis
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg, deps.Clock), nil
	case DriverSQLite:
		db := deps.SQLiteDB
		if db == nil {
			dsn := ""
			if cfg.SQLite != nil {
				dsn = cfg.SQLite.DSN
			}
			opened, err := storage.OpenSQLite(dsn)
			if err != nil {
				return nil, fmt.Errorf("sqlite driver: %w", err)
			}
			db = opened
		}
		return NewSQLite(db, deps.Clock)
	case DriverRedis:
		client := deps.Redis
		owned := false
		if client == nil {
			if cfg.Redis == nil {
				return nil, fmt.Errorf("redis driver requires connection settings")
			}
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			defer cancel()
			dialled, err := storage.OpenRedis(ctx, storage.RedisOptions{
				Addr:     cfg.Redis.Addr,
				Username: cfg.Redis.Username,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				return nil, fmt.Errorf("redis driver: %w", err)
			}
			client = dialled
			owned = true
		}
		return NewRedis(client, RedisOptions{
			KeyPrefix:   cfg.KeyPrefix,
			Clock:       deps.Clock,
			OnPrune:     deps.OnPrune,
			CloseClient: owned,
		})
	default:
		return nil, fmt.Errorf("unsupported grant store driver: %s", driver)
	}
}
