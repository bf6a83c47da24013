package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/domain/grant/model"
)

func TestFactoryMemory(t *testing.T) {
	store, err := New(Config{Driver: DriverMemory}, Dependencies{})
	require.NoError(t, err)
	defer store.Close(context.Background())

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, stats["type"])
}

func TestFactorySQLiteOpensDSN(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("grants-%d.db", time.Now().UnixNano()))
	store, err := New(Config{Driver: DriverSQLite, SQLite: &SQLiteConfig{DSN: dsn}}, Dependencies{})
	require.NoError(t, err)
	defer store.Close(context.Background())

	require.NoError(t, store.Store(context.Background(), newGrant("factory-sqlite", "u1", "c1", model.TypeRefreshToken, time.Hour)))
}

func TestFactoryRedisDials(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := New(Config{
		Driver:    DriverRedis,
		KeyPrefix: "f",
		Redis:     &RedisConfig{Addr: mr.Addr()},
	}, Dependencies{})
	require.NoError(t, err)

	require.NoError(t, store.Store(context.Background(), newGrant("factory-redis", "u1", "c1", model.TypeRefreshToken, time.Hour)))
	assert.True(t, mr.Exists("f:factory-redis"))
	assert.True(t, mr.Exists("f:u1"))

	// the dialled client is owned by the store
	require.NoError(t, store.Close(context.Background()))
	assert.Error(t, store.Store(context.Background(), newGrant("after-close", "u1", "c1", model.TypeRefreshToken, time.Hour)))
}

func TestFactoryRedisIsDefault(t *testing.T) {
	_, err := New(Config{}, Dependencies{})
	assert.Error(t, err, "redis settings are required when no client is injected")
}

func TestFactoryUnsupported(t *testing.T) {
	_, err := New(Config{Driver: "unknown"}, Dependencies{})
	assert.Error(t, err)
}
