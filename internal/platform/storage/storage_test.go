package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/platform/storage/migrations"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	dsn := fmt.Sprintf("file:storage-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenSQLite(dsn)
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&PersistedGrantRecord{}))

	history, err := NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001_persisted_grants", history[0].Version)

	// a second run is a no-op
	require.NoError(t, Migrate(db))
	history, err = NewMigrationManager(db).GetMigrationHistory()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := OpenRedis(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = OpenRedis(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", NormalizePrefix(""))
	assert.Equal(t, "ids:", NormalizePrefix("ids"))
	assert.Equal(t, "ids:", NormalizePrefix("ids:"))
}

func TestRollbackMigration(t *testing.T) {
	dsn := fmt.Sprintf("file:rollback-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenSQLite(dsn)
	require.NoError(t, err)

	manager := NewMigrationManager(db)
	assert.Error(t, manager.RollbackMigration("001_persisted_grants"), "unregistered migrations cannot be rolled back")

	manager.AddMigration(&migrations.Migration001PersistedGrants{})
	require.NoError(t, manager.RollbackMigration("001_persisted_grants"))
	assert.False(t, db.Migrator().HasTable(&PersistedGrantRecord{}))

	history, err := manager.GetMigrationHistory()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Error(t, manager.RollbackMigration("001_persisted_grants"))

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&PersistedGrantRecord{}))
}
