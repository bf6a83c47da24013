package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/domain/grant/model"
	platformtesting "grant-store/internal/platform/testing"
	"grant-store/internal/platform/storage"
)

func TestSQLiteStoreCleanupDeletesRows(t *testing.T) {
	ctx := context.Background()
	db := platformtesting.SetupSQLite(t)
	clk := newContractClock()

	store, err := NewSQLite(db, clk)
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, newGrant("expired", "u1", "c1", model.TypeAuthorizationCode, time.Minute)))
	consent := newGrant("consent", "u1", "c1", model.TypeUserConsent, 0)
	consent.Expiration = nil
	require.NoError(t, store.Store(ctx, consent))

	clk.Advance(time.Hour)
	require.NoError(t, store.CleanupExpired(ctx))

	var count int64
	require.NoError(t, db.Model(&storage.PersistedGrantRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, stats["type"])
	assert.EqualValues(t, 1, stats["total"])
}

func TestSQLiteStoreNormalizesZone(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLite(platformtesting.SetupSQLite(t), newContractClock())
	require.NoError(t, err)

	zone := time.FixedZone("UTC+8", 8*3600)
	grant := newGrant("zoned", "u1", "c1", model.TypeRefreshToken, time.Hour)
	local := grant.Expiration.In(zone)
	grant.Expiration = &local
	require.NoError(t, store.Store(ctx, grant))

	all, err := store.GetAll(ctx, model.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, local.Equal(*all[0].Expiration))
}

func TestNewSQLiteRequiresDB(t *testing.T) {
	_, err := NewSQLite(nil, nil)
	assert.Error(t, err)
}
