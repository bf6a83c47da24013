package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/domain/grant/model"
	"grant-store/internal/platform/clock"
	platformerrors "grant-store/internal/platform/errors"
	platformtesting "grant-store/internal/platform/testing"
)

// manualClock is advanced by hand; miniredis-backed stores advance the server too.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	onShift func(time.Duration)
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	shift := c.onShift
	c.mu.Unlock()
	if shift != nil {
		shift(d)
	}
}

type driverFactory func(t *testing.T, clk *manualClock) Store

var drivers = map[string]driverFactory{
	DriverMemory: func(t *testing.T, clk *manualClock) Store {
		s := NewMemory(Config{Memory: &MemoryConfig{GCInterval: time.Hour}}, clk)
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return s
	},
	DriverSQLite: func(t *testing.T, clk *manualClock) Store {
		s, err := NewSQLite(platformtesting.SetupSQLite(t), clk)
		require.NoError(t, err)
		return s
	},
	DriverRedis: func(t *testing.T, clk *manualClock) Store {
		mr := miniredis.RunT(t)
		clk.onShift = mr.FastForward
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		s, err := NewRedis(client, RedisOptions{KeyPrefix: "contract", Clock: clk})
		require.NoError(t, err)
		return s
	},
}

var _ clock.Clock = (*manualClock)(nil)

func TestStoreContract(t *testing.T) {
	for name, factory := range drivers {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) { contractRoundTrip(t, factory) })
			t.Run("idempotent removal", func(t *testing.T) { contractIdempotentRemoval(t, factory) })
			t.Run("index coherence", func(t *testing.T) { contractCoherence(t, factory) })
			t.Run("validation", func(t *testing.T) { contractValidation(t, factory) })
			t.Run("expiration", func(t *testing.T) { contractExpiration(t, factory) })
			t.Run("remove all", func(t *testing.T) { contractRemoveAll(t, factory) })
		})
	}
}

func newContractClock() *manualClock {
	return &manualClock{now: testNow}
}

func contractRoundTrip(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	store := factory(t, newContractClock())

	grant := newGrant("rt", "u1", "c1", model.TypeDeviceCode, time.Hour)
	grant.SessionID = "s1"
	grant.Description = "tv"
	require.NoError(t, store.Store(ctx, grant))

	got, err := store.Get(ctx, "rt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, grant.Key, got.Key)
	assert.Equal(t, grant.Type, got.Type)
	assert.Equal(t, grant.SubjectID, got.SubjectID)
	assert.Equal(t, grant.SessionID, got.SessionID)
	assert.Equal(t, grant.ClientID, got.ClientID)
	assert.Equal(t, grant.Description, got.Description)
	assert.Equal(t, grant.Data, got.Data)
	assert.True(t, grant.CreationTime.Equal(got.CreationTime))
	require.NotNil(t, got.Expiration)
	assert.True(t, grant.Expiration.Equal(*got.Expiration))
	assert.Nil(t, got.ConsumedTime)

	// a second Store with the same key replaces the record
	grant.Data = "rotated"
	require.NoError(t, store.Store(ctx, grant))
	got, err = store.Get(ctx, "rt")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Data)
}

func contractIdempotentRemoval(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	store := factory(t, newContractClock())

	require.NoError(t, store.Remove(ctx, "unknown"))
	require.NoError(t, store.Store(ctx, newGrant("k", "u1", "c1", model.TypeRefreshToken, time.Hour)))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k"))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func contractCoherence(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	store := factory(t, newContractClock())

	for _, g := range []*model.PersistedGrant{
		newGrant("c1-a", "u1", "c1", model.TypeRefreshToken, time.Hour),
		newGrant("c1-b", "u1", "c1", model.TypeUserConsent, time.Hour),
		newGrant("c2-a", "u1", "c2", model.TypeRefreshToken, time.Hour),
		newGrant("other", "u2", "c1", model.TypeRefreshToken, time.Hour),
		newGrant("anon", "", "c1", model.TypeReferenceToken, time.Hour),
	} {
		require.NoError(t, store.Store(ctx, g))
	}

	all, err := store.GetAll(ctx, model.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-a", "c1-b", "c2-a"}, grantKeys(all))

	c1, err := store.GetAll(ctx, model.Filter{SubjectID: "u1", ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1-a", "c1-b"}, grantKeys(c1))

	empty, err := store.GetAll(ctx, model.Filter{ClientID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func contractValidation(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	store := factory(t, newContractClock())

	require.NoError(t, store.Store(ctx, newGrant("k", "u1", "c1", model.TypeRefreshToken, time.Hour)))

	for _, err := range []error{
		store.Store(ctx, nil),
		store.Store(ctx, &model.PersistedGrant{ClientID: "c1"}),
		store.Remove(ctx, ""),
		store.RemoveAll(ctx, model.Filter{}),
		store.RemoveAll(ctx, model.Filter{ClientID: "c1", Type: model.TypeRefreshToken}),
	} {
		require.Error(t, err)
		assert.True(t, platformerrors.IsKind(err, platformerrors.KindValidation), err.Error())
	}

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func contractExpiration(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	clk := newContractClock()
	store := factory(t, clk)

	require.NoError(t, store.Store(ctx, newGrant("brief", "u1", "c1", model.TypeAuthorizationCode, time.Minute)))
	require.NoError(t, store.Store(ctx, newGrant("lasting", "u1", "c1", model.TypeRefreshToken, time.Hour)))

	clk.Advance(2 * time.Minute)

	got, err := store.Get(ctx, "brief")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := store.GetAll(ctx, model.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lasting"}, grantKeys(all))

	require.NoError(t, store.CleanupExpired(ctx))
	all, err = store.GetAll(ctx, model.Filter{SubjectID: "u1", ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lasting"}, grantKeys(all))
}

func contractRemoveAll(t *testing.T, factory driverFactory) {
	ctx := context.Background()
	store := factory(t, newContractClock())

	s1 := newGrant("s1", "u1", "c1", model.TypeAuthorizationCode, time.Hour)
	s1.SessionID = "sess-1"
	s2 := newGrant("s2", "u1", "c1", model.TypeAuthorizationCode, time.Hour)
	s2.SessionID = "sess-2"
	for _, g := range []*model.PersistedGrant{s1, s2, newGrant("c2", "u1", "c2", model.TypeRefreshToken, time.Hour)} {
		require.NoError(t, store.Store(ctx, g))
	}

	require.NoError(t, store.RemoveAll(ctx, model.Filter{SubjectID: "u1", ClientID: "c1", SessionID: "sess-1"}))
	left, err := store.GetAll(ctx, model.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "s2"}, grantKeys(left))

	require.NoError(t, store.RemoveAll(ctx, model.Filter{SubjectID: "u1"}))
	left, err = store.GetAll(ctx, model.Filter{SubjectID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, left)
}
