package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-store/internal/platform/clock"
	platformerrors "grant-store/internal/platform/errors"
	platformtesting "grant-store/internal/platform/testing"
)

type profile struct {
	Subject string `json:"subject"`
	Active  bool   `json:"active"`
}

type warnings []string

func (w *warnings) Warn(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := platformtesting.SetupRedis(t)

	c, err := NewRedis[profile](client, "ids", "profile", nil)
	require.NoError(t, err)
	assert.Equal(t, "ids:profile:u1", c.Key("u1"))

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "u1", profile{Subject: "u1", Active: true}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("ids:profile:u1"))

	got, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, profile{Subject: "u1", Active: true}, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	mr, client := platformtesting.SetupRedis(t)
	c, err := NewRedis[profile](client, "", "profile", nil)
	require.NoError(t, err)

	require.NoError(t, mr.Set("profile:u1", "not json"))
	_, _, err = c.Get(context.Background(), "u1")
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindCodec))
}

func TestMemoryCacheExpiryAndEviction(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory[bool](2, clock.Func(func() time.Time { return current }))

	require.NoError(t, c.Set(ctx, "a", true, time.Minute))
	require.NoError(t, c.Set(ctx, "b", true, 0))

	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, v)

	current = current.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok, "entries without ttl do not expire")

	require.NoError(t, c.Set(ctx, "c", false, 0))
	require.NoError(t, c.Set(ctx, "d", false, 0))
	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](0, nil)
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad[int](ctx, c, "answer", time.Minute, load, nil)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	c := NewMemory[int](0, nil)
	boom := errors.New("boom")

	_, err := GetOrLoad[int](context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom }, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoadToleratesBrokenCache(t *testing.T) {
	mr, client := platformtesting.SetupRedis(t)
	c, err := NewRedis[int](client, "", "n", nil)
	require.NoError(t, err)
	mr.Close()

	var logged warnings
	v, err := GetOrLoad[int](context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil }, &logged)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Len(t, logged, 2)
}
