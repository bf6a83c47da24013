package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"grant-store/internal/platform/codec"
	platformerrors "grant-store/internal/platform/errors"
	"grant-store/internal/platform/storage"
)

// RedisCache keeps entries under prefix+namespace+":"+key.
type RedisCache[T any] struct {
	client redis.UniversalClient
	space  string
	codec  codec.Codec[T]
}

// NewRedis builds a cache for one value type. A nil codec selects JSON.
func NewRedis[T any](client redis.UniversalClient, prefix, namespace string, c codec.Codec[T]) (*RedisCache[T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis cache requires a client")
	}
	if c == nil {
		c = codec.JSON[T]()
	}
	return &RedisCache[T]{
		client: client,
		space:  storage.NormalizePrefix(prefix) + namespace + ":",
		codec:  c,
	}, nil
}

// Key returns the backend key an entry is stored under.
func (c *RedisCache[T]) Key(key string) string {
	return c.space + key
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	raw, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, platformerrors.Wrap(platformerrors.KindStorage, "cache.get", "key="+key, err)
	}
	value, err := c.codec.Unmarshal(raw)
	if err != nil {
		return zero, false, platformerrors.Wrap(platformerrors.KindCodec, "cache.get", "key="+key, err)
	}
	return value, true, nil
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := c.codec.Marshal(value)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindCodec, "cache.set", "key="+key, err)
	}
	if err := c.client.Set(ctx, c.Key(key), data, ttl).Err(); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "cache.set", "key="+key, err)
	}
	return nil
}
