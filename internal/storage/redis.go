package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records as plain string keys.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = &RedisBackend{}

// NewRedisBackend connects to addr and pings it once.
func NewRedisBackend(ctx context.Context, addr string) (*RedisBackend, error) {
	if addr == "" {
		return nil, errors.New("redis backend: empty addr")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis backend: ping %s", addr)
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis backend: load")
	}
	return value, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis backend: save")
	}
	return nil
}

func (b *RedisBackend) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
