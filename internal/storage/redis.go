package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SnapshotKey(profile, name string) string
	Close() error
}

// RedisStore shares snapshots across processes; keys expire after ttl without a write.
type RedisStore struct {
	client    redisKV
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client redisKV, namespace string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.client.SnapshotKey(r.namespace, key))
	if redis.IsNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return raw, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.client.SnapshotKey(r.namespace, key), value, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.SnapshotKey(r.namespace, key))
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
