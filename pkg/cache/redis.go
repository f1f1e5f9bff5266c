package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clearBatchSize is the number of keys deleted per DEL during Clear.
const clearBatchSize = 100

// RedisBackend stores entries in Redis using native key expiry.
// Every key is prefixed with the namespace so Clear only touches our entries.
type RedisBackend struct {
	redis     *redis.Client
	namespace string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a Redis backend. An empty namespace makes Clear flush
// the whole database.
func NewRedisBackend(redisClient *redis.Client, namespace string) *RedisBackend {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{
		redis:     redisClient,
		namespace: namespace,
	}
}

func (b *RedisBackend) key(key string) string {
	return b.namespace + key
}

// Get retrieves the data stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.redis.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Set stores data with the given TTL. Zero TTL keeps the key until deleted.
func (b *RedisBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := b.redis.Set(ctx, b.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the namespace.
func (b *RedisBackend) Clear(ctx context.Context) error {
	if b.namespace == "" {
		if err := b.redis.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("redis flushdb: %w", err)
		}
		return nil
	}

	iter := b.redis.Scan(ctx, 0, b.namespace+"*", clearBatchSize).Iterator()
	batch := make([]string, 0, clearBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatchSize {
			if err := b.redis.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := b.redis.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}
