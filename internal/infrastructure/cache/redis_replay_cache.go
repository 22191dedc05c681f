package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "fcrm:idem:"

// RedisReplayCache keeps committed idempotency results in Redis so that
// replays across instances skip the database. Entries expire with the record.
type RedisReplayCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisReplayCache connects to Redis and pings it
func NewRedisReplayCache(ctx context.Context, cfg RedisConfig) (*RedisReplayCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisReplayCacheWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisReplayCacheWithClient wraps an existing client
func NewRedisReplayCacheWithClient(client *redis.Client, keyPrefix string) *RedisReplayCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisReplayCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached record for key, or nil on a miss
func (c *RedisReplayCache) Get(ctx context.Context, key string) (*shared.IdempotencyRecord, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec shared.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &rec, nil
}

// Set stores the record until its expiry. Already expired records are not cached.
func (c *RedisReplayCache) Set(ctx context.Context, rec *shared.IdempotencyRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+rec.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisReplayCache) Close() error {
	return c.client.Close()
}

var _ txn.ReplayCache = (*RedisReplayCache)(nil)
