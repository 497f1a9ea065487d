package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qtc-mcp-server/internal/domain"
)

const redisKeyPrefix = "qtc:evaluation:"

// RedisCache shares recent evaluation records between server instances.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisCache connects to cfg.RedisURL and verifies the connection.
func NewRedisCache(ctx context.Context, cfg domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.DefaultTTL), nil
}

// NewRedisCacheFromClient wraps an existing client. A zero ttl keeps entries for 24 hours.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, defaultTTL: ttl}
}

// Set caches record for the default TTL.
func (c *RedisCache) Set(ctx context.Context, record *domain.EvaluationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+record.ID, data, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache evaluation: %w", err)
	}
	return nil
}

// Get returns the cached record with id. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, id string) (*domain.EvaluationRecord, bool, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached evaluation: %w", err)
	}

	var record domain.EvaluationRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached evaluation: %w", err)
	}
	return &record, true, nil
}

// Delete removes id from the cache.
func (c *RedisCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, redisKeyPrefix+id).Err()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
