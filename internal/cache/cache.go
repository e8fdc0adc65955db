// Package cache stores JSON-encoded API responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached response lives unless configured otherwise.
const DefaultTTL = 24 * time.Hour

// Cache is a key/value store for serialized responses.
type Cache interface {
	// Get decodes the value stored under key into dest. The boolean is
	// false when the key does not exist.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Flush removes every key from the cache database and reports whether
	// the server acknowledged it.
	Flush(ctx context.Context) (bool, error)
}

// RedisCache implements Cache on a single Redis logical database.
type RedisCache struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		logger: logger.With(slog.String("component", "cache")),
	}
}

var _ Cache = (*RedisCache)(nil)

// Get retrieves and decodes a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Set encodes value and stores it with expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set value in cache: %w", err)
	}
	return nil
}

// Flush empties the cache database.
func (c *RedisCache) Flush(ctx context.Context) (bool, error) {
	status, err := c.client.FlushDB(ctx).Result()
	if err != nil {
		return false, fmt.Errorf("failed to flush cache: %w", err)
	}
	return status == "OK", nil
}

// NewRedisClient creates a client from a redis:// URL and verifies it
// with a ping.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
