package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// RedisCache stores generation responses in Redis under a key prefix with a TTL.
// It satisfies ai.ResponseCache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *errors.Logger
}

// New connects to the Redis server of cfg and verifies it answers
func New(cfg config.CacheConfig, logger *errors.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeCacheUnavailable,
			fmt.Sprintf("Failed to connect to Redis at %s", cfg.Addr), err)
	}

	logger.Info("Response cache connected", "addr", cfg.Addr, "ttl", cfg.TTL.String())
	return NewWithClient(client, cfg.KeyPrefix, cfg.TTL, logger), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *errors.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get returns the cached value of key. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

// Ping reports whether the server is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}
