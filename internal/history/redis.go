// Package history provides the Redis-backed shared cache implementation.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTimeout bounds every cache round trip so a slow Redis can never
// stall the conversation loop.
const DefaultCacheTimeout = 2 * time.Second

// RedisCache implements Cache on top of a Redis client.
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisCache connects to Redis using a URL of the form
// redis://[user:pass@]host:port/db. The connection is verified with a ping so
// that a misconfigured cache is reported at startup rather than silently
// degrading every mirror write.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("history.NewRedisCache: invalid Redis URL", "error", err)
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, DefaultCacheTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("history.NewRedisCache: ping failed", "error", err)
		return nil, err
	}
	slog.Info("history.NewRedisCache: connected", "addr", opts.Addr, "db", opts.DB)
	return &RedisCache{client: client, timeout: DefaultCacheTimeout}, nil
}

// Get returns the bytes stored under key, or (nil, nil) when the key is
// absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Set stores value under key. Entries are not expired; room names are unique
// per session so stale histories are simply never read again.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, key, value, 0).Err()
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
