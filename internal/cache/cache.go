// Package cache is a best-effort JSON cache over Redis. Every operation on a
// disabled cache, and every store failure, degrades to a logged no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/team-task-api/internal/logger"
)

// scanBatch bounds both the SCAN page size and the keys per UNLINK
const scanBatch = 100

// Options configures the single startup connection attempt
type Options struct {
	Addr           string
	Password       string
	ConnectTimeout time.Duration
}

// Cache wraps a Redis client. A nil *Cache or a Cache without a client is
// disabled.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// Connect makes exactly one bounded connection attempt. On failure the
// returned cache stays disabled for the life of the process.
func Connect(ctx context.Context, opts Options, l *slog.Logger) *Cache {
	l = logger.OrDefault(l).With("component", "cache")

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DialTimeout: opts.ConnectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		l.Warn("redis unavailable, caching disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return Disabled(l)
	}

	l.Info("redis connected", "addr", opts.Addr)
	return &Cache{client: client, logger: l}
}

// New wraps an existing client
func New(client *redis.Client, l *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger.OrDefault(l).With("component", "cache")}
}

// Disabled returns a cache on which every operation is a no-op
func Disabled(l *slog.Logger) *Cache {
	return &Cache{logger: logger.OrDefault(l)}
}

// Enabled reports whether a store is connected
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Client exposes the underlying client for collaborators that share the store
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Get decodes the value at key into dest and reports a hit
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value as JSON under key for ttl
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value unencodable", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete failed", "keys", keys, "error", err)
	}
}

// DeletePattern removes every key matching a glob pattern. Every match is
// collected before the first delete.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "pattern", pattern, "error", err)
		return
	}

	for len(keys) > 0 {
		n := min(len(keys), scanBatch)
		if err := c.client.Unlink(ctx, keys[:n]...).Err(); err != nil {
			c.logger.Warn("cache delete failed", "pattern", pattern, "error", err)
			return
		}
		keys = keys[n:]
	}
}

// Ping checks the connection. A disabled cache reports no error.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the connection
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
