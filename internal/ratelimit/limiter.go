// Package ratelimit throttles clients with fixed windows per IP address.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/team-task-api/internal/cache"
)

// Limiter counts hits on a key within a fixed window
type Limiter interface {
	// Hit records one hit and returns the count in the current window and when
	// the window resets
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)

	// Undo removes one hit from the current window
	Undo(ctx context.Context, key string) error
}

// New returns a Redis-backed limiter when the cache store is connected, so
// that limits hold across instances, and an in-process limiter otherwise
func New(c *cache.Cache) Limiter {
	if c.Enabled() {
		return NewRedisLimiter(c.Client(), "ratelimit:")
	}
	return NewMemoryLimiter()
}

// RedisLimiter keeps counters in Redis
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisLimiter(client *redis.Client, keyPrefix string) *RedisLimiter {
	return &RedisLimiter{client: client, keyPrefix: keyPrefix}
}

// Hit increments the window counter, starting the window on the first hit
func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := l.keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		remaining = window
	}

	return incr.Val(), time.Now().Add(remaining), nil
}

// Undo decrements the window counter
func (l *RedisLimiter) Undo(ctx context.Context, key string) error {
	return l.client.Decr(ctx, l.keyPrefix+key).Err()
}

type bucket struct {
	count int64
	reset time.Time
}

// MemoryLimiter keeps counters in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Hit increments the window counter, starting a new window when the previous
// one has elapsed
func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.reset) {
		b = &bucket{reset: now.Add(window)}
		l.buckets[key] = b
		l.sweep(now)
	}
	b.count++
	return b.count, b.reset, nil
}

// Undo decrements the window counter
func (l *MemoryLimiter) Undo(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok && b.count > 0 {
		b.count--
	}
	return nil
}

// sweep drops elapsed windows. Called with the lock held.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.reset) {
			delete(l.buckets, k)
		}
	}
}
