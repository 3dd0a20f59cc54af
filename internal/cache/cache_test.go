package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/logger"
)

type payload struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, logger.Discard()), mr
}

func TestCache_SetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "task:1", payload{ID: 1, Title: "a"}, time.Minute)

	var got payload
	require.True(t, c.Get(ctx, "task:1", &got))
	assert.Equal(t, payload{ID: 1, Title: "a"}, got)
	assert.Equal(t, time.Minute, mr.TTL("task:1"))

	c.Delete(ctx, "task:1")
	assert.False(t, c.Get(ctx, "task:1", &got))
}

func TestCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", payload{ID: 2}, 300*time.Second)
	mr.FastForward(301 * time.Second)

	var got payload
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestCache_DeletePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		c.Set(ctx, "task:list:"+time.Duration(i).String(), payload{ID: i}, time.Minute)
	}
	c.Set(ctx, "task:7", payload{ID: 7}, time.Minute)
	c.Set(ctx, "analytics:stats", payload{ID: 8}, time.Minute)

	c.DeletePattern(ctx, "task:list:*")
	assert.Len(t, mr.Keys(), 2)

	c.DeletePattern(ctx, "task:*")
	assert.Equal(t, []string{"analytics:stats"}, mr.Keys())
}

func TestCache_DeletePatternAcrossBatches(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		n := strconv.Itoa(i)
		c.Set(ctx, "analytics:stats:"+n, payload{ID: i}, time.Minute)
		if i%3 == 0 {
			c.Set(ctx, "user:"+n+":profile", payload{ID: i}, time.Minute)
		}
	}

	c.DeletePattern(ctx, "analytics:*")

	keys := mr.Keys()
	assert.Len(t, keys, 334)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "user:"), k)
	}
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("broken", "{not json"))

	var got payload
	assert.False(t, c.Get(context.Background(), "broken", &got))
}

func TestCache_StoreFailureIsSilent(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	var got payload
	assert.NotPanics(t, func() {
		c.Set(ctx, "k", payload{}, time.Minute)
		assert.False(t, c.Get(ctx, "k", &got))
		c.Delete(ctx, "k")
		c.DeletePattern(ctx, "*")
	})
}

func TestCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Cache{nil, Disabled(logger.Discard())} {
		assert.False(t, c.Enabled())
		assert.Nil(t, c.Client())
		c.Set(ctx, "k", payload{}, time.Minute)
		var got payload
		assert.False(t, c.Get(ctx, "k", &got))
		c.Delete(ctx, "k")
		c.DeletePattern(ctx, "*")
		assert.NoError(t, c.Ping(ctx))
		assert.NoError(t, c.Close())
	}
}

func TestConnect_UnreachableStoreDisablesCache(t *testing.T) {
	start := time.Now()
	c := Connect(context.Background(), Options{Addr: "127.0.0.1:1", ConnectTimeout: 200 * time.Millisecond}, logger.Discard())

	assert.False(t, c.Enabled())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConnect_ReachableStore(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Connect(context.Background(), Options{Addr: mr.Addr(), ConnectTimeout: time.Second}, logger.Discard())
	t.Cleanup(func() { c.Close() })

	assert.True(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()))
}
