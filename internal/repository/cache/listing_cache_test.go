package cache

import (
	"context"
	"testing"
	"time"

	"wanderlust/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "listing:64b7f0c2a1b2c3d4e5f60718", key("64b7f0c2a1b2c3d4e5f60718"))
	assert.Equal(t, "listing:gen:64b7f0c2a1b2c3d4e5f60718", genKey("64b7f0c2a1b2c3d4e5f60718"))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c ListingCache = Noop{}

	assert.NoError(t, c.Set(ctx, &model.Listing{ID: "x"}, 0))
	gen, err := c.Generation(ctx, "x")
	assert.NoError(t, err)
	assert.Zero(t, gen)
	l, err := c.Get(ctx, "x")
	assert.NoError(t, err)
	assert.Nil(t, l)
	assert.NoError(t, c.Delete(ctx, "x"))
}

func TestNewRedisListingCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	c, err := NewRedisListingCache(context.Background(), client, time.Minute)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestRedisListingCacheErrorsSurface(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := &RedisListingCache{client: client, ttl: time.Minute}
	ctx := context.Background()

	l, err := c.Get(ctx, "x")
	assert.Error(t, err)
	assert.Nil(t, l)
	_, err = c.Generation(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, &model.Listing{ID: "x"}, 0))
	assert.Error(t, c.Delete(ctx, "x"))
}
