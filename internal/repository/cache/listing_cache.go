package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"wanderlust/internal/model"

	"github.com/redis/go-redis/v9"
)

// ListingCache stores populated listings for single-listing reads.
// A nil listing with a nil error from Get is a cache miss.
//
// Every Delete bumps the listing's generation. Set only stores when the
// generation still equals the one read before the listing was loaded, so a
// fill that raced an invalidation is dropped.
type ListingCache interface {
	Get(ctx context.Context, id string) (*model.Listing, error)
	Generation(ctx context.Context, id string) (int64, error)
	Set(ctx context.Context, l *model.Listing, gen int64) error
	Delete(ctx context.Context, id string) error
}

func key(id string) string    { return "listing:" + id }
func genKey(id string) string { return "listing:gen:" + id }

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// A missing generation key counts as 0. ARGV[3] is the TTL in ms, 0 for none.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// RedisListingCache is a ListingCache backed by redis.
type RedisListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisListingCache pings the server once before returning the cache.
func NewRedisListingCache(ctx context.Context, client *redis.Client, ttl time.Duration) (*RedisListingCache, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisListingCache{client: client, ttl: ttl}, nil
}

func (c *RedisListingCache) Get(ctx context.Context, id string) (*model.Listing, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l model.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *RedisListingCache) Generation(ctx context.Context, id string) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisListingCache) Set(ctx context.Context, l *model.Listing, gen int64) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return setIfGeneration.Run(ctx, c.client,
		[]string{key(l.ID), genKey(l.ID)},
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds(),
	).Err()
}

// Delete bumps the generation before dropping the entry. Generation keys
// carry no TTL; an expired counter would restart at 0 and accept stale fills.
func (c *RedisListingCache) Delete(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(id))
		p.Del(ctx, key(id))
		return nil
	})
	return err
}

// Noop is used when no redis address is configured. Every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) (*model.Listing, error) { return nil, nil }
func (Noop) Generation(context.Context, string) (int64, error)   { return 0, nil }
func (Noop) Set(context.Context, *model.Listing, int64) error    { return nil }
func (Noop) Delete(context.Context, string) error                { return nil }

var (
	_ ListingCache = (*RedisListingCache)(nil)
	_ ListingCache = Noop{}
)
