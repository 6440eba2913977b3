package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// PublicCache caches rendered public query results. Implementations must
// never fail a request: errors are logged and treated as misses.
//
// A fill is a Get miss followed by Set with the returned slot. The slot is
// fixed at Get time, so a result read from the database before an
// Invalidate can never be stored where readers after it will look.
type PublicCache interface {
	// Get decodes the cached value for key into dst. On a miss it returns
	// the slot to fill; an empty slot means the result must not be stored.
	Get(ctx context.Context, key string, dst any) (slot string, hit bool)
	Set(ctx context.Context, slot string, v any)

	// Invalidate drops every cached entry.
	Invalidate(ctx context.Context)
}

const (
	cachePrefix = "folio:content:"
	genKey      = cachePrefix + "gen"
)

// redisCache stores entries under a generation-scoped key. Invalidate bumps
// the generation so stale entries are never read again and expire by TTL.
type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a PublicCache backed by Redis.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) PublicCache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sv%d:%s", cachePrefix, gen, key), nil
}

func (c *redisCache) Get(ctx context.Context, key string, dst any) (string, bool) {
	full, err := c.key(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "content cache unavailable", slog.Any("error", err))
		return "", false
	}
	data, err := c.rdb.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return full, false
	}
	if err != nil {
		slog.WarnContext(ctx, "content cache read failed", slog.String("key", full), slog.Any("error", err))
		return "", false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.WarnContext(ctx, "content cache entry corrupt", slog.String("key", full), slog.Any("error", err))
		return full, false
	}
	return full, true
}

func (c *redisCache) Set(ctx context.Context, slot string, v any) {
	if slot == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.WarnContext(ctx, "encoding content cache entry", slog.Any("error", err))
		return
	}
	if err := c.rdb.Set(ctx, slot, data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "content cache write failed", slog.String("key", slot), slog.Any("error", err))
	}
}

func (c *redisCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, genKey).Err(); err != nil {
		slog.ErrorContext(ctx, "content cache invalidation failed", slog.Any("error", err))
	}
}

// nopCache is used when Redis is not configured.
type nopCache struct{}

// NopCache returns a PublicCache that never stores anything.
func NopCache() PublicCache { return nopCache{} }

func (nopCache) Get(context.Context, string, any) (string, bool) { return "", false }
func (nopCache) Set(context.Context, string, any)                {}
func (nopCache) Invalidate(context.Context)                      {}
