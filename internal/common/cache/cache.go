// internal/common/cache/cache.go
package cache

import (
	"context"
	stderrors "errors"
	"time"

	"immo-workers/internal/common/database"
	"immo-workers/internal/common/logger"
)

// Cache is a best-effort Redis read-through cache. Redis failures are
// logged and fall through to the loader.
type Cache struct {
	redis  *database.RedisClient
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func New(redis *database.RedisClient, prefix string, ttl time.Duration, log logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Cache{redis: redis, prefix: prefix, ttl: ttl, logger: log}
}

func (c *Cache) Key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Invalidate removes the entry whose key is built from parts. Failures are
// logged and returned.
func (c *Cache) Invalidate(ctx context.Context, parts ...string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	key := c.Key(parts...)
	if err := c.redis.Del(ctx, key); err != nil {
		c.logger.WithError(err).Warn("cache invalidate failed", map[string]interface{}{"key": key})
		return err
	}
	return nil
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. A nil cache always loads.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if c == nil || c.redis == nil || c.ttl <= 0 {
		return load(ctx)
	}

	var cached T
	err := c.redis.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !stderrors.Is(err, database.ErrCacheMiss) {
		c.logger.WithError(err).Warn("cache read failed", map[string]interface{}{"key": key})
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.redis.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.logger.WithError(err).Warn("cache write failed", map[string]interface{}{"key": key})
	}
	return value, nil
}
