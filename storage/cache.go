package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cache wraps a slower Backend with a Redis read-through cache. Writes go to
// the base backend first and then replace the cached copy. Read fills only
// populate an empty slot, so a fill racing a write never overwrites the
// written value.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper around base.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, visitorID, key string) ([]byte, error) {
	if data, ok := c.load(ctx, visitorID, key); ok {
		return data, nil
	}
	data, err := c.base.Get(ctx, visitorID, key)
	if err != nil {
		return nil, err
	}
	c.store(ctx, visitorID, key, data)
	return data, nil
}

func (c *Cache) Set(ctx context.Context, visitorID, key string, value []byte) error {
	if err := c.base.Set(ctx, visitorID, key, value); err != nil {
		return err
	}
	c.replace(ctx, visitorID, key, value)
	return nil
}

func (c *Cache) Delete(ctx context.Context, visitorID, key string) error {
	if err := c.base.Delete(ctx, visitorID, key); err != nil {
		return err
	}
	c.evict(ctx, visitorID, key)
	return nil
}

func (c *Cache) load(ctx context.Context, visitorID, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(visitorID, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Fall back to the base backend on redis errors.
			log.WithError(err).WithField("visitor", visitorID).Warn("cache read failed")
			_ = c.redis.Del(ctx, cacheKey(visitorID, key)).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, visitorID, key string, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	_ = c.redis.SetNX(ctx, cacheKey(visitorID, key), data, c.ttl).Err()
}

func (c *Cache) replace(ctx context.Context, visitorID, key string, data []byte) {
	if c.redis == nil {
		return
	}
	if c.ttl == 0 {
		c.evict(ctx, visitorID, key)
		return
	}
	if err := c.redis.Set(ctx, cacheKey(visitorID, key), data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("visitor", visitorID).Warn("cache write failed")
		c.evict(ctx, visitorID, key)
	}
}

func (c *Cache) evict(ctx context.Context, visitorID, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, cacheKey(visitorID, key)).Result()
}

func cacheKey(visitorID, key string) string {
	return "cache:" + visitorID + ":" + key
}
