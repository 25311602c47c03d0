package eligibility

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores integer lookups with a TTL. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (value int, ok bool, err error)
	Set(ctx context.Context, key string, value int) error
	Invalidate(ctx context.Context, key string) error
}

// RedisCache keeps values in Redis so every worker replica shares them.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns a cache namespaced under prefix.
func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (int, bool, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value int) error {
	return c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

type memoryItem struct {
	value   int
	expires time.Time
}

// MemoryCache is a process-local cache used when Redis is not configured.
// Expired entries are dropped on read and swept once per TTL on write.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	items     map[string]memoryItem
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return 0, false, nil
	}
	if !c.now().Before(item.expires) {
		delete(c.items, key)
		return 0, false, nil
	}
	return item.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		for k, item := range c.items {
			if !now.Before(item.expires) {
				delete(c.items, k)
			}
		}
		c.lastSweep = now
	}
	c.items[key] = memoryItem{value: value, expires: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func cacheKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// CachedLevels fronts a LevelSource with a cache.
type CachedLevels struct {
	Source LevelSource
	Cache  Cache
}

func (c CachedLevels) Level(ctx context.Context, guildID, userID string) (int, error) {
	return cachedLookup(ctx, c.Cache, cacheKey(guildID, userID), func() (int, error) {
		return c.Source.Level(ctx, guildID, userID)
	})
}

// Invalidate drops a member's cached level, e.g. after a level-up.
func (c CachedLevels) Invalidate(ctx context.Context, guildID, userID string) error {
	return c.Cache.Invalidate(ctx, cacheKey(guildID, userID))
}

// CachedInvites fronts an InviteSource with a cache.
type CachedInvites struct {
	Source InviteSource
	Cache  Cache
}

func (c CachedInvites) NetInvites(ctx context.Context, guildID, userID string) (int, error) {
	return cachedLookup(ctx, c.Cache, cacheKey(guildID, userID), func() (int, error) {
		return c.Source.NetInvites(ctx, guildID, userID)
	})
}

// Invalidate drops a member's cached invite count.
func (c CachedInvites) Invalidate(ctx context.Context, guildID, userID string) error {
	return c.Cache.Invalidate(ctx, cacheKey(guildID, userID))
}

func cachedLookup(ctx context.Context, cache Cache, key string, load func() (int, error)) (int, error) {
	if v, ok, err := cache.Get(ctx, key); err == nil && ok {
		return v, nil
	} else if err != nil {
		log.Printf("eligibility: cache read %s: %v", key, err)
	}

	v, err := load()
	if err != nil {
		return 0, err
	}
	if err := cache.Set(ctx, key, v); err != nil {
		log.Printf("eligibility: cache write %s: %v", key, err)
	}
	return v, nil
}
