package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/data/redisStore"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

// Cache stores JSON encoded values under a key for a bounded time.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type redisCache struct {
	store  *redisStore.Store
	prefix string
	logger *logger_i.Logger
}

// New returns a redis backed cache, or an in-memory one when redis is offline and
// the fallback is enabled.
func New(ctx context.Context, opts redisStore.Options, prefix string) Cache {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisCacheStore)
	if s == nil {
		if config.FALLBACK_REDIS_TO_INTERNALSTORE {
			logger_i.NewLogger("Cache").Warn("Redis offline, using in-memory cache", "prefix", prefix)
			return NewInMemory()
		}
		return nil
	}
	return NewRedis(s, prefix)
}

func NewRedis(s *redisStore.Store, prefix string) Cache {
	return &redisCache{
		store:  s,
		prefix: prefix,
		logger: logger_i.NewLogger("Cache"),
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.store.Get(ctx, c.prefix+key)
	if c.store.IsNil(err) {
		return false, nil
	} else if err != nil {
		c.logger.Ctx(ctx).Error("Cache read failed", "key", key, "error", err)
		return false, err
	}
	if err = json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.prefix+key, data, ttl)
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.prefix+key)
}

type entry struct {
	data    []byte
	expires time.Time
}

type inMemoryCache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewInMemory() Cache {
	return &inMemoryCache{
		items: make(map[string]entry),
		now:   time.Now,
	}
}

func (c *inMemoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *inMemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return nil
}

func (c *inMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
