package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache stores market snapshots for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) (models.MarketContext, bool, error)
	Set(ctx context.Context, key string, snapshot models.MarketContext, ttl time.Duration) error
}

type memoryEntry struct {
	snapshot models.MarketContext
	expires  time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (models.MarketContext, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return copyContext(e.snapshot), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, snapshot models.MarketContext, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		snapshot: copyContext(snapshot),
		expires:  c.now().Add(ttl),
	}
	return nil
}

// RedisCache shares snapshots between processes.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis instance at url and pings it.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, prefix: "crecontent:market:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.MarketContext, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var snapshot models.MarketContext
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, snapshot models.MarketContext, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func copyContext(m models.MarketContext) models.MarketContext {
	if m == nil {
		return nil
	}
	out := make(models.MarketContext, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
