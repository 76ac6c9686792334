// Package tenantcache resolves institutions by subdomain through an
// in-memory layer, an optional Redis layer and finally the database.
package tenantcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/logger"
	"github.com/yigit/electivepro/internal/pkg/metrics"
)

const keyPrefix = "electivepro:tenant:"

// Loader reads an institution from the system of record.
type Loader interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error)
}

// Options configures a Cache. Redis may be nil to run memory-only.
type Options struct {
	Redis    goredis.Cmdable
	MemTTL   time.Duration
	RedisTTL time.Duration
	Clock    clockwork.Clock
	Metrics  *metrics.CacheMetrics
}

// Cache is a read-through tenant lookup cache.
type Cache struct {
	rdb      goredis.Cmdable
	loader   Loader
	mem      *memoryCache
	redisTTL time.Duration
	metrics  *metrics.CacheMetrics
}

// New creates a Cache in front of loader.
func New(loader Loader, opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MemTTL <= 0 {
		opts.MemTTL = 5 * time.Minute
	}
	if opts.RedisTTL <= 0 {
		opts.RedisTTL = time.Hour
	}
	return &Cache{
		rdb:      opts.Redis,
		loader:   loader,
		mem:      newMemoryCache(opts.MemTTL, opts.Clock),
		redisTTL: opts.RedisTTL,
		metrics:  opts.Metrics,
	}
}

// StartEvictionTimer periodically drops expired memory entries.
// The returned function stops the timer.
func (c *Cache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.mem.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					logger.Debug().Int("count", evicted).Int("remaining", c.mem.size()).Msg("Evicted expired tenant cache entries")
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// GetBySubdomain returns the institution for subdomain. Loader errors are
// returned wrapped so callers can match not-found sentinels.
func (c *Cache) GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error) {
	if inst, ok := c.mem.get(subdomain); ok {
		c.metrics.Observe("memory")
		return inst, nil
	}

	if inst, ok := c.getCached(ctx, subdomain); ok {
		c.metrics.Observe("redis")
		c.mem.set(subdomain, inst)
		return inst, nil
	}

	inst, err := c.loader.GetBySubdomain(ctx, subdomain)
	if err != nil {
		c.metrics.Observe("miss")
		return nil, fmt.Errorf("tenant lookup for %q failed: %w", subdomain, err)
	}

	c.metrics.Observe("database")
	c.mem.set(subdomain, inst)
	c.writeCache(ctx, subdomain, inst)
	return inst, nil
}

// Invalidate drops subdomain from both layers.
func (c *Cache) Invalidate(ctx context.Context, subdomain string) error {
	c.metrics.Invalidated()
	c.mem.invalidate(subdomain)

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, cacheKey(subdomain)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}
	return nil
}

func (c *Cache) writeCache(ctx context.Context, subdomain string, inst *models.Institution) {
	if c.rdb == nil {
		return
	}

	encoded, err := json.Marshal(inst)
	if err != nil {
		logger.Warn().Err(err).Str("subdomain", subdomain).Msg("Failed to marshal institution for Redis cache")
		return
	}

	if err := c.rdb.Set(ctx, cacheKey(subdomain), encoded, c.redisTTL).Err(); err != nil {
		logger.Warn().Err(err).Str("subdomain", subdomain).Msg("Failed to populate Redis tenant cache")
	}
}

func (c *Cache) getCached(ctx context.Context, subdomain string) (*models.Institution, bool) {
	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, cacheKey(subdomain)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warn().Err(err).Str("subdomain", subdomain).Msg("Redis tenant cache GET failed")
		}
		return nil, false
	}

	var inst models.Institution
	if err := json.Unmarshal(data, &inst); err != nil {
		logger.Warn().Err(err).Str("subdomain", subdomain).Msg("Failed to unmarshal cached institution")
		return nil, false
	}
	return &inst, true
}

func cacheKey(subdomain string) string {
	return keyPrefix + subdomain
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryEntry struct {
	inst      models.Institution
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry), ttl: ttl, clock: clock}
}

// get returns a copy so callers cannot mutate the cached value.
func (m *memoryCache) get(key string) (*models.Institution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok || m.clock.Now().After(entry.expiresAt) {
		return nil, false
	}
	inst := entry.inst
	return &inst, true
}

func (m *memoryCache) set(key string, inst *models.Institution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{inst: *inst, expiresAt: m.clock.Now().Add(m.ttl)}
}

func (m *memoryCache) invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *memoryCache) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryCache) evictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	evicted := 0
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			evicted++
		}
	}
	return evicted
}
