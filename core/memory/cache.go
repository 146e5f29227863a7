package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 1e4
	defaultBufferItems = 64
	defaultCacheTTL    = 15 * time.Minute
)

// CacheConfig configures the in-process memory cache.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

// Cache is an in-process cache of agent memories keyed by
// (agent, script, revision). Explicitly constructed and injected rather
// than process-global, so tests get isolated instances.
type Cache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// NewCache creates a Cache with the given configuration. Zero fields fall
// back to defaults.
func NewCache(config *CacheConfig) (*Cache, error) {
	cfg := applyCacheDefaults(config)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		cache: cache,
		ttl:   cfg.TTL,
	}, nil
}

func applyCacheDefaults(config *CacheConfig) *CacheConfig {
	cfg := &CacheConfig{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
		TTL:         defaultCacheTTL,
	}
	if config == nil {
		return cfg
	}
	if config.NumCounters > 0 {
		cfg.NumCounters = config.NumCounters
	}
	if config.MaxCost > 0 {
		cfg.MaxCost = config.MaxCost
	}
	if config.BufferItems > 0 {
		cfg.BufferItems = config.BufferItems
	}
	if config.TTL > 0 {
		cfg.TTL = config.TTL
	}
	return cfg
}

// CacheKey builds the canonical key for an (agent, script, revision) triple.
func CacheKey(agentID, scriptID, revisionID string) string {
	return strings.Join([]string{agentID, scriptID, revisionID}, ":")
}

// Get returns the cached memory for the triple, if present.
func (c *Cache) Get(agentID, scriptID, revisionID string) (*AgentMemory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}

	value, found := c.cache.Get(CacheKey(agentID, scriptID, revisionID))
	if !found {
		return nil, false
	}
	mem, ok := value.(*AgentMemory)
	return mem, ok
}

// Set stores the memory under its own triple.
func (c *Cache) Set(mem *AgentMemory) bool {
	if mem == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}

	key := CacheKey(mem.AgentID, mem.ScriptID, mem.RevisionID)
	return c.cache.SetWithTTL(key, mem, 1, c.ttl)
}

// Delete removes the triple from the cache.
func (c *Cache) Delete(agentID, scriptID, revisionID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.cache.Del(CacheKey(agentID, scriptID, revisionID))
}

// Wait blocks until buffered writes are applied. Test helper.
func (c *Cache) Wait() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		c.cache.Wait()
	}
}

// Close releases cache resources.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.cache.Close()
		c.closed = true
	}
}
