package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Default TTLs per key class. Companies are read-mostly reference data,
// order rows churn continuously.
const (
	DefaultTTL    = 5 * time.Minute
	TTLCompanies  = time.Hour
	TTLMenuItems  = 30 * time.Minute
	TTLOrders     = 5 * time.Minute
	TTLOrderItems = 10 * time.Minute
	TTLOptions    = 10 * time.Minute
)

// entry wraps a cached value with its write timestamp. Expiry is evaluated
// lazily at read time; there is no background sweeper.
type entry struct {
	value     any
	writtenAt time.Time
}

// QueryCache is a TTL memo layer in front of expensive joins and remote
// reads. Safe for concurrent get/set/invalidate from multiple goroutines.
type QueryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	logger     *zap.Logger

	hits   int64
	misses int64
}

// NewQueryCache creates a query cache with the given default TTL.
// A non-positive ttl falls back to DefaultTTL.
func NewQueryCache(defaultTTL time.Duration, logger *zap.Logger) *QueryCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Get returns the cached value for key if it is younger than ttl.
// An entry older than its TTL is treated as absent and dropped.
// A non-positive ttl uses the cache default.
func (c *QueryCache) Get(key string, ttl time.Duration) (any, bool) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if time.Since(e.writtenAt) > ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, still := c.entries[key]; still && time.Since(cur.writtenAt) > ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	c.logger.Debug("query cache hit", zap.String("key", key))
	return e.value, true
}

// Set stores a value under key with the current timestamp.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, writtenAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate removes every key containing the substring pattern.
// An empty pattern clears the whole cache.
func (c *QueryCache) Invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.entries = make(map[string]entry)
		return
	}
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
}

// Stats returns hit/miss counters and the current entry count.
func (c *QueryCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	size = len(c.entries)
	c.mu.RUnlock()
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), size
}
