package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultSweepThreshold is the entry count above which a write triggers
// a full sweep of expired entries.
const DefaultSweepThreshold = 100

type entry struct {
	value     any
	expiresAt time.Time // zero means the entry never expires
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is a TTL-keyed response cache. The zero value is not usable;
// construct with New.
type Cache struct {
	mu             sync.Mutex
	entries        map[string]entry
	sweepThreshold int
	now            func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithSweepThreshold overrides the entry count that triggers a sweep on
// write.
func WithSweepThreshold(n int) Option {
	return func(c *Cache) { c.sweepThreshold = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:        make(map[string]entry),
		sweepThreshold: DefaultSweepThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, or (nil, false) if the key is
// absent or expired. Expired entries are evicted on the spot.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A ttl <= 0 pins the entry until it
// is explicitly invalidated; use this for values that are cheap to
// invalidate and expensive to refetch, like a resolved calendar ID.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.sweepThreshold {
		c.sweepLocked(now)
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.entries[key] = e
}

// Invalidate removes every entry whose key contains pattern as a
// substring. An empty pattern clears the cache.
func (c *Cache) Invalidate(pattern string) {
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

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() {
	c.Invalidate("")
}

// Len returns the number of entries currently stored, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked(now time.Time) {
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

// Key builds a cache key from an operation name and its canonicalised
// parameters. Parameters must already be in a stable order.
func Key(operation string, params ...string) string {
	if len(params) == 0 {
		return operation
	}
	return operation + "|" + strings.Join(params, "|")
}
