package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultMaxEntries bounds the in-memory cache.
const DefaultMaxEntries = 4096

// cacheEntry holds a cached value with its insertion time.
type cacheEntry struct {
	value    string
	storedAt time.Time
	seq      uint64
}

// slot records one insertion; it is stale once its key was stored again.
type slot struct {
	key string
	seq uint64
}

// InMemoryCache is a thread-safe in-memory cache with TTL support. When full,
// the oldest entry is evicted.
type InMemoryCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	order      []slot
	seq        uint64
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
}

// Option configures an InMemoryCache.
type Option func(*InMemoryCache)

// WithClock sets the clock used for expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *InMemoryCache) {
		c.clock = clock
	}
}

// WithMaxEntries sets the capacity. Values below 1 keep the default.
func WithMaxEntries(n int) Option {
	return func(c *InMemoryCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
// If ttlSeconds is 0 or negative, entries never expire.
func NewInMemoryCache(ttlSeconds int, opts ...Option) *InMemoryCache {
	c := &InMemoryCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: DefaultMaxEntries,
		clock:      clockwork.NewRealClock(),
	}
	if ttlSeconds > 0 {
		c.ttl = time.Duration(ttlSeconds) * time.Second
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the value and true if found and not expired.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}

	if c.expired(entry, c.clock.Now()) {
		delete(c.entries, key)
		return "", false
	}

	return entry.value, true
}

// Set stores a value in the cache.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.order = append(c.order, slot{key: key, seq: c.seq})
	c.entries[key] = cacheEntry{value: value, storedAt: c.clock.Now(), seq: c.seq}

	// Expired entries make room before live ones are evicted.
	if len(c.entries) > c.maxEntries {
		c.sweepLocked()
	}
	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if entry, ok := c.entries[oldest.key]; ok && entry.seq == oldest.seq {
			delete(c.entries, oldest.key)
		}
	}
	c.compactOrder()

	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *InMemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *InMemoryCache) sweepLocked() int {
	now := c.clock.Now()
	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.compactOrder()
	return removed
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
}

func (c *InMemoryCache) expired(entry cacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.storedAt) > c.ttl
}

// compactOrder drops stale slots once they dominate the insertion log.
func (c *InMemoryCache) compactOrder() {
	if len(c.order) <= 2*len(c.entries)+16 {
		return
	}
	live := make([]slot, 0, len(c.entries))
	for _, s := range c.order {
		if entry, ok := c.entries[s.key]; ok && entry.seq == s.seq {
			live = append(live, s)
		}
	}
	c.order = live
}

// Verify InMemoryCache implements TranslationCache
var _ TranslationCache = (*InMemoryCache)(nil)
