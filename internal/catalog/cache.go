package catalog

import (
	"sync"
	"time"
)

type cacheEntry struct {
	entries    []Entry
	fetchedAt  time.Time
	lastAccess time.Time
	sliding    time.Duration
	absolute   time.Time // hard ceiling, never moved after fill
}

// Cache holds one catalog per target with sliding + absolute expiration.
//
// A read is a hit only while now < lastAccess+sliding AND now < absolute.
// Policy: every hit slides the window forward from the access time; the
// absolute ceiling set at fill time is the only relied-upon guarantee.
// Expired entries are removed on read (lazy check, no background sweep).
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	now   func() time.Time // overridable in tests
}

func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		now:   time.Now,
	}
}

// Get returns the cached catalog for a target, or false on miss/expiry.
func (c *Cache) Get(targetName string) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[targetName]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.After(item.absolute) || now.After(item.lastAccess.Add(item.sliding)) {
		delete(c.items, targetName)
		return nil, false
	}

	item.lastAccess = now
	return item.entries, true
}

// Set replaces the target's catalog wholesale. Readers never observe a
// half-updated entry set.
func (c *Cache) Set(targetName string, entries []Entry, sliding, absolute time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[targetName] = &cacheEntry{
		entries:    entries,
		fetchedAt:  now,
		lastAccess: now,
		sliding:    sliding,
		absolute:   now.Add(absolute),
	}
}

// Invalidate drops the target's catalog, if present.
func (c *Cache) Invalidate(targetName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, targetName)
}
