package vfs

import (
	"sync"
	"time"
)

// RootCache caches account storage roots with a short TTL. It is an
// explicit, injected object — never ambient global state — and supports
// explicit invalidation when a profile's storage path changes. Two
// requests refreshing the same entry concurrently is a benign race: the
// lookup is idempotent.
type RootCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[int]rootEntry
}

type rootEntry struct {
	root      string
	fetchedAt time.Time
}

// NewRootCache creates a cache with the given TTL.
func NewRootCache(ttl time.Duration) *RootCache {
	return &RootCache{
		ttl:     ttl,
		entries: make(map[int]rootEntry),
	}
}

// Get returns the cached storage root for an account, if fresh.
func (c *RootCache) Get(accountID int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[accountID]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return "", false
	}
	return entry.root, true
}

// Put stores a storage root for an account.
func (c *RootCache) Put(accountID int, root string) {
	c.mu.Lock()
	c.entries[accountID] = rootEntry{root: root, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops the cached root for an account. Called on profile
// storage-path updates.
func (c *RootCache) Invalidate(accountID int) {
	c.mu.Lock()
	delete(c.entries, accountID)
	c.mu.Unlock()
}
