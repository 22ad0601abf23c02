package sheets

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// CacheEntry is one cached sheet with its ETag and expiry.
type CacheEntry struct {
	Data      SheetData
	ETag      string
	ExpiresAt time.Time
}

func (e CacheEntry) Expired() bool { return time.Now().After(e.ExpiresAt) }

type cacheKey struct {
	spreadsheetID string
	gid           string
}

// Cache holds fetched sheets for the poll interval so client requests
// never hit the Google API directly.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]CacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[cacheKey]CacheEntry)}
}

// ComputeETag hashes the sheet content. Struct field order makes the
// JSON encoding deterministic.
func ComputeETag(data SheetData) string {
	raw, _ := json.Marshal(data)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum)[:16])
}

func (c *Cache) Get(spreadsheetID, gid string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{spreadsheetID, gid}
	entry, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	if entry.Expired() {
		delete(c.entries, key)
		return CacheEntry{}, false
	}
	return entry, true
}

func (c *Cache) Set(spreadsheetID, gid string, data SheetData) CacheEntry {
	entry := CacheEntry{
		Data:      data,
		ETag:      ComputeETag(data),
		ExpiresAt: time.Now().Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[cacheKey{spreadsheetID, gid}] = entry
	c.mu.Unlock()
	return entry
}

func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.Expired() {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]CacheEntry)
}
