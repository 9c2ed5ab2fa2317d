package session

import (
	"strings"
	"sync"
	"time"
)

// cacheEntry is one stored GET response.
type cacheEntry struct {
	body     []byte
	headers  map[string]string
	status   int
	path     string
	storedAt time.Time
}

// responseCache stores idempotent GET responses keyed by
// method+path+canonicalized query. It is owned exclusively by one
// Client; expired entries are evicted lazily on lookup and mutating
// calls invalidate the whole resource family.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey derives the canonical key for a request. Query parameters
// are sorted so parameter order never splits the cache.
func cacheKey(method, path, canonicalQuery string) string {
	if canonicalQuery == "" {
		return method + " " + path
	}
	return method + " " + path + "?" + canonicalQuery
}

// get returns a live cached response, evicting the entry if expired.
func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		// re-check: another writer may have refreshed the entry
		if cur, ok := c.entries[key]; ok && c.now().Sub(cur.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return &Response{
		StatusCode: entry.status,
		Headers:    entry.headers,
		Body:       entry.body,
		Cached:     true,
	}, true
}

// set stores a successful response.
func (c *responseCache) set(key, path string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		body:     resp.Body,
		headers:  resp.Headers,
		status:   resp.StatusCode,
		path:     path,
		storedAt: c.now(),
	}
}

// invalidateFamily removes every entry in the same resource family as
// the mutating path: entries whose path is a segment-prefix of the
// mutating path, or of which the mutating path is a segment-prefix.
// A POST to /orders drops the cached GET /orders/historical/batch
// listing, and a POST to /orders/batch_cancel drops GET /orders.
func (c *responseCache) invalidateFamily(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if segmentPrefix(entry.path, path) || segmentPrefix(path, entry.path) {
			delete(c.entries, key)
		}
	}
}

// len reports the number of stored entries, live or expired.
func (c *responseCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// segmentPrefix reports whether prefix is a path-segment prefix of
// path, so "/orders" matches "/orders/historical" but not "/orders2".
func segmentPrefix(path, prefix string) bool {
	path = strings.TrimSuffix(path, "/")
	prefix = strings.TrimSuffix(prefix, "/")

	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
