package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	"github.com/atelierhq/atelier/internal/knowledge"
)

// DefaultSearchTTL bounds how long a cached result list may be served.
const DefaultSearchTTL = 300 * time.Second

// SearchFunc performs the real search on a cache miss; in practice it
// embeds the query and calls the knowledge adapter.
type SearchFunc func(ctx context.Context, query, scopeID string, topK int) ([]knowledge.Result, error)

type searchKey struct {
	query   string
	scopeID string
	topK    int
}

type searchEntry struct {
	results  []knowledge.Result
	storedAt time.Time
}

// SearchCache maps (normalized query, scope, result count) to a ranked
// result list. Entries expire by TTL and are removed in bulk by scope:
// any handler that writes knowledge in a scope must call
// InvalidateScope before it returns, so a read after a write never sees
// pre-write results.
type SearchCache struct {
	search SearchFunc
	ttl    time.Duration

	// Clock is injectable for TTL tests; defaults to the real clock.
	Clock quartz.Clock

	hits   atomic.Int64
	misses atomic.Int64

	mu      sync.RWMutex
	entries map[searchKey]searchEntry
	byScope map[string]map[searchKey]struct{}
	// gens counts invalidations per scope. A search snapshots its
	// scope's generation before hitting the backend and stores the
	// outcome only if no invalidation happened in between.
	gens map[string]uint64
}

// NewSearchCache creates a cache over search with the given TTL
// (DefaultSearchTTL if ttl is not positive).
func NewSearchCache(search SearchFunc, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	return &SearchCache{
		search:  search,
		ttl:     ttl,
		Clock:   quartz.NewReal(),
		entries: make(map[searchKey]searchEntry),
		byScope: make(map[string]map[searchKey]struct{}),
		gens:    make(map[string]uint64),
	}
}

// GetOrSearch returns cached results when a non-expired entry exists,
// otherwise performs the real search and caches the outcome. A failed
// search is never cached.
func (c *SearchCache) GetOrSearch(ctx context.Context, query, scopeID string, topK int) ([]knowledge.Result, error) {
	key := searchKey{query: Normalize(query), scopeID: scopeID, topK: topK}
	now := c.Clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	gen := c.gens[scopeID]
	c.mu.RUnlock()
	if ok && now.Sub(entry.storedAt) < c.ttl {
		c.hits.Add(1)
		return entry.results, nil
	}
	c.misses.Add(1)

	results, err := c.search(ctx, query, scopeID, topK)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[scopeID] == gen {
		c.entries[key] = searchEntry{results: results, storedAt: c.Clock.Now()}
		scoped, ok := c.byScope[scopeID]
		if !ok {
			scoped = make(map[searchKey]struct{})
			c.byScope[scopeID] = scoped
		}
		scoped[key] = struct{}{}
	}
	c.mu.Unlock()

	return results, nil
}

// InvalidateScope removes every cached entry for scopeID and bars any
// search already in flight for that scope from repopulating the cache
// with pre-invalidation results. Entries in other scopes are untouched.
// Returns the number of entries removed.
func (c *SearchCache) InvalidateScope(scopeID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[scopeID]++
	scoped := c.byScope[scopeID]
	for key := range scoped {
		delete(c.entries, key)
	}
	delete(c.byScope, scopeID)
	return len(scoped)
}

// Len returns the current entry count, expired entries included.
func (c *SearchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *SearchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
