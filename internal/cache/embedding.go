package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultMaxEntries is the embedding cache's default entry ceiling.
const DefaultMaxEntries = 10_000

// EmbedFunc computes the embedding for a text. The cache calls it on a
// miss; in practice this is the knowledge adapter's Embed.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type embeddingEntry struct {
	vector []float32
	seq    uint64
}

type orderEntry struct {
	key string
	seq uint64
}

// EmbeddingCache maps normalized text to its vector. Text→vector is a
// pure function, so entries never expire by time; the cache is bounded
// by entry count with insertion-order eviction — recency of use is not
// tracked, only insertion.
//
// A miss-then-populate race between two callers is tolerated: both
// compute, the last writer overwrites with an equivalent value.
type EmbeddingCache struct {
	embed EmbedFunc
	max   int

	hits   atomic.Int64
	misses atomic.Int64

	mu      sync.RWMutex
	seq     uint64
	entries map[string]embeddingEntry
	order   []orderEntry
}

// NewEmbeddingCache creates a cache over embed with the given entry
// ceiling (DefaultMaxEntries if maxEntries is not positive).
func NewEmbeddingCache(embed EmbedFunc, maxEntries int) *EmbeddingCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &EmbeddingCache{
		embed:   embed,
		max:     maxEntries,
		entries: make(map[string]embeddingEntry),
	}
}

// GetOrCompute returns the vector for text, computing and storing it on
// a miss. The returned slice is shared — callers must not mutate it.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, text string) ([]float32, error) {
	key := contentKey(Normalize(text))

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return entry.vector, nil
	}
	c.misses.Add(1)

	// Compute outside the lock; a duplicate computation on a racing
	// miss is bounded and rare, so it is not deduplicated.
	vector, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.seq++
	c.entries[key] = embeddingEntry{vector: vector, seq: c.seq}
	c.order = append(c.order, orderEntry{key: key, seq: c.seq})
	c.evictLocked()
	c.mu.Unlock()

	return vector, nil
}

// evictLocked drops the oldest-inserted entries until the cache is back
// under its ceiling. Stale order records (overwritten or already
// evicted keys) are skipped by sequence comparison.
func (c *EmbeddingCache) evictLocked() {
	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if entry, ok := c.entries[oldest.key]; ok && entry.seq == oldest.seq {
			delete(c.entries, oldest.key)
		}
	}
}

// Len returns the current entry count.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
