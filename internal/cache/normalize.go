// Package cache holds the two caches that sit strictly in front of the
// knowledge store adapter: a content-addressed embedding cache and a
// TTL-bounded search result cache with scope-keyed invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize is the single normalization rule for cache keys: trim,
// case-fold, and collapse internal whitespace runs to one space. It is
// applied identically at cache-write and cache-read time — "Hello" and
// "hello" share one entry.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// contentKey addresses normalized text by its sha256 digest.
func contentKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
