// Package knowledge is the boundary around the semantic knowledge store:
// the embedding model and the vector similarity backend.
//
// The Adapter wraps both behind timeouts and bounded retries. Callers in
// the dispatch core never talk to a backend directly — they go through
// the caches in internal/cache, which sit strictly in front of the
// Adapter.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Embedder turns text into a vector. Implementations may call out to a
// remote model; the Adapter bounds that call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher ranks stored documents in a scope against a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, scopeID string, topK int) ([]Result, error)
}

// Document is a piece of knowledge imported into a scope (a project).
type Document struct {
	ID        string    `json:"id"`
	ScopeID   string    `json:"scope_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is one ranked hit from a similarity search.
type Result struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// Sentinel causes for backend failures. Both are retryable from the
// caller's point of view; the adapter has already retried internally.
var (
	ErrBackendTimeout     = errors.New("knowledge: backend timeout")
	ErrBackendUnavailable = errors.New("knowledge: backend unavailable")
)

// BackendError wraps a failure from the embedding or search backend
// after internal retries were exhausted.
type BackendError struct {
	Op  string // "embed" or "search"
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("knowledge: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is a transient backend failure
// the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendTimeout) || errors.Is(err, ErrBackendUnavailable)
}
