package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/cenkalti/backoff/v4"
)

// Adapter bounds every backend call with a timeout and a small fixed
// number of backoff retries. Every failure is retried until the attempt
// budget or the deadline runs out, then surfaced with a retryable error
// kind for the caller to decide.
//
// Cancellation policy: a caller abandoning its request does not abort
// in-flight backend work — the result can still be cached — but the
// caller's deadline, when shorter than the configured timeout, still
// bounds the call.
type Adapter struct {
	embedder Embedder
	searcher Searcher
	logger   slog.Logger

	timeout       time.Duration
	maxRetries    uint64
	retryInterval time.Duration
}

// AdapterOption customizes an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout sets the per-call deadline for backend operations.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = d }
}

// WithMaxRetries sets how many times a failed call is retried before
// the error is surfaced.
func WithMaxRetries(n uint64) AdapterOption {
	return func(a *Adapter) { a.maxRetries = n }
}

// WithRetryInterval sets the initial backoff interval. Tests shrink it.
func WithRetryInterval(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.retryInterval = d }
}

// NewAdapter wraps the embedding model and search backend.
func NewAdapter(embedder Embedder, searcher Searcher, logger slog.Logger, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		embedder:      embedder,
		searcher:      searcher,
		logger:        logger,
		timeout:       10 * time.Second,
		maxRetries:    2,
		retryInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Embed returns the vector for text, retrying transient failures.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := a.call(ctx, "embed", func(callCtx context.Context) error {
		var err error
		vector, err = a.embedder.Embed(callCtx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// Search ranks documents in scopeID against the query vector.
func (a *Adapter) Search(ctx context.Context, vector []float32, scopeID string, topK int) ([]Result, error) {
	var results []Result
	err := a.call(ctx, "search", func(callCtx context.Context) error {
		var err error
		results, err = a.searcher.Search(callCtx, vector, scopeID, topK)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Adapter) call(ctx context.Context, op string, fn func(context.Context) error) error {
	timeout := a.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	// Detach from the caller's cancellation so an abandoned request
	// still completes and can populate the cache; keep the time bound.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = a.retryInterval
	eb.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn(callCtx)
		if err != nil {
			a.logger.Warn(callCtx, "backend call failed",
				slog.F("op", op),
				slog.F("attempt", attempt),
				slog.Error(err),
			)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(eb, a.maxRetries), callCtx))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Op: op, Err: ErrBackendTimeout}
	}
	return &BackendError{Op: op, Err: fmt.Errorf("%w: %v", ErrBackendUnavailable, err)}
}
