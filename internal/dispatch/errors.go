package dispatch

import (
	"fmt"

	"github.com/atelierhq/atelier/internal/quota"
)

// ActionNotFoundError reports a dispatch for an unregistered action
// name — a client error.
type ActionNotFoundError struct {
	Kind Kind
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("dispatch: unknown action %q", e.Kind)
}

// QuotaExceededError carries the gate's full decision so the caller can
// render an actionable message without re-querying usage.
type QuotaExceededError struct {
	Decision quota.Decision
}

func (e *QuotaExceededError) Error() string {
	return "dispatch: quota exceeded: " + e.Decision.Message()
}

// HandlerError wraps whatever the capability handler reported.
// Retryable marks transient backend failures the caller may retry; the
// dispatcher itself never retries, since handlers may have partial side
// effects that are not proven idempotent.
type HandlerError struct {
	Kind      Kind
	Retryable bool
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("dispatch: action %q failed: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
