// Package dispatch routes typed actions to capability handlers.
//
// It is the single entry point for the transport layer: one Dispatch
// call runs the quota gate, invokes the handler, records usage, and
// normalizes every outcome into one Result shape. Handlers never touch
// the usage ledger themselves.
package dispatch

import (
	"context"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/quota"
)

// Kind identifies a capability. The set is closed: the registry is
// verified at startup against Kinds, not discovered per call.
type Kind string

const (
	KindProjectCreate          Kind = "project.create"
	KindProjectAdvancePhase    Kind = "project.advance_phase"
	KindProjectAddCollaborator Kind = "project.add_collaborator"
	KindDocumentImport         Kind = "knowledge.import_document"
	KindDocumentRemove         Kind = "knowledge.remove_document"
	KindSearch                 Kind = "knowledge.search"
	KindWorkspaceStatus        Kind = "workspace.status"
)

// Kinds lists every action the core dispatches, in registration order.
func Kinds() []Kind {
	return []Kind{
		KindProjectCreate,
		KindProjectAdvancePhase,
		KindProjectAddCollaborator,
		KindDocumentImport,
		KindDocumentRemove,
		KindSearch,
		KindWorkspaceStatus,
	}
}

// Classification splits actions into reads (never gated, never counted)
// and mutations (gated and counted).
type Classification string

const (
	ClassRead     Classification = "read"
	ClassMutating Classification = "mutating"
)

// classifications is the closed classification table.
var classifications = map[Kind]Classification{
	KindProjectCreate:          ClassMutating,
	KindProjectAdvancePhase:    ClassMutating,
	KindProjectAddCollaborator: ClassMutating,
	KindDocumentImport:         ClassMutating,
	KindDocumentRemove:         ClassMutating,
	KindSearch:                 ClassRead,
	KindWorkspaceStatus:        ClassRead,
}

// Classification returns the action's read/mutating class. Unknown
// kinds report as mutating; the dispatcher rejects them before this
// matters.
func (k Kind) Classification() Classification {
	if c, ok := classifications[k]; ok {
		return c
	}
	return ClassMutating
}

// Known reports whether k is a registered action kind.
func (k Kind) Known() bool {
	_, ok := classifications[k]
	return ok
}

// Action is one request: an action kind, the caller, and an opaque
// payload produced by the transport boundary. Consumed once, never
// persisted.
type Action struct {
	Kind      Kind
	AccountID string
	Payload   Payload
}

// Payload is the transport-decoded argument map with typed accessors.
type Payload map[string]any

// String returns the value for key as a string, or def.
func (p Payload) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Int returns the value for key as an int, or def. JSON decoding
// delivers numbers as float64; both forms are accepted.
func (p Payload) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Status is the terminal state of one dispatch call.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusDenied       Status = "denied"
	StatusHandlerError Status = "handler_error"
	StatusNotFound     Status = "not_found"
)

// Result is the one shape every dispatch terminates in. Payload is set
// on success, Err otherwise.
type Result struct {
	Status  Status
	Payload any
	Err     error

	// outcome carries the handler's resource deltas from invoke to
	// record; it never leaves the package.
	outcome *Outcome
}

// Outcome is what a handler returns on success: the response payload
// plus the resource deltas it actually consumed, which the dispatcher
// records in the ledger. Delta.Actions is ignored — the dispatcher
// counts the action itself.
type Outcome struct {
	Payload any
	Delta   quota.Delta
}

// Handler is the uniform capability contract. Cost declares the
// resource delta the action will consume, derived from the payload
// before invocation, so the quota gate can run first. Handle performs
// the work; it must not read or write the usage ledger.
type Handler interface {
	Cost(payload Payload) quota.Delta
	Handle(ctx context.Context, acct account.Account, payload Payload) (*Outcome, error)
}
