package dispatch

import "fmt"

// Registry is the closed mapping from action kind to handler. It is
// populated at startup and verified once — never discovered per call.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register binds a handler to an action kind. Binding an unknown kind
// or rebinding an existing one is a wiring bug and fails loudly.
func (r *Registry) Register(kind Kind, h Handler) error {
	if !kind.Known() {
		return fmt.Errorf("dispatch: register: unknown action kind %q", kind)
	}
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("dispatch: register: action %q already has a handler", kind)
	}
	if h == nil {
		return fmt.Errorf("dispatch: register: nil handler for action %q", kind)
	}
	r.handlers[kind] = h
	return nil
}

// Verify checks that every declared action kind has exactly one
// handler. Called once at startup, after all Register calls.
func (r *Registry) Verify() error {
	for _, kind := range Kinds() {
		if _, ok := r.handlers[kind]; !ok {
			return fmt.Errorf("dispatch: verify: action %q has no handler", kind)
		}
	}
	if extra := len(r.handlers) - len(Kinds()); extra > 0 {
		return fmt.Errorf("dispatch: verify: %d handlers registered beyond the declared actions", extra)
	}
	return nil
}

// Lookup returns the handler for kind.
func (r *Registry) Lookup(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
