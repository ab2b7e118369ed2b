package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"deskhand/internal/intent"
	"deskhand/internal/logging"
	"deskhand/internal/safety"
	"deskhand/internal/session"
)

// ============================================================================
// CAPABILITY REGISTRY
// ============================================================================

// Result is what a handler reports back to the user.
type Result struct {
	Message string
	Details []string
}

// Handler executes one intent kind. Destructive handlers must provide
// an Action mapping so the dispatch wraps them in the safety gate.
type Handler struct {
	Name        intent.Kind
	Destructive bool

	// Action maps intent params to the ledger action recorded before
	// Run mutates anything. The params it returns carry absolute paths
	// so the gate can stash and derive an inverse.
	Action func(params map[string]string, view session.View) (string, map[string]string)

	Run func(ctx context.Context, params map[string]string, view session.View) (Result, error)
}

// HandlerError wraps a handler failure with the intent kind that
// produced it.
type HandlerError struct {
	Kind intent.Kind
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Registry is the closed table of everything the assistant can do.
type Registry struct {
	handlers map[intent.Kind]Handler
	gate     *safety.Gate
}

// New builds an empty registry. gate may be nil, in which case
// destructive handlers run ungated (tests only).
func New(gate *safety.Gate) *Registry {
	return &Registry{
		handlers: make(map[intent.Kind]Handler),
		gate:     gate,
	}
}

// Register adds a handler. Duplicate kinds are a programming error and
// fail loudly at startup.
func (r *Registry) Register(h Handler) error {
	if h.Name == "" || h.Run == nil {
		return fmt.Errorf("handler missing name or run func")
	}
	if _, dup := r.handlers[h.Name]; dup {
		return fmt.Errorf("duplicate handler for %s", h.Name)
	}
	if h.Destructive && h.Action == nil {
		return fmt.Errorf("destructive handler %s has no action mapping", h.Name)
	}
	r.handlers[h.Name] = h
	return nil
}

// Complete verifies every dispatchable intent kind has a handler. Call
// once at startup so a missing handler is a boot failure, not a runtime
// surprise.
func (r *Registry) Complete() error {
	var missing []string
	for _, k := range intent.All() {
		if _, ok := r.handlers[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("no handlers for: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Dispatch routes an intent to its handler. Destructive handlers run
// inside the safety gate so the ledger row exists before the mutation.
func (r *Registry) Dispatch(ctx context.Context, in intent.Intent, view session.View) (Result, error) {
	log := logging.Get(logging.CategoryDispatch)

	h, ok := r.handlers[in.Kind]
	if !ok {
		return Result{}, &HandlerError{Kind: in.Kind, Err: fmt.Errorf("no handler registered")}
	}

	log.Debugw("dispatching", "kind", in.Kind, "destructive", h.Destructive)

	var (
		res Result
		err error
	)
	if h.Destructive && r.gate != nil {
		kind, params := h.Action(in.Params, view)
		err = r.gate.Execute(kind, params, func() error {
			res, err = h.Run(ctx, in.Params, view)
			return err
		})
	} else {
		res, err = h.Run(ctx, in.Params, view)
	}
	if err != nil {
		return Result{}, &HandlerError{Kind: in.Kind, Err: err}
	}
	return res, nil
}

// Capability describes one registered handler.
type Capability struct {
	Kind        intent.Kind
	Destructive bool
}

// Capabilities returns the registered handler table, sorted by kind.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, Capability{Kind: h.Name, Destructive: h.Destructive})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
