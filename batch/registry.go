package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/smartcontractkit/batchops/value"
)

// Handler is the function signature of a module method. It receives the payload after
// reference substitution.
type Handler func(ctx context.Context, data value.Value) (value.Value, error)

// Registry maps module and method names to handlers. Operations of type
// "<module>.<method>" are dispatched through it, and rollback looks up inverse methods in
// it. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]Handler)}
}

// Register adds a handler for module.method, replacing any previous one.
func (r *Registry) Register(module, method string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	methods, ok := r.modules[module]
	if !ok {
		methods = make(map[string]Handler)
		r.modules[module] = methods
	}
	methods[method] = h
}

// RegisterModule adds all methods of a module at once.
func (r *Registry) RegisterModule(module string, methods map[string]Handler) {
	for method, h := range methods {
		r.Register(module, method, h)
	}
}

// Lookup returns the handler for module.method.
// It returns ErrUnknownModule or ErrUnknownMethod if there is none.
func (r *Registry) Lookup(module, method string) (Handler, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	methods, ok := r.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}
	h, ok := methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, module, method)
	}

	return h, nil
}

// HasMethod reports whether module.method is registered.
func (r *Registry) HasMethod(module, method string) bool {
	_, err := r.Lookup(module, method)
	return err == nil
}

// RegisterTyped registers a handler with concrete input and output types. The payload is
// decoded into IN through its JSON encoding and OUT is converted back into a value.Value.
func RegisterTyped[IN, OUT any](
	r *Registry, module, method string, fn func(ctx context.Context, input IN) (OUT, error),
) {
	r.Register(module, method, func(ctx context.Context, data value.Value) (value.Value, error) {
		var input IN
		if !data.IsNull() {
			if err := data.Decode(&input); err != nil {
				return value.Value{}, fmt.Errorf("decode %s.%s input: %w", module, method, err)
			}
		}

		out, err := fn(ctx, input)
		if err != nil {
			return value.Value{}, err
		}

		return value.FromAny(out)
	})
}
