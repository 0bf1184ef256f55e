package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps tool names to handlers and specs. Built once at startup
// from the core browser tools plus pluggable modules; dispatched from a
// single conversation loop but safe for concurrent reads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	handler Handler
	spec    Spec
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or silently replaces a tool. Later registrations win, which
// is how a newer tool module supersedes an older variant of the same name.
func (r *Registry) Register(spec Spec, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[spec.Name] = entry{handler: handler, spec: spec}
}

// RegisterStrict is Register that refuses name collisions.
func (r *Registry) RegisterStrict(spec Spec, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[spec.Name]; exists {
		return fmt.Errorf("tool already registered: %s", spec.Name)
	}
	r.entries[spec.Name] = entry{handler: handler, spec: spec}
	return nil
}

// Catalog returns the full tool list in the wire shape the model expects,
// with normalized strict schemas. Sorted by name so the catalog is stable
// across runs.
func (r *Registry) Catalog() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := make([]CatalogEntry, 0, len(names))
	for _, name := range names {
		e := r.entries[name]
		catalog = append(catalog, CatalogEntry{
			Type: "function",
			Function: FunctionSpec{
				Name:        e.spec.Name,
				Description: e.spec.Description,
				Parameters:  normalizeSchema(e.spec.Parameters),
			},
		})
	}
	return catalog
}

// Dispatch runs the named tool inside a failure boundary. Unknown names and
// handler panics come back as error results; no call ever raises.
func (r *Registry) Dispatch(name string, args map[string]any) (res Result) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Errorf("unknown tool: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Errorf("tool %s failed: %v", name, rec)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	return e.handler(args)
}
