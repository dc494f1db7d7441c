package host

import (
	"fmt"
	"sort"
	"sync"
)

type registration struct {
	desc    Descriptor
	factory Factory
}

// Registry maps config keys to importer factories.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]registration)}
}

// Register adds an importer kind. Registering the same config key twice
// is an error.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.ConfigKey == "" {
		return fmt.Errorf("register %s: empty config key", desc.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[desc.ConfigKey]; exists {
		return fmt.Errorf("register %s: config key %s already registered", desc.Kind, desc.ConfigKey)
	}
	r.kinds[desc.ConfigKey] = registration{desc: desc, factory: factory}
	return nil
}

// Build creates the importer for inst using the factory registered for
// inst.Type.
func (r *Registry) Build(inst Instance, deps Deps) (Importer, error) {
	r.mu.RLock()
	reg, ok := r.kinds[inst.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("importer %s: unknown type %q", inst.Name, inst.Type)
	}

	if deps.Logger != nil {
		deps.Logger = deps.Logger.With("importer", inst.Name, "kind", reg.desc.Kind)
	}
	imp, err := reg.factory(inst, deps)
	if err != nil {
		return nil, fmt.Errorf("importer %s: %w", inst.Name, err)
	}
	return imp, nil
}

// Descriptors lists registered kinds ordered by config key.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.kinds))
	for _, reg := range r.kinds {
		out = append(out, reg.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfigKey < out[j].ConfigKey })
	return out
}
