package provider

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when no provider is registered under a type id.
var ErrNotFound = errors.New("provider not found")

// ErrFrozen is returned by Register after the registry has been frozen.
var ErrFrozen = errors.New("registry frozen")

// ErrDuplicate is returned when a type id is registered twice.
var ErrDuplicate = errors.New("provider already registered")

// Factory builds one provider instance. It runs exactly once, at
// [Registry.Freeze] time; provider instances carry provider-scoped
// configuration only and must not hold per-session state.
type Factory[P any] func() (P, error)

// Registry is a capability-provider lookup table keyed by type identifier.
// Registration happens from static configuration during process startup;
// after [Registry.Freeze], Resolve is a side-effect-free O(1) map lookup and
// safe for unsynchronized concurrent use.
type Registry[P any] struct {
	mu        sync.Mutex
	factories map[string]Factory[P]
	instances map[string]P
	frozen    bool
}

// NewRegistry creates an empty registry.
func NewRegistry[P any]() *Registry[P] {
	return &Registry[P]{
		factories: make(map[string]Factory[P]),
	}
}

// Register records a factory for the given type identifier. Must be called
// before [Registry.Freeze]; duplicate and empty ids are rejected.
func (r *Registry[P]) Register(typeID string, factory Factory[P]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	if typeID == "" {
		return errors.New("provider type id cannot be empty")
	}
	if factory == nil {
		return errors.New("provider factory cannot be nil")
	}
	if _, exists := r.factories[typeID]; exists {
		return ErrDuplicate
	}

	r.factories[typeID] = factory
	return nil
}

// Freeze instantiates every registered factory exactly once and seals the
// registry. Must be called before the first Resolve.
func (r *Registry[P]) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil
	}

	instances := make(map[string]P, len(r.factories))
	for typeID, factory := range r.factories {
		p, err := factory()
		if err != nil {
			return err
		}
		instances[typeID] = p
	}

	r.instances = instances
	r.factories = nil
	r.frozen = true
	return nil
}

// Resolve returns the provider registered under typeID. The second result is
// false when no provider exists; resolution itself never has side effects.
func (r *Registry[P]) Resolve(typeID string) (P, bool) {
	p, ok := r.instances[typeID]
	return p, ok
}

// Count returns the number of registered providers.
func (r *Registry[P]) Count() int {
	if r.frozen {
		return len(r.instances)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.factories)
}

// TypeIDs returns the registered type identifiers. Valid only after Freeze.
func (r *Registry[P]) TypeIDs() []string {
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	return ids
}
