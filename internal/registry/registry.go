// Package registry stores the factory bound to each service type.
package registry

import (
	"reflect"
	"sync"
)

// Entry is a registered factory. Generation increases with every
// registration in the registry, so a rebinding is distinguishable from the
// registration it replaced.
type Entry[F any] struct {
	Factory    F
	Generation uint64
}

// Registry maps a service type to the factory that builds it.
// Registering a type twice replaces the earlier factory.
type Registry[F any] struct {
	mu         sync.RWMutex
	factories  map[reflect.Type]Entry[F]
	order      []reflect.Type
	generation uint64
}

// New creates an empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{
		factories: make(map[reflect.Type]Entry[F]),
	}
}

// Register stores factory for t. The last registration wins.
// It reports whether an earlier factory was replaced.
func (r *Registry[F]) Register(t reflect.Type, factory F) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.factories[t]
	if !replaced {
		r.order = append(r.order, t)
	}

	r.generation++
	r.factories[t] = Entry[F]{Factory: factory, Generation: r.generation}
	return replaced
}

// Lookup returns the entry registered for t.
func (r *Registry[F]) Lookup(t reflect.Type) (Entry[F], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.factories[t]
	return e, ok
}

// Has reports whether a factory is registered for t.
func (r *Registry[F]) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[t]
	return ok
}

// Keys returns the registered types in first-registration order.
func (r *Registry[F]) Keys() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]reflect.Type, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered types.
func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
