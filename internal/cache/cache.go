// Package cache holds the shared instances of a container and the
// per-type cells that serialize their first construction.
package cache

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Cache is a first-writer-wins store of shared instances.
type Cache struct {
	mu        sync.RWMutex
	instances map[reflect.Type]any
	order     []reflect.Type
	cells     map[reflect.Type]*Cell

	// waitMu guards cell ownership and the owner tree of every cell,
	// including cells dropped by Clear that in-flight builds still hold.
	waitMu sync.Mutex
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		instances: make(map[reflect.Type]any),
		cells:     make(map[reflect.Type]*Cell),
	}
}

// Get retrieves the instance cached for t.
func (c *Cache) Get(t reflect.Type) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, ok := c.instances[t]
	return instance, ok
}

// PutIfAbsent stores instance for t unless an instance is already cached.
// It returns the instance that ended up cached and whether it was this one.
func (c *Cache) PutIfAbsent(t reflect.Type, instance any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.instances[t]; ok {
		return existing, false
	}

	c.instances[t] = instance
	c.order = append(c.order, t)
	return instance, true
}

// Has reports whether an instance is cached for t.
func (c *Cache) Has(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[t]
	return ok
}

// Cell returns the build cell for t, creating it on first use.
func (c *Cache) Cell(t reflect.Type) *Cell {
	c.mu.RLock()
	cell, ok := c.cells[t]
	c.mu.RUnlock()
	if ok {
		return cell
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cell, ok = c.cells[t]; !ok {
		cell = &Cell{cond: sync.NewCond(&c.waitMu)}
		c.cells[t] = cell
	}
	return cell
}

// Keys returns the cached types in insertion order.
func (c *Cache) Keys() []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]reflect.Type, len(c.order))
	copy(keys, c.order)
	return keys
}

// Each calls fn for every cached instance in insertion order.
// The cache is not locked while fn runs.
func (c *Cache) Each(fn func(t reflect.Type, instance any)) {
	c.mu.RLock()
	order := make([]reflect.Type, len(c.order))
	copy(order, c.order)
	instances := make([]any, len(order))
	for i, t := range order {
		instances[i] = c.instances[t]
	}
	c.mu.RUnlock()

	for i, t := range order {
		fn(t, instances[i])
	}
}

// Len returns the number of cached instances.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// Clear drops every instance and cell.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances = make(map[reflect.Type]any)
	c.cells = make(map[reflect.Type]*Cell)
	c.order = nil
}

// Owner is one build in progress. Owners form a tree: a build started by a
// factory while it runs is a child of that factory's build. An owner holds
// at most one cell and waits on at most one.
type Owner struct {
	typ      reflect.Type
	parent   *Owner
	children map[*Owner]struct{}
	waiting  *Cell
}

// Begin starts a build of t nested in parent, which is nil at the top of a
// resolution. Every Begin must be paired with End.
func (c *Cache) Begin(t reflect.Type, parent *Owner) *Owner {
	o := &Owner{typ: t, parent: parent}
	if parent == nil {
		return o
	}

	c.waitMu.Lock()
	if parent.children == nil {
		parent.children = make(map[*Owner]struct{})
	}
	parent.children[o] = struct{}{}
	c.waitMu.Unlock()
	return o
}

// End finishes the build o.
func (c *Cache) End(o *Owner) {
	if o.parent == nil {
		return
	}

	c.waitMu.Lock()
	delete(o.parent.children, o)
	c.waitMu.Unlock()
}

// CycleError is returned by Acquire when waiting for a cell would never
// end because its holder is, directly or through other builds, waiting on
// the caller. Types lists the cycle, starting and ending with the same type.
type CycleError struct {
	Types []reflect.Type
}

func (e CycleError) Error() string {
	return fmt.Sprintf("build cycle through %d types", len(e.Types)-1)
}

// Cell serializes construction of one type. Its holder is the Owner that
// acquired it. A holder that records a failure with Fail poisons the cell
// for that factory generation: later holders building from the same
// generation observe the same error.
type Cell struct {
	cond       *sync.Cond
	owner      *Owner
	err        error
	generation uint64
}

// Acquire makes o the holder of the cell, waiting while another owner
// holds it. It fails with a CycleError instead of waiting when the holder
// can only finish after one of o's ancestors does.
func (c *Cell) Acquire(o *Owner) error {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()

	for c.owner != nil {
		if cycle := waitCycle(c, o); cycle != nil {
			return CycleError{Types: cycle}
		}
		o.waiting = c
		c.cond.Wait()
		o.waiting = nil
	}

	c.owner = o
	return nil
}

// Release gives up the cell and wakes its waiters.
func (c *Cell) Release() {
	c.cond.L.Lock()
	c.owner = nil
	c.cond.L.Unlock()
	c.cond.Broadcast()
}

// Fail records a permanent failure of the factory with the given
// generation. The caller must hold the cell.
func (c *Cell) Fail(generation uint64, err error) {
	c.generation = generation
	c.err = err
}

// Err returns the failure recorded for generation, if any. The caller must
// hold the cell.
func (c *Cell) Err(generation uint64) error {
	if c.err == nil || c.generation != generation {
		return nil
	}
	return c.err
}

// waitCycle reports the cycle o would close by waiting on cell, or nil.
// The holder of cell cannot finish before its nested builds and the cells
// they wait on; if that walk reaches an ancestor of o, the wait is a
// deadlock. The caller holds waitMu.
func waitCycle(cell *Cell, o *Owner) []reflect.Type {
	ancestors := make(map[*Owner]bool)
	for a := o.parent; a != nil; a = a.parent {
		ancestors[a] = true
	}
	if len(ancestors) == 0 {
		return nil
	}

	visited := make(map[*Owner]bool)
	var route []*Owner
	var walk func(f *Owner) *Owner
	walk = func(f *Owner) *Owner {
		if f == nil || visited[f] {
			return nil
		}
		visited[f] = true
		route = append(route, f)

		if ancestors[f] {
			return f
		}
		for child := range f.children {
			if hit := walk(child); hit != nil {
				return hit
			}
		}
		if f.waiting != nil {
			if hit := walk(f.waiting.owner); hit != nil {
				return hit
			}
		}

		route = route[:len(route)-1]
		return nil
	}

	hit := walk(cell.owner)
	if hit == nil {
		return nil
	}

	// The caller's side of the cycle runs from hit down to o's parent.
	var ours []reflect.Type
	for a := o.parent; a != hit; a = a.parent {
		ours = append(ours, a.typ)
	}
	ours = append(ours, hit.typ)
	slices.Reverse(ours)

	types := ours
	for i, f := range route {
		// A waiting owner and the holder it waits on build the same type.
		if i > 0 && route[i-1].typ == f.typ {
			continue
		}
		types = append(types, f.typ)
	}
	return types
}
