package ioc

import (
	"io"
	"reflect"

	"github.com/junioryono/ioc/internal/graph"
)

// recordEdge notes that the factory at the end of path resolved key.
func (c *Container) recordEdge(key Key, path []Key) {
	if len(path) == 0 {
		return
	}
	c.graph.AddEdge(path[len(path)-1].t, key.t)
}

// Dependencies returns the keys the factory for key resolved while building
// it, in the order they were first resolved. Only observed resolutions are
// known: a key that was never built has no dependencies.
func (c *Container) Dependencies(key Key) []Key {
	return toKeys(c.graph.GetDependencies(key.t))
}

// Dependents returns the keys whose factories resolved key.
func (c *Container) Dependents(key Key) []Key {
	return toKeys(c.graph.GetDependents(key.t))
}

// TransitiveDependencies returns every key reachable from key through
// observed dependencies, nearest first.
func (c *Container) TransitiveDependencies(key Key) []Key {
	return toKeys(c.graph.GetTransitiveDependencies(key.t))
}

// BuildOrder returns every observed key with dependencies before their
// dependents.
func (c *Container) BuildOrder() ([]Key, error) {
	types, err := c.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	return toKeys(types), nil
}

// WriteGraph writes the observed dependency graph in Graphviz DOT format.
func (c *Container) WriteGraph(w io.Writer) error {
	return graph.NewVisualizer(c.graph).WriteDOT(w)
}

// WriteDependencyList writes one "type -> [dependencies]" line per observed
// key, in the order the keys were first seen.
func (c *Container) WriteDependencyList(w io.Writer) error {
	return graph.NewVisualizer(c.graph).WriteAdjacencyList(w)
}

func toKeys(types []reflect.Type) []Key {
	if len(types) == 0 {
		return nil
	}
	keys := make([]Key, len(types))
	for i, t := range types {
		keys[i] = Key{t: t}
	}
	return keys
}
