// Package graph records the dependency edges a container observes while it
// resolves services.
package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// DependencyGraph is a directed graph of service types. An edge from A to B
// means a factory for A resolved B. Nodes and edges keep insertion order.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[reflect.Type]*Node
	order []reflect.Type
}

// Node is one service type in the graph.
type Node struct {
	Type reflect.Type

	// Dependencies are the types this node resolved.
	Dependencies []reflect.Type

	// Dependents are the types that resolved this node.
	Dependents []reflect.Type
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[reflect.Type]*Node),
	}
}

// AddNode adds t without edges. Adding a known type does nothing.
func (g *DependencyGraph) AddNode(t reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.node(t)
}

// AddEdge records that from depends on to. It reports whether the edge is
// new.
func (g *DependencyGraph) AddEdge(from, to reflect.Type) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	src := g.node(from)
	for _, dep := range src.Dependencies {
		if dep == to {
			return false
		}
	}

	dst := g.node(to)
	src.Dependencies = append(src.Dependencies, to)
	dst.Dependents = append(dst.Dependents, from)
	return true
}

// node returns the node for t, creating it. The caller must hold the write lock.
func (g *DependencyGraph) node(t reflect.Type) *Node {
	if n, ok := g.nodes[t]; ok {
		return n
	}
	n := &Node{Type: t}
	g.nodes[t] = n
	g.order = append(g.order, t)
	return n
}

// GetDependencies returns the direct dependencies of t.
func (g *DependencyGraph) GetDependencies(t reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[t]; ok {
		return clone(n.Dependencies)
	}
	return nil
}

// GetDependents returns the types that directly depend on t.
func (g *DependencyGraph) GetDependents(t reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[t]; ok {
		return clone(n.Dependents)
	}
	return nil
}

// GetTransitiveDependencies returns every type t depends on, directly or
// not, in breadth-first order.
func (g *DependencyGraph) GetTransitiveDependencies(t reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[reflect.Type]bool{t: true}
	var result []reflect.Type

	queue := []reflect.Type{t}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		n, ok := g.nodes[current]
		if !ok {
			continue
		}
		for _, dep := range n.Dependencies {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}

	return result
}

// TopologicalSort returns the types with every dependency before its
// dependents. Ties keep insertion order.
func (g *DependencyGraph) TopologicalSort() ([]reflect.Type, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over dependency counts.
	pending := make(map[reflect.Type]int, len(g.nodes))
	var queue []reflect.Type
	for _, t := range g.order {
		pending[t] = len(g.nodes[t].Dependencies)
		if pending[t] == 0 {
			queue = append(queue, t)
		}
	}

	result := make([]reflect.Type, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range g.nodes[current].Dependents {
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("graph contains a cycle: %d nodes but only %d could be sorted",
			len(g.nodes), len(result))
	}

	return result, nil
}

// HasNode reports whether t is in the graph.
func (g *DependencyGraph) HasNode(t reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[t]
	return ok
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Clear removes every node.
func (g *DependencyGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[reflect.Type]*Node)
	g.order = nil
}

func clone(types []reflect.Type) []reflect.Type {
	if len(types) == 0 {
		return nil
	}
	out := make([]reflect.Type, len(types))
	copy(out, types)
	return out
}
