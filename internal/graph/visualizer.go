package graph

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Visualizer renders a dependency graph.
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Nodes are written in
// topological order when the graph is acyclic, insertion order otherwise.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	types, err := v.graph.TopologicalSort()
	if err != nil {
		types = v.graph.snapshotOrder()
	}

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[reflect.Type]string, len(types))
	for i, t := range types {
		ids[t] = fmt.Sprintf("n%d", i)
		fmt.Fprintf(&b, "  %s [label=%q];\n", ids[t], label(t))
	}

	for _, from := range types {
		for _, to := range v.graph.GetDependencies(from) {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[from], ids[to])
		}
	}

	b.WriteString("}\n")

	_, err = io.WriteString(w, b.String())
	return err
}

// WriteAdjacencyList writes one "type -> [dependencies]" line per node in
// insertion order.
func (v *Visualizer) WriteAdjacencyList(w io.Writer) error {
	var b strings.Builder
	for _, from := range v.graph.snapshotOrder() {
		deps := v.graph.GetDependencies(from)
		names := make([]string, len(deps))
		for i, dep := range deps {
			names[i] = dep.String()
		}
		fmt.Fprintf(&b, "%s -> [%s]\n", from, strings.Join(names, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (g *DependencyGraph) snapshotOrder() []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return clone(g.order)
}

// label simplifies a type string by dropping package paths.
func label(t reflect.Type) string {
	s := t.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		prefix := strings.TrimRight(s[:i], "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_")
		return prefix + s[i+1:]
	}
	return s
}
