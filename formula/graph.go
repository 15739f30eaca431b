package formula

import (
	"slices"
	"sort"
	"strings"
)

// DependencyGraph records which fields each formula field depends on.
// Nodes are field paths in reference-token form, e.g. @ligne[pos1_L1].quantite.
type DependencyGraph struct {
	precedents map[string][]string
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{precedents: make(map[string][]string)}
}

// SetDependencies replaces the dependencies of a field.
func (g *DependencyGraph) SetDependencies(path string, deps []string) {
	g.precedents[path] = slices.Clone(deps)
}

// Remove drops a field from the graph. Edges pointing at it from other
// fields are kept since those formulas still reference it.
func (g *DependencyGraph) Remove(path string) {
	delete(g.precedents, path)
}

// Dependencies returns the direct dependencies of a field.
func (g *DependencyGraph) Dependencies(path string) []string {
	return g.precedents[path]
}

// Len returns the number of fields with registered dependencies.
func (g *DependencyGraph) Len() int {
	return len(g.precedents)
}

// Clone returns an independent copy of the graph.
func (g *DependencyGraph) Clone() *DependencyGraph {
	out := NewDependencyGraph()
	for k, v := range g.precedents {
		out.precedents[k] = slices.Clone(v)
	}
	return out
}

// FindCycle returns the first cycle reachable from path that passes back
// through path itself, as a path starting and ending with it. It returns nil
// when path does not transitively depend on itself.
func (g *DependencyGraph) FindCycle(path string) []string {
	visited := make(map[string]bool)
	stack := []string{path}

	var visit func(node string) []string
	visit = func(node string) []string {
		for _, dep := range g.precedents[node] {
			if dep == path {
				return append(slices.Clone(stack), dep)
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			stack = append(stack, dep)
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
			stack = stack[:len(stack)-1]
		}
		return nil
	}
	return visit(path)
}

// Cycles returns the cycles found by a depth-first search, one per back
// edge, each reported once starting from its lexically smallest field. It
// does not enumerate every cycle: a field whose only cycles pass through
// already finished fields may be missing. Use CyclicFields for membership.
func (g *DependencyGraph) Cycles() [][]string {
	// three states: unvisited (absent), on the recursion stack (false), done (true)
	state := make(map[string]bool)
	var stack []string
	var cycles [][]string
	seen := make(map[string]bool)

	var visit func(node string)
	visit = func(node string) {
		state[node] = false
		stack = append(stack, node)
		for _, dep := range g.precedents[node] {
			done, exists := state[dep]
			if !exists {
				visit(dep)
				continue
			}
			if done {
				continue
			}
			start := slices.Index(stack, dep)
			cycle := normalizeCycle(stack[start:])
			key := strings.Join(cycle, " -> ")
			if !seen[key] {
				seen[key] = true
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = true
	}

	for _, node := range g.sortedNodes() {
		if _, exists := state[node]; !exists {
			visit(node)
		}
	}
	return cycles
}

// CyclicFields returns, sorted, every field that lies on at least one
// cycle: the members of strongly connected components with more than one
// field, and fields that depend on themselves.
func (g *DependencyGraph) CyclicFields() []string {
	// Tarjan's algorithm
	index := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack, out []string

	var connect func(node string)
	connect = func(node string) {
		index[node] = len(index)
		low[node] = index[node]
		stack = append(stack, node)
		onStack[node] = true

		for _, dep := range g.precedents[node] {
			if _, seen := index[dep]; !seen {
				connect(dep)
				low[node] = min(low[node], low[dep])
			} else if onStack[dep] {
				low[node] = min(low[node], index[dep])
			}
		}
		if low[node] != index[node] {
			return
		}

		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == node {
				break
			}
		}
		if len(component) > 1 || slices.Contains(g.precedents[node], node) {
			out = append(out, component...)
		}
	}

	for _, node := range g.sortedNodes() {
		if _, seen := index[node]; !seen {
			connect(node)
		}
	}
	slices.Sort(out)
	return out
}

// CalculationOrder returns the fields in an order where every field comes
// after the fields it depends on. Fields that only appear as dependencies
// are included. The boolean is false when the graph has a cycle; the order
// is then best-effort.
func (g *DependencyGraph) CalculationOrder() ([]string, bool) {
	state := make(map[string]bool)
	var order []string
	acyclic := true

	var visit func(node string)
	visit = func(node string) {
		if done, exists := state[node]; exists {
			if !done {
				acyclic = false
			}
			return
		}
		state[node] = false
		for _, dep := range g.precedents[node] {
			visit(dep)
		}
		state[node] = true
		order = append(order, node)
	}

	for _, node := range g.sortedNodes() {
		visit(node)
	}
	return order, acyclic
}

func (g *DependencyGraph) sortedNodes() []string {
	nodes := make([]string, 0, len(g.precedents))
	for k := range g.precedents {
		nodes = append(nodes, k)
	}
	sort.Strings(nodes)
	return nodes
}

// normalizeCycle rotates a cycle so it starts at its smallest field and
// closes it by repeating that field at the end.
func normalizeCycle(cycle []string) []string {
	minIdx := 0
	for i, n := range cycle {
		if n < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle)+1)
	out = append(out, cycle[minIdx:]...)
	out = append(out, cycle[:minIdx]...)
	return append(out, out[0])
}
