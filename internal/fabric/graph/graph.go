// Package graph implements the fabric's dependency graph: a directed graph
// of component ids with insertion-ordered edges and breadth-first impact
// analysis.
package graph

import (
	"sort"
	"strings"
	"sync"

	"github.com/campusforge/fabric/internal/fabric/component"
)

// Graph is a directed graph of component ids. Edge order within a node's
// adjacency list is declaration order, which makes impact analysis
// deterministic. Cycles are permitted; callers that need acyclicity
// validate separately.
type Graph struct {
	mu    sync.RWMutex
	nodes map[component.ID]struct{}
	// edges[from] is the ordered list of "to" ids from-depends-on-to,
	// i.e. edges[from] = DependenciesOf(from).
	edges map[component.ID][]component.ID
	// insertionOrder tracks node registration order, since map iteration
	// order is not stable and several operations must be deterministic.
	insertionOrder []component.ID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[component.ID]struct{}),
		edges: make(map[component.ID][]component.ID),
	}
}

// AddNode registers id as a node if not already present.
func (g *Graph) AddNode(id component.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.edges[id] = nil
	g.insertionOrder = append(g.insertionOrder, id)
}

// RemoveNode scrubs id from the node set and from every adjacency list.
func (g *Graph) RemoveNode(id component.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, id)
	delete(g.edges, id)
	for i, n := range g.insertionOrder {
		if n == id {
			g.insertionOrder = append(g.insertionOrder[:i], g.insertionOrder[i+1:]...)
			break
		}
	}
	for from, deps := range g.edges {
		out := deps[:0:0]
		for _, d := range deps {
			if d != id {
				out = append(out, d)
			}
		}
		g.edges[from] = out
	}
}

// AddEdge records that from depends on to, appending to the from-list
// unless already present. Returns false if either endpoint is absent, or
// the edge would be a self-edge.
func (g *Graph) AddEdge(from, to component.ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if from == to {
		return false
	}
	if _, ok := g.nodes[from]; !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return true
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return true
}

// RemoveEdge removes the from->to edge if present.
func (g *Graph) RemoveEdge(from, to component.ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	deps, ok := g.edges[from]
	if !ok {
		return false
	}
	for i, d := range deps {
		if d == to {
			g.edges[from] = append(deps[:i], deps[i+1:]...)
			return true
		}
	}
	return false
}

// HasEdge reports whether a from->to edge exists.
func (g *Graph) HasEdge(from, to component.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, d := range g.edges[from] {
		if d == to {
			return true
		}
	}
	return false
}

// DependenciesOf returns the ordered list of ids that id depends on.
func (g *Graph) DependenciesOf(id component.ID) []component.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]component.ID(nil), g.edges[id]...)
}

// DependentsOf returns, in insertion order of discovery, the ids that
// directly depend on id.
func (g *Graph) DependentsOf(id component.ID) []component.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []component.ID
	for _, from := range g.orderedNodesLocked() {
		for _, d := range g.edges[from] {
			if d == id {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// orderedNodesLocked returns node ids; callers must hold g.mu.
// Node iteration order matters for DependentsOf determinism, so nodes are
// tracked in a side slice rather than relying on map order.
func (g *Graph) orderedNodesLocked() []component.ID {
	out := make([]component.ID, 0, len(g.insertionOrder))
	out = append(out, g.insertionOrder...)
	return out
}

// ImpactBFS returns the transitive set of components that depend on id,
// in breadth-first order, deterministic by insertion order at each level.
func (g *Graph) ImpactBFS(id component.ID) []component.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[component.ID]bool{id: true}
	queue := []component.ID{id}
	var order []component.ID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, from := range g.orderedNodesLocked() {
			for _, d := range g.edges[from] {
				if d != cur {
					continue
				}
				if visited[from] {
					break
				}
				visited[from] = true
				order = append(order, from)
				queue = append(queue, from)
				break
			}
		}
	}
	return order
}

// AllEdges returns a snapshot of the full adjacency map, id -> ordered
// dependency list.
func (g *Graph) AllEdges() map[component.ID][]component.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[component.ID][]component.ID, len(g.edges))
	for k, v := range g.edges {
		out[k] = append([]component.ID(nil), v...)
	}
	return out
}

// Nodes returns the registered node ids in insertion order.
func (g *Graph) Nodes() []component.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.orderedNodesLocked()
}

// VisualizeDependencies renders the graph as a Graphviz DOT digraph,
// nodes and edges in insertion order.
func (g *Graph) VisualizeDependencies() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, id := range g.insertionOrder {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		b.WriteString("  " + quoteDOT(string(id)) + ";\n")
		for _, to := range g.edges[id] {
			b.WriteString("  " + quoteDOT(string(id)) + " -> " + quoteDOT(string(to)) + ";\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// DOT renders an adjacency map (id -> ordered dependency list) as a
// Graphviz digraph, nodes sorted lexically for stable output when edge
// insertion order is not available, as with a map decoded from JSON.
func DOT(edges map[component.ID][]component.ID) string {
	ids := make([]string, 0, len(edges))
	for id := range edges {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, id := range ids {
		b.WriteString("  " + quoteDOT(id) + ";\n")
		for _, to := range edges[component.ID(id)] {
			b.WriteString("  " + quoteDOT(id) + " -> " + quoteDOT(string(to)) + ";\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func quoteDOT(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
}

// Clear resets the graph to empty. Test-only.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[component.ID]struct{})
	g.edges = make(map[component.ID][]component.ID)
	g.insertionOrder = nil
}
