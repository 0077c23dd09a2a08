package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusforge/fabric/internal/fabric/component"
)

func nodes(ids ...string) []component.ID {
	out := make([]component.ID, len(ids))
	for i, id := range ids {
		out[i] = component.ID(id)
	}
	return out
}

func TestAddEdge_OrderDeterminism(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddNode("C")

	require.True(t, g.AddEdge("A", "B"))
	require.True(t, g.AddEdge("A", "C"))

	require.Equal(t, nodes("B", "C"), g.DependenciesOf("A"))
}

func TestAddEdge_DuplicateSuppressed(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")

	require.True(t, g.AddEdge("A", "B"))
	require.True(t, g.AddEdge("A", "B"))

	require.Equal(t, nodes("B"), g.DependenciesOf("A"))
}

func TestAddEdge_MissingEndpointFails(t *testing.T) {
	g := New()
	g.AddNode("A")

	require.False(t, g.AddEdge("A", "B"))
	require.False(t, g.AddEdge("B", "A"))
}

func TestAddEdge_NoSelfEdge(t *testing.T) {
	g := New()
	g.AddNode("A")

	require.False(t, g.AddEdge("A", "A"))
}

func TestRemoveNode_ScrubsAdjacency(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddNode("C")
	g.AddEdge("A", "B")
	g.AddEdge("C", "B")

	g.RemoveNode("B")

	require.Empty(t, g.DependenciesOf("A"))
	require.Empty(t, g.DependenciesOf("C"))
}

// TestImpactBFS_Order: for A->B, B->C, A->D,
// analyzeImpact("C") begins with B, and A appears only after B.
func TestImpactBFS_Order(t *testing.T) {
	g := New()
	for _, n := range []component.ID{"A", "B", "C", "D"} {
		g.AddNode(n)
	}
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("A", "D")

	impact := g.ImpactBFS("C")
	require.Equal(t, nodes("B", "A"), impact)
}

// TestImpactBFS_DiamondOrder: A->B, A->C, B->D, C->D;
// analyzeImpact("D") == [B, C, A] in that BFS order.
func TestImpactBFS_DiamondOrder(t *testing.T) {
	g := New()
	for _, n := range []component.ID{"A", "B", "C", "D"} {
		g.AddNode(n)
	}
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	impact := g.ImpactBFS("D")
	require.Equal(t, nodes("B", "C", "A"), impact)
}

func TestImpactBFS_ToleratesCycles(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	require.NotPanics(t, func() {
		impact := g.ImpactBFS("A")
		require.Equal(t, nodes("B"), impact)
	})
}

func TestDependentsOf(t *testing.T) {
	g := New()
	for _, n := range []component.ID{"A", "B", "C"} {
		g.AddNode(n)
	}
	g.AddEdge("A", "C")
	g.AddEdge("B", "C")

	require.Equal(t, nodes("A", "B"), g.DependentsOf("C"))
}

func TestVisualizeDependencies(t *testing.T) {
	g := New()
	for _, n := range []component.ID{"api", "db"} {
		g.AddNode(n)
	}
	g.AddEdge("api", "db")

	dot := g.VisualizeDependencies()
	require.Contains(t, dot, "digraph dependencies {")
	require.Contains(t, dot, `"api" -> "db";`)
}
