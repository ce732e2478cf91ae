package engine

import (
	"testing"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLinearGraph() *graph.Graph {
	g := graph.New("p")
	g.AddNode(graph.NewNode("a"))
	g.AddNode(graph.NewNode("b"))
	g.AddNode(graph.NewNode("c"))
	return g
}

func TestNormalizeLabel_StripsAcceleratorAndCollapsesSpace(t *testing.T) {
	assert.Equal(t, "yes please", normalizeLabel("[Y]  Yes   Please"))
}

func TestSelectNextEdge_NoOutgoingReturnsNil(t *testing.T) {
	g := buildLinearGraph()
	edge := selectNextEdge(g, "a", runtime.NewOutcome(runtime.StatusSuccess), runtime.NewContext())
	assert.Nil(t, edge)
}

func TestSelectNextEdge_ConditionMatchWins(t *testing.T) {
	g := buildLinearGraph()
	e1 := graph.NewEdge("a", "b")
	e1.Condition = "outcome=success"
	e2 := graph.NewEdge("a", "c")
	g.AddEdge(e1)
	g.AddEdge(e2)

	edge := selectNextEdge(g, "a", runtime.NewOutcome(runtime.StatusSuccess), runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}

func TestSelectNextEdge_PreferredLabelMatch(t *testing.T) {
	g := buildLinearGraph()
	e1 := graph.NewEdge("a", "b")
	e1.Label = "[Y] Yes"
	e2 := graph.NewEdge("a", "c")
	e2.Label = "[N] No"
	g.AddEdge(e1)
	g.AddEdge(e2)

	out := runtime.NewOutcome(runtime.StatusSuccess)
	out.PreferredLabel = "yes"
	edge := selectNextEdge(g, "a", out, runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}

func TestSelectNextEdge_SuggestedNextIDs(t *testing.T) {
	g := buildLinearGraph()
	g.AddEdge(graph.NewEdge("a", "b"))
	g.AddEdge(graph.NewEdge("a", "c"))

	out := runtime.NewOutcome(runtime.StatusSuccess)
	out.SuggestedNextIDs = []string{"c", "b"}
	edge := selectNextEdge(g, "a", out, runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "c", edge.To)
}

func TestSelectNextEdge_UnconditionalWeightTieBrokenByTargetID(t *testing.T) {
	g := buildLinearGraph()
	e1 := graph.NewEdge("a", "c")
	e2 := graph.NewEdge("a", "b")
	g.AddEdge(e1)
	g.AddEdge(e2)

	edge := selectNextEdge(g, "a", runtime.NewOutcome(runtime.StatusSuccess), runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}

func TestSelectNextEdge_HighestWeightWins(t *testing.T) {
	g := buildLinearGraph()
	e1 := graph.NewEdge("a", "b")
	e1.Weight = 1
	e2 := graph.NewEdge("a", "c")
	e2.Weight = 5
	g.AddEdge(e1)
	g.AddEdge(e2)

	edge := selectNextEdge(g, "a", runtime.NewOutcome(runtime.StatusSuccess), runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "c", edge.To)
}

func TestSelectNextEdge_FallsBackToAnyEdgeWhenAllConditional(t *testing.T) {
	g := buildLinearGraph()
	e1 := graph.NewEdge("a", "b")
	e1.Condition = "outcome=fail"
	e2 := graph.NewEdge("a", "c")
	e2.Condition = "outcome=fail"
	g.AddEdge(e1)
	g.AddEdge(e2)

	edge := selectNextEdge(g, "a", runtime.NewOutcome(runtime.StatusSuccess), runtime.NewContext())
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}
