package validate

import (
	"testing"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGraph() *graph.Graph {
	g := graph.New("pipeline")
	start := graph.NewNode("start")
	start.Shape = "Mdiamond"
	work := graph.NewNode("work")
	work.Shape = "box"
	work.Prompt = "do work"
	exit := graph.NewNode("exit")
	exit.Shape = "Msquare"
	g.AddNode(start)
	g.AddNode(work)
	g.AddNode(exit)
	g.AddEdge(graph.NewEdge("start", "work"))
	g.AddEdge(graph.NewEdge("work", "exit"))
	return g
}

func TestValidate_CleanGraphHasNoErrors(t *testing.T) {
	diags := Validate(validGraph())
	for _, d := range diags {
		assert.NotEqual(t, SeverityError, d.Severity, d.Message)
	}
}

func TestLintStartNode_ZeroAndMultiple(t *testing.T) {
	g := graph.New("p")
	diags := Validate(g)
	assert.Contains(t, diagMessages(diags), "graph has no start node")

	a := graph.NewNode("a")
	a.Shape = "Mdiamond"
	b := graph.NewNode("b")
	b.Shape = "Mdiamond"
	g2 := graph.New("p")
	g2.AddNode(a)
	g2.AddNode(b)
	diags2 := Validate(g2)
	found := false
	for _, d := range diags2 {
		if d.Rule == "start_node" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintTerminalNode_MissingExit(t *testing.T) {
	g := graph.New("p")
	start := graph.NewNode("start")
	start.Shape = "Mdiamond"
	g.AddNode(start)
	diags := Validate(g)
	assert.Contains(t, diagMessages(diags), "graph has no exit node")
}

func TestLintEdgeTargetExists_DanglingEdge(t *testing.T) {
	g := validGraph()
	g.AddEdge(graph.NewEdge("work", "ghost"))
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "edge_target_exists" && d.EdgeTo == "ghost" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintStartNoIncoming(t *testing.T) {
	g := validGraph()
	g.AddEdge(graph.NewEdge("exit", "start"))
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "start_no_incoming" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintExitNoOutgoing(t *testing.T) {
	g := validGraph()
	g.AddEdge(graph.NewEdge("exit", "work"))
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "exit_no_outgoing" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintReachability_UnreachableNode(t *testing.T) {
	g := validGraph()
	stray := graph.NewNode("stray")
	g.AddNode(stray)
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "reachability" && d.NodeID == "stray" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintFidelityValid_UnrecognizedMode(t *testing.T) {
	g := validGraph()
	g.Nodes["work"].Fidelity = "bogus"
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "fidelity_valid" {
			found = true
			assert.Equal(t, SeverityWarning, d.Severity)
		}
	}
	assert.True(t, found)
}

func TestLintRetryTargetExists_MissingTarget(t *testing.T) {
	g := validGraph()
	g.Nodes["work"].RetryTarget = "nowhere"
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "retry_target_exists" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintGoalGateHasRetry_NoRetryTarget(t *testing.T) {
	g := validGraph()
	g.Nodes["work"].GoalGate = true
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "goal_gate_has_retry" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintPromptOnLLMNodes_MissingPrompt(t *testing.T) {
	g := validGraph()
	g.Nodes["work"].Prompt = ""
	diags := Validate(g)
	found := false
	for _, d := range diags {
		if d.Rule == "prompt_on_llm_nodes" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateOrError_ReturnsNilWhenNoErrors(t *testing.T) {
	require.NoError(t, ValidateOrError(validGraph()))
}

func TestValidateOrError_ReturnsErrorWithCount(t *testing.T) {
	err := ValidateOrError(graph.New("p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestSortBySeverity_ErrorsFirstStable(t *testing.T) {
	diags := []Diagnostic{
		{Rule: "w1", Severity: SeverityWarning},
		{Rule: "e1", Severity: SeverityError},
		{Rule: "w2", Severity: SeverityWarning},
		{Rule: "e2", Severity: SeverityError},
	}
	sorted := SortBySeverity(diags)
	require.Len(t, sorted, 4)
	assert.Equal(t, "e1", sorted[0].Rule)
	assert.Equal(t, "e2", sorted[1].Rule)
	assert.Equal(t, "w1", sorted[2].Rule)
	assert.Equal(t, "w2", sorted[3].Rule)
}

func diagMessages(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Message
	}
	return out
}
