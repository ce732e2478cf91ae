package fidelity

import (
	"testing"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
)

func TestResolveMode_PrecedenceChain(t *testing.T) {
	g := graph.New("p")
	g.DefaultFidelity = "truncate"
	node := graph.NewNode("n")
	node.Fidelity = "summary:low"
	edge := graph.NewEdge("a", "n")
	edge.Fidelity = "full"

	assert.Equal(t, "full", ResolveMode(edge, node, g))
	assert.Equal(t, "summary:low", ResolveMode(nil, node, g))
	assert.Equal(t, "truncate", ResolveMode(nil, &graph.Node{}, g))
	assert.Equal(t, DefaultMode, ResolveMode(nil, nil, nil))
}

func TestResolveMode_InvalidCandidateSkipped(t *testing.T) {
	g := graph.New("p")
	g.DefaultFidelity = "bogus"
	assert.Equal(t, DefaultMode, ResolveMode(nil, nil, g))
}

func TestResolveThreadID_PrecedenceChain(t *testing.T) {
	g := graph.New("p")
	node := graph.NewNode("n")
	node.Classes = []string{"build"}
	edge := graph.NewEdge("a", "n")
	edge.ThreadID = "edge-thread"

	assert.Equal(t, "edge-thread", ResolveThreadID(edge, node, g, "prev"))
	assert.Equal(t, "prev", ResolveThreadID(nil, nil, g, "prev"))

	node2 := graph.NewNode("n2")
	node2.ThreadID = "node-thread"
	assert.Equal(t, "node-thread", ResolveThreadID(nil, node2, g, "prev"))

	node3 := graph.NewNode("n3")
	node3.Classes = []string{"derived"}
	assert.Equal(t, "derived", ResolveThreadID(nil, node3, g, "prev"))
}

func TestAssemble_TruncateModeOmitsStagesAndContext(t *testing.T) {
	st := State{
		PipelineName: "pipe",
		Goal:         "ship",
		Completed:    []CompletedStage{{NodeID: "a", Status: runtime.StatusSuccess}},
	}
	p := Assemble("truncate", "", st)
	assert.Empty(t, p.Stages)
	assert.Nil(t, p.Context)
	assert.Equal(t, "pipe", p.PipelineName)
}

func TestAssemble_FullModeIncludesHistoryAndFullContext(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("k", "v")
	st := State{
		ContextOrder:  ctx.Order(),
		Context:       ctx,
		ThreadHistory: map[string]string{"t1": "hello"},
	}
	p := Assemble("full", "t1", st)
	assert.Equal(t, "hello", p.History)
	assert.Equal(t, "v", p.Context["k"])
}

func TestAssemble_SummaryMediumKeepsLastFiveStages(t *testing.T) {
	var stages []CompletedStage
	for i := 0; i < 8; i++ {
		stages = append(stages, CompletedStage{NodeID: string(rune('a' + i))})
	}
	p := Assemble("summary:medium", "", State{Completed: stages})
	assert.Len(t, p.Stages, 5)
	assert.Equal(t, "d", p.Stages[0].NodeID)
}

func TestAssemble_SummaryLowOnlyCount(t *testing.T) {
	st := State{Completed: []CompletedStage{{NodeID: "a"}, {NodeID: "b"}}}
	p := Assemble("summary:low", "", st)
	assert.Equal(t, 2, p.StageCount)
	assert.Empty(t, p.Stages)
}

func TestPreamble_Render_SummaryLowShortCircuits(t *testing.T) {
	p := Preamble{PipelineName: "pipe", Goal: "ship", Mode: "summary:low", StageCount: 3}
	out := p.Render()
	assert.Contains(t, out, "completed stages: 3")
}

func TestPreamble_Render_IncludesStagesAndContext(t *testing.T) {
	p := Preamble{
		Stages:  []CompletedStage{{NodeID: "a", Status: runtime.StatusSuccess}},
		Context: map[string]any{"x": 1},
	}
	out := p.Render()
	assert.Contains(t, out, "stage a: success")
	assert.Contains(t, out, "context.x = 1")
}
