package transform

import (
	"errors"
	"testing"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandVariables_SubstitutesGoalToken(t *testing.T) {
	g := graph.New("p")
	g.Goal = "ship the release"
	n := graph.NewNode("a")
	n.Prompt = "please $goal now"
	g.AddNode(n)

	require.NoError(t, ExpandVariables(g))
	assert.Equal(t, "please ship the release now", g.Nodes["a"].Prompt)
}

func TestExpandVariables_SkipsEmptyPrompt(t *testing.T) {
	g := graph.New("p")
	n := graph.NewNode("a")
	g.AddNode(n)

	require.NoError(t, ExpandVariables(g))
	assert.Equal(t, "", g.Nodes["a"].Prompt)
}

func TestApplyStylesheet_NoSourceIsNoop(t *testing.T) {
	g := graph.New("p")
	n := graph.NewNode("a")
	g.AddNode(n)

	require.NoError(t, ApplyStylesheet(g))
	assert.Equal(t, "", g.Nodes["a"].LLMModel)
}

func TestApplyStylesheet_ParsesAndApplies(t *testing.T) {
	g := graph.New("p")
	g.ModelStylesheet = `* { llm_model: "base"; }`
	n := graph.NewNode("a")
	g.AddNode(n)

	require.NoError(t, ApplyStylesheet(g))
	assert.Equal(t, "base", g.Nodes["a"].LLMModel)
}

func TestApplyStylesheet_ParseErrorPropagates(t *testing.T) {
	g := graph.New("p")
	g.ModelStylesheet = `* { llm_model: "base"`
	assert.Error(t, ApplyStylesheet(g))
}

func TestRun_DefaultOrderExpandsBeforeStylesheet(t *testing.T) {
	g := graph.New("p")
	g.Goal = "ship"
	g.ModelStylesheet = `* { llm_model: "m"; }`
	n := graph.NewNode("a")
	n.Prompt = "do $goal"
	g.AddNode(n)

	require.NoError(t, Run(g, Default()))
	assert.Equal(t, "do ship", g.Nodes["a"].Prompt)
	assert.Equal(t, "m", g.Nodes["a"].LLMModel)
}

func TestRun_StopsAtFirstError(t *testing.T) {
	calls := 0
	t1 := func(g *graph.Graph) error {
		calls++
		return errors.New("boom")
	}
	t2 := func(g *graph.Graph) error {
		calls++
		return nil
	}
	err := Run(graph.New("p"), []Transform{t1, t2})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
