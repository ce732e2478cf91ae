// Package fidelity resolves a node's fidelity mode and assembles the
// preamble handed to its handler (spec §4.4).
package fidelity

import (
	"fmt"
	"strings"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// DefaultMode is the compile-time fallback fidelity mode.
const DefaultMode = "compact"

var validModes = map[string]bool{
	"full":           true,
	"truncate":       true,
	"compact":        true,
	"summary:low":    true,
	"summary:medium": true,
	"summary:high":   true,
}

// CompletedStage is one entry in the completed-stages log, used to build
// preambles.
type CompletedStage struct {
	NodeID string
	Status runtime.Status
}

// State is the execution state the resolver reads from; a thin view over
// the engine's owned state so this package does not depend on internal/engine.
type State struct {
	PipelineName string
	Goal         string
	Completed    []CompletedStage
	ContextOrder []string // context keys in insertion order
	Context      *runtime.Context
	// ThreadHistory maps a thread id to its accumulated session history, for
	// "full" fidelity's stateful-conversation reuse.
	ThreadHistory map[string]string
}

// Preamble is the fidelity-resolved view handed to a handler.
type Preamble struct {
	Mode         string
	PipelineName string
	Goal         string
	ThreadID     string
	History      string
	Stages       []CompletedStage
	StageCount   int
	Context      map[string]any

	// OutgoingLabels carries the node's outgoing-edge labels in insertion
	// order, populated by the engine for handlers (wait.human) that need
	// them without requiring a Handler to see the graph directly.
	OutgoingLabels []string

	// BranchTargets carries a fan-out node's outgoing-edge target ids in
	// insertion order, populated by the engine for the parallel handler.
	BranchTargets []string
}

// ResolveMode picks the fidelity mode from the chain: edge override, node
// override, graph default, compile-time default (spec §4.4).
func ResolveMode(edge *graph.Edge, node *graph.Node, g *graph.Graph) string {
	candidates := []string{}
	if edge != nil {
		candidates = append(candidates, edge.Fidelity)
	}
	if node != nil {
		candidates = append(candidates, node.Fidelity)
	}
	if g != nil {
		candidates = append(candidates, g.DefaultFidelity)
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && validModes[c] {
			return c
		}
	}
	return DefaultMode
}

// ResolveThreadID picks the thread id from the chain: edge override, node
// override, derived subgraph class, previous node's id (spec §4.4).
func ResolveThreadID(edge *graph.Edge, node *graph.Node, g *graph.Graph, previousNodeID string) string {
	if edge != nil && edge.ThreadID != "" {
		return edge.ThreadID
	}
	if node != nil && node.ThreadID != "" {
		return node.ThreadID
	}
	if node != nil && g != nil {
		classes := graph.ClassList(g, node)
		if len(classes) > 0 {
			return classes[0]
		}
	}
	return previousNodeID
}

// Assemble builds the preamble for mode given the current state and the
// resolved thread id.
func Assemble(mode, threadID string, st State) Preamble {
	p := Preamble{
		Mode:         mode,
		PipelineName: st.PipelineName,
		Goal:         st.Goal,
		ThreadID:     threadID,
		StageCount:   len(st.Completed),
	}
	switch mode {
	case "full":
		p.History = st.ThreadHistory[threadID]
		p.Stages = st.Completed
		p.Context = fullContext(st)
	case "truncate":
		// pipeline name and goal only; no stages, no context.
	case "compact":
		p.Stages = st.Completed
		p.Context = firstNContext(st, 20)
	case "summary:low":
		// count only, already in StageCount.
	case "summary:medium":
		p.Stages = lastN(st.Completed, 5)
	case "summary:high":
		p.Stages = lastN(st.Completed, 10)
		p.Context = firstNContext(st, 30)
	default:
		p.Stages = st.Completed
		p.Context = firstNContext(st, 20)
	}
	return p
}

func lastN(stages []CompletedStage, n int) []CompletedStage {
	if len(stages) <= n {
		return append([]CompletedStage{}, stages...)
	}
	return append([]CompletedStage{}, stages[len(stages)-n:]...)
}

func firstNContext(st State, n int) map[string]any {
	out := map[string]any{}
	if st.Context == nil {
		return out
	}
	count := 0
	for _, k := range st.ContextOrder {
		if count >= n {
			break
		}
		if v, ok := st.Context.Get(k); ok {
			out[k] = v
			count++
		}
	}
	return out
}

func fullContext(st State) map[string]any {
	if st.Context == nil {
		return map[string]any{}
	}
	return st.Context.Snapshot()
}

// Render produces a human/LLM-readable rendering of the preamble, used by
// the codergen handler to build the final prompt text.
func (p Preamble) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline: %s\ngoal: %s\n", p.PipelineName, p.Goal)
	if p.Mode == "summary:low" {
		fmt.Fprintf(&b, "completed stages: %d\n", p.StageCount)
		return b.String()
	}
	if p.ThreadID != "" && p.History != "" {
		fmt.Fprintf(&b, "thread: %s\nhistory:\n%s\n", p.ThreadID, p.History)
	}
	for _, s := range p.Stages {
		fmt.Fprintf(&b, "stage %s: %s\n", s.NodeID, s.Status)
	}
	for k, v := range p.Context {
		fmt.Fprintf(&b, "context.%s = %v\n", k, v)
	}
	return b.String()
}
