package engine

import (
	"context"
	"fmt"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/parallel"
	"github.com/gutelius/attractor/internal/runtime"
)

// isFanInNode reports whether n is the tripleoctagon-shaped parallel.fan_in
// node that terminates a fan-out branch (spec §4.7).
func isFanInNode(n *graph.Node) bool {
	if n == nil {
		return false
	}
	return n.Shape == "tripleoctagon" || n.EffectiveType() == "parallel.fan_in"
}

// RunBranch executes one fan-out branch to completion: starting at
// startNodeID, running each node's handler in turn against an isolated
// branchContext, until it reaches a fan-in node, an exit node, or a
// failure with no route (spec §4.7 "Fan-out"). It implements
// parallel.BranchRunner; the Engine is otherwise untouched by a branch run
// since all its bookkeeping (retries, completed log, outcomes) is
// branch-local.
func (e *Engine) RunBranch(ctx context.Context, branchID, startNodeID string, branchContext *runtime.Context) parallel.Result {
	current := startNodeID
	previous := ""
	retries := map[string]int{}
	completed := []string{}
	outcomes := map[string]runtime.Outcome{}
	var lastOutcome runtime.Outcome

	for {
		if ctx.Err() != nil {
			return parallel.Result{BranchID: branchID, Status: runtime.StatusSkipped, Notes: "branch cancelled"}
		}
		n, ok := e.Graph.Node(current)
		if !ok {
			return parallel.Result{BranchID: branchID, Status: runtime.StatusFail, Notes: fmt.Sprintf("branch: node %q does not exist", current)}
		}
		if isFanInNode(n) || graph.IsExit(n) {
			return branchResult(branchID, lastOutcome)
		}

		h, err := e.Registry.Lookup(n)
		if err != nil {
			return parallel.Result{BranchID: branchID, Status: runtime.StatusFail, Notes: err.Error()}
		}

		var arrivalEdge *graph.Edge
		if previous != "" {
			for _, ed := range e.Graph.Outgoing(previous) {
				if ed.To == current {
					arrivalEdge = ed
					break
				}
			}
		}
		preamble := e.assemblePreamble(n, arrivalEdge, previous, completed, outcomes, branchContext)

		maxRetries := e.maxRetriesFor(n)
		retryCount := retries[n.ID]
		var outcome runtime.Outcome
		for {
			outcome = e.callHandler(ctx, h, n, branchContext, preamble)
			if outcome.Status == runtime.StatusRetry && retryCount < maxRetries {
				retryCount++
				retries[n.ID] = retryCount
				preamble = e.assemblePreamble(n, arrivalEdge, previous, completed, outcomes, branchContext)
				continue
			}
			if outcome.Status == runtime.StatusRetry {
				if n.AllowPartial {
					outcome.Status = runtime.StatusPartialSuccess
				} else {
					outcome.Status = runtime.StatusFail
				}
			}
			break
		}

		if outcome.ContextUpdates == nil {
			outcome.ContextUpdates = map[string]any{}
		}
		branchContext.Merge(outcome.ContextUpdates)
		branchContext.Set("outcome", string(outcome.Status))
		if outcome.PreferredLabel != "" {
			branchContext.Set("preferred_label", outcome.PreferredLabel)
		}
		outcomes[n.ID] = outcome
		completed = append(completed, n.ID)
		lastOutcome = outcome

		edge := selectNextEdge(e.Graph, n.ID, outcome, branchContext)
		if edge == nil {
			return branchResult(branchID, outcome)
		}
		previous = n.ID
		current = edge.To
	}
}

func (e *Engine) assemblePreamble(n *graph.Node, arrivalEdge *graph.Edge, previous string, completed []string, outcomes map[string]runtime.Outcome, rc *runtime.Context) fidelity.Preamble {
	mode := fidelity.ResolveMode(arrivalEdge, n, e.Graph)
	threadID := fidelity.ResolveThreadID(arrivalEdge, n, e.Graph, previous)
	stages := make([]fidelity.CompletedStage, 0, len(completed))
	for _, id := range completed {
		stages = append(stages, fidelity.CompletedStage{NodeID: id, Status: outcomes[id].Status})
	}
	st := fidelity.State{
		PipelineName:  e.Graph.Name,
		Goal:          e.Graph.Goal,
		Completed:     stages,
		ContextOrder:  rc.Order(),
		Context:       rc,
		ThreadHistory: e.threadHistory,
	}
	p := fidelity.Assemble(mode, threadID, st)
	p.OutgoingLabels = edgeLabels(e.Graph.Outgoing(n.ID))
	p.BranchTargets = edgeTargets(e.Graph.Outgoing(n.ID))
	return p
}

// branchResult builds a parallel.Result from a branch's last recorded
// outcome, extracting an optional numeric score from its context updates
// (spec §4.7 "Branches surface results as structured records").
func branchResult(branchID string, outcome runtime.Outcome) parallel.Result {
	res := parallel.Result{
		BranchID:       branchID,
		Status:         outcome.Status,
		Notes:          outcome.Notes,
		ContextUpdates: outcome.ContextUpdates,
	}
	if outcome.ContextUpdates != nil {
		if raw, ok := outcome.ContextUpdates["score"]; ok {
			if score, ok := toFloat64(raw); ok {
				res.Score = score
				res.HasScore = true
			}
		}
	}
	return res
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
