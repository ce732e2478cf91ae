package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/parallel"
	"github.com/gutelius/attractor/internal/runtime"
)

// BranchRunner is the engine-supplied collaborator that executes one
// fan-out branch to completion (spec §4.7). Re-exported so callers wiring
// a ParallelHandler don't need to import internal/parallel directly.
type BranchRunner = parallel.BranchRunner

// ParallelHandler activates the parallel subsystem on a fan-out node
// (spec §4.7). The engine populates preamble.BranchTargets with the node's
// outgoing-edge target ids before each invocation, since Handler.Execute
// does not see the graph directly.
type ParallelHandler struct {
	Runner BranchRunner
}

// NewParallelHandler wraps runner.
func NewParallelHandler(runner BranchRunner) *ParallelHandler {
	return &ParallelHandler{Runner: runner}
}

// branchRecord is the JSON-serializable form written to context key
// "parallel.results".
type branchRecord struct {
	BranchID       string         `json:"branch_id"`
	Status         string         `json:"status"`
	Notes          string         `json:"notes,omitempty"`
	Score          *float64       `json:"score,omitempty"`
	ContextUpdates map[string]any `json:"context_updates,omitempty"`
}

// Execute enumerates the node's outgoing edges as branches, fans out with
// bounded concurrency, and reports an outcome per the node's
// join_policy/error_policy (spec §4.7).
func (h *ParallelHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	targets := preamble.BranchTargets
	if len(targets) == 0 {
		out := runtime.NewOutcome(runtime.StatusFail)
		out.FailureReason = "parallel node has no outgoing edges"
		return out, nil
	}
	cfg := parallel.Config{
		MaxParallel: n.ExtraInt("max_parallel", parallel.DefaultMaxParallel),
		Join:        parallel.JoinPolicy(n.ExtraString("join_policy", string(parallel.JoinWaitAll))),
		Error:       parallel.ErrorPolicy(n.ExtraString("error_policy", string(parallel.ErrorContinue))),
		K:           n.ExtraInt("k", 0),
	}
	if err := parallel.ValidateConfig(cfg, len(targets)); err != nil {
		out := runtime.NewOutcome(runtime.StatusFail)
		out.FailureReason = err.Error()
		return out, nil
	}

	branches := make([]parallel.Branch, len(targets))
	for i, t := range targets {
		branches[i] = parallel.Branch{
			ID:            t,
			StartNodeID:   t,
			BranchContext: rc.Clone(),
		}
	}

	status, results := parallel.FanOut(ctx, h.Runner, branches, cfg)

	records := make([]branchRecord, len(results))
	for i, r := range results {
		rec := branchRecord{BranchID: r.BranchID, Status: string(r.Status), Notes: r.Notes, ContextUpdates: r.ContextUpdates}
		if r.HasScore {
			score := r.Score
			rec.Score = &score
		}
		records[i] = rec
	}
	summary, err := json.Marshal(records)
	if err != nil {
		return runtime.Outcome{}, fmt.Errorf("parallel: marshal results: %w", err)
	}

	out := runtime.NewOutcome(status)
	out.ContextUpdates["parallel.results"] = string(summary)
	return out, nil
}
