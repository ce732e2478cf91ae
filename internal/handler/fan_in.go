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

// FanInHandler reads the fan-out's parallel.results summary, ranks records,
// and reports the best branch (spec §4.7 "Fan-in").
type FanInHandler struct{}

// Execute ranks parallel.results by (success_class, score_desc, id_asc),
// writes parallel.fan_in.best_id/best_outcome, and returns SUCCESS (or
// PARTIAL_SUCCESS if the best record is partial).
func (FanInHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	raw, ok := rc.Get("parallel.results")
	if !ok {
		out := runtime.NewOutcome(runtime.StatusFail)
		out.FailureReason = "fan_in: no parallel.results in context"
		return out, nil
	}
	rawStr, ok := raw.(string)
	if !ok {
		return runtime.Outcome{}, fmt.Errorf("fan_in: parallel.results is not a string")
	}
	var records []struct {
		BranchID string   `json:"branch_id"`
		Status   string   `json:"status"`
		Notes    string   `json:"notes"`
		Score    *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(rawStr), &records); err != nil {
		return runtime.Outcome{}, fmt.Errorf("fan_in: decode parallel.results: %w", err)
	}
	results := make([]parallel.Result, len(records))
	for i, r := range records {
		res := parallel.Result{BranchID: r.BranchID, Status: runtime.Status(r.Status), Notes: r.Notes}
		if r.Score != nil {
			res.Score = *r.Score
			res.HasScore = true
		}
		results[i] = res
	}
	best, ok := parallel.Rank(results)
	if !ok {
		out := runtime.NewOutcome(runtime.StatusFail)
		out.FailureReason = "fan_in: no branch results to rank"
		return out, nil
	}
	status := runtime.StatusSuccess
	if best.Status == runtime.StatusPartialSuccess {
		status = runtime.StatusPartialSuccess
	}
	out := runtime.NewOutcome(status)
	out.ContextUpdates["parallel.fan_in.best_id"] = best.BranchID
	out.ContextUpdates["parallel.fan_in.best_outcome"] = string(best.Status)
	return out, nil
}
