package engine

import (
	"fmt"

	"github.com/gutelius/attractor/internal/runtime"
)

// Resume restores engine state from a checkpoint loaded via the configured
// Persistence and advances to the successor of the checkpoint's current
// node, resolved through the same edge selector used in the main loop
// against the last recorded outcome (spec §4.6 "Initialization... If
// resuming from a checkpoint").
//
// The checkpoint format (spec §6.3) does not persist a full Outcome, only
// the context snapshot; the last outcome's status and preferred label are
// recovered from the "outcome"/"preferred_label" context keys that the main
// loop writes on every node visit (spec §4.2 "special outcome keys").
func (e *Engine) Resume() (bool, error) {
	if e.opts.Persistence == nil {
		return false, nil
	}
	cp, found, err := e.opts.Persistence.Load()
	if err != nil {
		return false, fmt.Errorf("engine: resume: load checkpoint: %w", err)
	}
	if !found {
		return false, nil
	}

	e.ctx = runtime.NewContext()
	e.ctx.Restore(cp.Context)
	e.completedLog = append([]string{}, cp.CompletedNodes...)
	e.nodeRetries = copyIntMapLocal(cp.NodeRetries)
	e.logs = append([]string{}, cp.Logs...)
	e.nodeOutcomes = map[string]runtime.Outcome{}

	lastOutcome := runtime.NewOutcome(runtime.ParseStatus(e.ctx.GetString("outcome", string(runtime.StatusSuccess))))
	lastOutcome.PreferredLabel = e.ctx.GetString("preferred_label", "")
	e.nodeOutcomes[cp.CurrentNode] = lastOutcome

	edge := selectNextEdge(e.Graph, cp.CurrentNode, lastOutcome, e.ctx)
	if edge == nil {
		return false, fmt.Errorf("engine: resume: node %q has no matching outgoing edge for resume", cp.CurrentNode)
	}

	e.previousNodeID = cp.CurrentNode
	e.currentNode = edge.To
	e.arrivalEdge = edge
	return true, nil
}

func copyIntMapLocal(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
