package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/handler"
	"github.com/gutelius/attractor/internal/runtime"
)

type stopReason int

const (
	stopExit stopReason = iota
	stopStepLimit
	stopCancelled
	stopError
)

// Run drives the graph from the current node to a terminal state
// (spec §4.6). Initialize must have been called first (directly, or via
// Resume).
func (e *Engine) Run(ctx context.Context) error {
	e.emit(runtime.EventPipelineStart, "", nil)

	var finalErr error
	cancelled := false

outer:
	for {
		reason, err := e.runMainSteps(ctx)
		switch reason {
		case stopExit:
			target, failed, gateID, gateErr := e.checkGoalGates()
			if gateErr != nil {
				finalErr = gateErr
				e.emit(runtime.EventPipelineError, gateID, map[string]any{"error": gateErr.Error()})
				break outer
			}
			if !failed {
				e.emit(runtime.EventPipelineComplete, "", nil)
				break outer
			}
			e.emit(runtime.EventGoalGateRetry, gateID, map[string]any{"target": target})
			e.previousNodeID = e.currentNode
			e.currentNode = target
			continue outer
		case stopStepLimit:
			finalErr = fmt.Errorf("engine: step limit of %d exceeded", e.opts.StepLimit)
			e.emit(runtime.EventPipelineError, e.currentNode, map[string]any{"error": finalErr.Error()})
			break outer
		case stopCancelled:
			cancelled = true
			break outer
		case stopError:
			finalErr = err
			break outer
		}
	}

	e.emit(runtime.EventPipelineFinalize, "", map[string]any{"cancelled": cancelled})
	return finalErr
}

// runMainSteps executes nodes starting at e.currentNode until it visits an
// exit node, the step limit is reached, the context is cancelled, or an
// unrecoverable error occurs (spec §4.6 "Main step").
func (e *Engine) runMainSteps(ctx context.Context) (stopReason, error) {
	steps := 0
	for {
		if ctx.Err() != nil {
			return stopCancelled, nil
		}
		if steps >= e.opts.StepLimit {
			return stopStepLimit, nil
		}
		steps++

		n, ok := e.Graph.Node(e.currentNode)
		if !ok {
			err := fmt.Errorf("engine: current node %q does not exist", e.currentNode)
			e.emit(runtime.EventPipelineError, e.currentNode, map[string]any{"error": err.Error()})
			return stopError, err
		}

		outcome, err := e.visitNode(ctx, n)
		if err != nil {
			e.emit(runtime.EventPipelineError, n.ID, map[string]any{"error": err.Error()})
			return stopError, err
		}

		if graph.IsExit(n) {
			e.checkpoint()
			return stopExit, nil
		}

		edge := selectNextEdge(e.Graph, n.ID, outcome, e.ctx)
		if edge == nil {
			err := fmt.Errorf("engine: node %q produced %s with no matching outgoing edge", n.ID, outcome.Status)
			e.emit(runtime.EventPipelineError, n.ID, map[string]any{"error": err.Error()})
			return stopError, err
		}

		if edge.LoopRestart {
			e.emit(runtime.EventLoopRestart, n.ID, map[string]any{"target": edge.To})
			e.ctx = runtime.NewContext()
			e.seedContext()
			e.completedLog = nil
			e.nodeRetries = map[string]int{}
			e.nodeOutcomes = map[string]runtime.Outcome{}
			e.logs = nil
		}

		e.arrivalEdge = edge
		e.previousNodeID = n.ID
		e.currentNode = edge.To
		e.checkpoint()
	}
}

// visitNode runs n's handler with retry/timeout, merges its outcome into
// context, and records bookkeeping (spec §4.6 steps 1-6).
func (e *Engine) visitNode(ctx context.Context, n *graph.Node) (runtime.Outcome, error) {
	e.emit(runtime.EventNodeStart, n.ID, nil)

	h, err := e.Registry.Lookup(n)
	if err != nil {
		return runtime.Outcome{}, err
	}
	maxRetries := e.maxRetriesFor(n)
	preamble := e.buildPreamble(n, e.arrivalEdge)

	var outcome runtime.Outcome
	for {
		outcome = e.callHandler(ctx, h, n, e.ctx, preamble)

		if outcome.Status == runtime.StatusRetry {
			retryCount := e.nodeRetries[n.ID]
			if retryCount < maxRetries {
				retryCount++
				e.nodeRetries[n.ID] = retryCount
				e.emit(runtime.EventNodeRetry, n.ID, map[string]any{
					"attempt": retryCount,
					"reason":  outcome.FailureReason,
				})
				e.log(ctx, "node retry", "node_id", n.ID, "attempt", retryCount)
				preamble = e.buildPreamble(n, e.arrivalEdge)
				continue
			}
			// Retries exhausted (spec §4.6 step 4, §9 open question: only
			// RETRY-exhaustion is eligible for allow_partial coercion).
			if n.AllowPartial {
				outcome.Status = runtime.StatusPartialSuccess
			} else {
				outcome.Status = runtime.StatusFail
			}
		}
		break
	}

	if outcome.Status == runtime.StatusFail && outcome.FailureReason != "" {
		sig := failureSignature(n.ID, outcome.FailureReason)
		e.failureSignatures[sig]++
		e.log(ctx, "node failed", "node_id", n.ID, "reason", outcome.FailureReason, "repeat_count", e.failureSignatures[sig])
	}

	if outcome.ContextUpdates == nil {
		outcome.ContextUpdates = map[string]any{}
	}
	e.ctx.Merge(outcome.ContextUpdates)
	e.ctx.Set("outcome", string(outcome.Status))
	if outcome.PreferredLabel != "" {
		e.ctx.Set("preferred_label", outcome.PreferredLabel)
	}
	e.nodeOutcomes[n.ID] = outcome
	e.completedLog = append(e.completedLog, n.ID)
	for _, ref := range outcome.ArtifactRefs {
		e.logs = append(e.logs, runtime.ArtifactLogEntry(n.ID, ref))
	}
	e.logs = append(e.logs, fmt.Sprintf("%s:%s", n.ID, outcome.Status))

	e.log(ctx, "node complete", "node_id", n.ID, "status", string(outcome.Status))
	e.emit(runtime.EventNodeComplete, n.ID, map[string]any{"status": string(outcome.Status)})
	return outcome, nil
}

// callHandler invokes h with the node's configured timeout, recovering any
// panic and converting both panics and errors into a FAIL outcome so no
// exception ever escapes the step boundary (spec §4.6.1 "Failure
// semantics", §9 "Error returns vs. exceptions").
func (e *Engine) callHandler(ctx context.Context, h handler.Handler, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) runtime.Outcome {
	callCtx := ctx
	cancel := func() {}
	if d, ok := parseTimeout(n.Timeout); ok {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	type result struct {
		outcome runtime.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		func() {
			defer func() {
				if r := recover(); r != nil {
					res.err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			res.outcome, res.err = h.Execute(callCtx, n, rc, preamble)
		}()
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			out := runtime.NewOutcome(runtime.StatusFail)
			out.FailureReason = res.err.Error()
			return out
		}
		if res.outcome.ContextUpdates == nil {
			res.outcome.ContextUpdates = map[string]any{}
		}
		return res.outcome
	case <-callCtx.Done():
		out := runtime.NewOutcome(runtime.StatusFail)
		if callCtx.Err() == context.DeadlineExceeded {
			out.FailureReason = "timeout"
		} else {
			out.FailureReason = callCtx.Err().Error()
		}
		return out
	}
}

// checkGoalGates walks goal-gated nodes in declaration order, returning the
// first unsatisfied gate's resolved retry target (spec §4.6 "At exit").
func (e *Engine) checkGoalGates() (target string, failed bool, gateID string, err error) {
	for _, id := range e.Graph.GoalGatedNodes() {
		out, ok := e.nodeOutcomes[id]
		if ok && out.Satisfied() {
			continue
		}
		n := e.Graph.Nodes[id]
		t := n.RetryTarget
		if t == "" {
			t = n.FallbackRetryTarget
		}
		if t == "" {
			t = e.Graph.DefaultRetryTarget
		}
		if t == "" {
			t = e.Graph.DefaultFallbackRetryTarget
		}
		if t == "" {
			return "", true, id, fmt.Errorf("engine: goal gate %q failed with no resolvable retry target", id)
		}
		return t, true, id, nil
	}
	return "", false, "", nil
}

// checkpoint persists current run state via the configured Persistence, if
// any (spec §4.6 step 8).
func (e *Engine) checkpoint() {
	if e.opts.Persistence == nil {
		return
	}
	cp := runtime.NewCheckpoint(e.opts.Clock.Now(), e.currentNode, e.completedLog, e.nodeRetries, e.ctx.Snapshot(), e.logs)
	if err := e.opts.Persistence.Save(cp); err != nil {
		// Checkpoint write failures are ignored (neither logged nor
		// returned), not fatal: per spec §5, a crash before a successful
		// write simply re-executes the last step on resume.
	}
}

func parseTimeout(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
