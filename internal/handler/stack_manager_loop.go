package handler

import (
	"context"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// StackManagerLoopHandler supervises a child pipeline. Its internals are out
// of core scope (spec §4.5): it consumes and emits outcomes through the same
// Handler contract as any other node, delegating the actual child-pipeline
// execution to an injected Runner so the core engine never depends on a
// concrete sub-pipeline implementation.
type StackManagerLoopHandler struct {
	Runner StackRunner
}

// StackRunner executes a named child pipeline and returns its terminal
// outcome.
type StackRunner interface {
	RunStack(ctx context.Context, n *graph.Node, preamble fidelity.Preamble) (runtime.Outcome, error)
}

// NewStackManagerLoopHandler wraps runner.
func NewStackManagerLoopHandler(runner StackRunner) *StackManagerLoopHandler {
	return &StackManagerLoopHandler{Runner: runner}
}

// Execute delegates to Runner, or returns SKIPPED if none was configured.
func (h *StackManagerLoopHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	if h.Runner == nil {
		return runtime.NewOutcome(runtime.StatusSkipped), nil
	}
	return h.Runner.RunStack(ctx, n, preamble)
}
