package handler

import (
	"context"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// StartHandler is a no-op returning SUCCESS (spec §4.5).
type StartHandler struct{}

// Execute always succeeds.
func (StartHandler) Execute(context.Context, *graph.Node, *runtime.Context, fidelity.Preamble) (runtime.Outcome, error) {
	return runtime.NewOutcome(runtime.StatusSuccess), nil
}

// ExitHandler is a terminal marker returning SUCCESS; the execution loop
// performs goal-gate checks after it returns (spec §4.5).
type ExitHandler struct{}

// Execute always succeeds.
func (ExitHandler) Execute(context.Context, *graph.Node, *runtime.Context, fidelity.Preamble) (runtime.Outcome, error) {
	return runtime.NewOutcome(runtime.StatusSuccess), nil
}

// ConditionalHandler is a no-op returning SUCCESS; the engine's edge
// selector does the real routing work for conditional nodes (spec §4.5).
type ConditionalHandler struct{}

// Execute always succeeds.
func (ConditionalHandler) Execute(context.Context, *graph.Node, *runtime.Context, fidelity.Preamble) (runtime.Outcome, error) {
	return runtime.NewOutcome(runtime.StatusSuccess), nil
}
