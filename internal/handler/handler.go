// Package handler implements the nine built-in node handlers and the
// injected-collaborator interfaces they depend on (spec §4.5, §6.1).
package handler

import (
	"context"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// Handler is the single operation every node type exposes: given a node, a
// context handle, and the resolved preamble, produce an Outcome. Retry,
// timeout, and event emission are the engine's responsibility, not the
// handler's.
type Handler interface {
	Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	return f(ctx, n, rc, preamble)
}

// Backend is the injected generative collaborator for codergen nodes
// (spec §6.1). Run may return either a raw string (wrapped in a SUCCESS
// outcome by the handler) or a fully-formed Outcome.
type Backend interface {
	Run(ctx context.Context, n *graph.Node, prompt string, preamble fidelity.Preamble) (string, *runtime.Outcome, error)
}

// ToolRunner is the injected shell-command collaborator for tool nodes.
type ToolRunner interface {
	Exec(ctx context.Context, command string, timeout string) (stdout, stderr string, exitCode int, err error)
}
