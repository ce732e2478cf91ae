package handler

import (
	"context"
	"fmt"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// ToolHandler resolves the shell command from the node's
// extra.tool_command and runs it via the injected ToolRunner (spec §4.5).
type ToolHandler struct {
	Runner ToolRunner
}

// NewToolHandler wraps runner.
func NewToolHandler(runner ToolRunner) *ToolHandler {
	return &ToolHandler{Runner: runner}
}

// Execute maps exit code zero to SUCCESS and nonzero (including timeout) to
// FAIL with a descriptive failure_reason.
func (h *ToolHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	command := n.ExtraString("tool_command", "")
	if command == "" {
		out := runtime.NewOutcome(runtime.StatusFail)
		out.FailureReason = "no tool_command configured"
		return out, nil
	}
	stdout, stderr, exitCode, err := h.Runner.Exec(ctx, command, n.Timeout)
	out := runtime.NewOutcome(runtime.StatusSuccess)
	out.ContextUpdates["tool.output"] = stdout
	if err != nil {
		out.Status = runtime.StatusFail
		if ctx.Err() != nil {
			out.FailureReason = "timeout"
		} else {
			out.FailureReason = fmt.Sprintf("timeout or exec error: %v", err)
		}
		return out, nil
	}
	if exitCode != 0 {
		out.Status = runtime.StatusFail
		out.FailureReason = fmt.Sprintf("command exited with code %d: %s", exitCode, stderr)
	}
	return out, nil
}
