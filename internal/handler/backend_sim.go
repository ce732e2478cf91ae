package handler

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// EchoBackend is a deterministic Backend stand-in for the generative
// collaborator the spec places out of core scope (spec §1). It never calls
// a real model; it echoes the expanded prompt back as the response, which
// is enough to drive a graph through codergen nodes in tests and local
// demo runs (mirrors kilroy's own "test_shim" CLI profile idea).
type EchoBackend struct{}

// Run returns the prompt unchanged, wrapped as a SUCCESS outcome by the
// caller (CodergenHandler).
func (EchoBackend) Run(_ context.Context, _ *graph.Node, prompt string, _ fidelity.Preamble) (string, *runtime.Outcome, error) {
	return prompt, nil, nil
}

// ShellToolRunner is the default ToolRunner: it actually execs the node's
// tool_command through the host shell. Nodes that need a sandboxed or
// simulated runner should supply their own ToolRunner instead.
type ShellToolRunner struct{}

// Exec runs command via "sh -c", honoring timeout if it parses as a
// positive duration (callers may also rely on the engine's own
// context-deadline enforcement around the handler call).
func (ShellToolRunner) Exec(ctx context.Context, command string, timeout string) (stdout, stderr string, exitCode int, err error) {
	if d, perr := time.ParseDuration(timeout); perr == nil && d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	exitCode = 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return outBuf.String(), errBuf.String(), -1, runErr
		}
	}
	return outBuf.String(), errBuf.String(), exitCode, nil
}

// NoopStackRunner reports SKIPPED for every stack.manager_loop node: child
// pipeline execution is out of core scope (spec §4.5) until a real
// StackRunner is wired.
type NoopStackRunner struct{}

// RunStack always returns SKIPPED.
func (NoopStackRunner) RunStack(_ context.Context, _ *graph.Node, _ fidelity.Preamble) (runtime.Outcome, error) {
	return runtime.NewOutcome(runtime.StatusSkipped), nil
}
