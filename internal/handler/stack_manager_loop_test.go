package handler

import (
	"context"
	"testing"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStackRunner struct {
	outcome runtime.Outcome
	err     error
}

func (f fakeStackRunner) RunStack(context.Context, *graph.Node, fidelity.Preamble) (runtime.Outcome, error) {
	return f.outcome, f.err
}

func TestStackManagerLoopHandler_NilRunnerSkips(t *testing.T) {
	h := NewStackManagerLoopHandler(nil)
	out, err := h.Execute(context.Background(), graph.NewNode("s"), runtime.NewContext(), fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSkipped, out.Status)
}

func TestStackManagerLoopHandler_DelegatesToRunner(t *testing.T) {
	h := NewStackManagerLoopHandler(fakeStackRunner{outcome: runtime.NewOutcome(runtime.StatusSuccess)})
	out, err := h.Execute(context.Background(), graph.NewNode("s"), runtime.NewContext(), fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
}
