package handler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	gotPrompt string
	response  string
	outcome   *runtime.Outcome
	err       error
}

func (f *fakeBackend) Run(_ context.Context, _ *graph.Node, prompt string, _ fidelity.Preamble) (string, *runtime.Outcome, error) {
	f.gotPrompt = prompt
	return f.response, f.outcome, f.err
}

func TestCodergenHandler_WrapsRawStringAsSuccess(t *testing.T) {
	be := &fakeBackend{response: "done"}
	h := NewCodergenHandler(be)
	n := graph.NewNode("work")
	n.Prompt = "build $goal"
	rc := runtime.NewContext()

	out, err := h.Execute(context.Background(), n, rc, fidelity.Preamble{Goal: "the app"})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
	assert.Equal(t, "work", out.ContextUpdates["last_stage"])
	assert.Equal(t, "done", out.ContextUpdates["last_response"])
	assert.Equal(t, "build the app", be.gotPrompt)
}

func TestCodergenHandler_PassesThroughExplicitOutcome(t *testing.T) {
	explicit := runtime.NewOutcome(runtime.StatusFail)
	explicit.FailureReason = "bad input"
	be := &fakeBackend{outcome: &explicit}
	h := NewCodergenHandler(be)
	n := graph.NewNode("work")
	rc := runtime.NewContext()

	out, err := h.Execute(context.Background(), n, rc, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusFail, out.Status)
	assert.Equal(t, "bad input", out.FailureReason)
}

func TestCodergenHandler_BackendErrorWraps(t *testing.T) {
	be := &fakeBackend{err: errors.New("boom")}
	h := NewCodergenHandler(be)
	n := graph.NewNode("work")
	rc := runtime.NewContext()

	_, err := h.Execute(context.Background(), n, rc, fidelity.Preamble{})
	assert.Error(t, err)
}

func TestCodergenHandler_ExpandsContextVariables(t *testing.T) {
	be := &fakeBackend{response: "ok"}
	h := NewCodergenHandler(be)
	n := graph.NewNode("work")
	n.Prompt = "use $branch_name please"
	rc := runtime.NewContext()
	rc.Set("branch_name", "main")

	_, err := h.Execute(context.Background(), n, rc, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, "use main please", be.gotPrompt)
}

func TestCodergenHandler_LastResponseTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	be := &fakeBackend{response: long}
	h := NewCodergenHandler(be)
	n := graph.NewNode("work")
	rc := runtime.NewContext()

	out, err := h.Execute(context.Background(), n, rc, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Len(t, out.ContextUpdates["last_response"], lastResponseLimit)
}
