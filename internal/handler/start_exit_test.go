package handler

import (
	"context"
	"testing"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHandler_AlwaysSucceeds(t *testing.T) {
	out, err := StartHandler{}.Execute(context.Background(), nil, nil, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
}

func TestExitHandler_AlwaysSucceeds(t *testing.T) {
	out, err := ExitHandler{}.Execute(context.Background(), nil, nil, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
}

func TestConditionalHandler_AlwaysSucceeds(t *testing.T) {
	out, err := ConditionalHandler{}.Execute(context.Background(), nil, nil, fidelity.Preamble{})
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
}
