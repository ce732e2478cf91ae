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

func TestStripAccelerator_BracketForm(t *testing.T) {
	text, key := StripAccelerator("[Y] Yes, proceed")
	assert.Equal(t, "Yes, proceed", text)
	assert.Equal(t, "Y", key)
}

func TestStripAccelerator_ParenForm(t *testing.T) {
	text, key := StripAccelerator("y) Yes, proceed")
	assert.Equal(t, "Yes, proceed", text)
	assert.Equal(t, "y", key)
}

func TestStripAccelerator_NoPrefixPassesThrough(t *testing.T) {
	text, key := StripAccelerator("Just a label")
	assert.Equal(t, "Just a label", text)
	assert.Equal(t, "", key)
}

func TestWaitHumanHandler_MatchesSelectedOptionBackToRawLabel(t *testing.T) {
	interviewer := NewQueueInterviewer(Answer{Selected: "Yes, proceed"})
	h := NewWaitHumanHandler(interviewer)
	n := graph.NewNode("gate")
	n.Prompt = "proceed?"
	preamble := fidelity.Preamble{OutgoingLabels: []string{"[Y] Yes, proceed", "[N] No, stop"}}

	out, err := h.Execute(context.Background(), n, runtime.NewContext(), preamble)
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusSuccess, out.Status)
	assert.Equal(t, "[Y] Yes, proceed", out.PreferredLabel)
}

func TestWaitHumanHandler_MatchesAcceleratorKey(t *testing.T) {
	interviewer := NewQueueInterviewer(Answer{Selected: "n"})
	h := NewWaitHumanHandler(interviewer)
	n := graph.NewNode("gate")
	preamble := fidelity.Preamble{OutgoingLabels: []string{"[Y] Yes, proceed", "[N] No, stop"}}

	out, err := h.Execute(context.Background(), n, runtime.NewContext(), preamble)
	require.NoError(t, err)
	assert.Equal(t, "[N] No, stop", out.PreferredLabel)
}

func TestWaitHumanHandler_FreeformWhenNoOptions(t *testing.T) {
	interviewer := NewQueueInterviewer(Answer{Freeform: "go ahead"})
	h := NewWaitHumanHandler(interviewer)
	n := graph.NewNode("gate")
	preamble := fidelity.Preamble{}

	out, err := h.Execute(context.Background(), n, runtime.NewContext(), preamble)
	require.NoError(t, err)
	assert.Equal(t, "go ahead", out.Notes)
	assert.Equal(t, "", out.PreferredLabel)
}

func TestAutoApproveInterviewer_PicksFirstOption(t *testing.T) {
	ans, err := AutoApproveInterviewer{}.Ask(context.Background(), Question{Type: QuestionMultipleChoice, Options: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a", ans.Selected)
}

func TestAutoApproveInterviewer_YesNoAlwaysYes(t *testing.T) {
	ans, err := AutoApproveInterviewer{}.Ask(context.Background(), Question{Type: QuestionYesNo})
	require.NoError(t, err)
	assert.Equal(t, "yes", ans.Selected)
}

func TestQueueInterviewer_ExhaustedReturnsError(t *testing.T) {
	q := NewQueueInterviewer()
	_, err := q.Ask(context.Background(), Question{})
	assert.Error(t, err)
}

func TestRecordingInterviewer_LogsEachAsk(t *testing.T) {
	rec := NewRecordingInterviewer(AutoApproveInterviewer{})
	_, err := rec.Ask(context.Background(), Question{StageID: "s1", Type: QuestionYesNo})
	require.NoError(t, err)

	log := rec.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "s1", log[0].Question.StageID)
	assert.Equal(t, "yes", log[0].Answer.Selected)
}

func TestCallbackInterviewer_DelegatesToFunc(t *testing.T) {
	called := false
	cb := CallbackInterviewer{Func: func(_ context.Context, q Question) (Answer, error) {
		called = true
		return Answer{Selected: "ok"}, nil
	}}
	ans, err := cb.Ask(context.Background(), Question{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", ans.Selected)
}
