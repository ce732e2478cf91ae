package handler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// acceleratorPrefix matches a leading option-shortcut marker of the form
// "[X] ", "X) ", or "X - " so the underlying label text and its shortcut key
// can be recovered (spec §4.5, §4.6.1).
var acceleratorPrefix = regexp.MustCompile(`^(?:\[([^\]]+)\]\s+|([^\s)]+)\)\s+|([^\s-]+)\s+-\s+)`)

// StripAccelerator removes one leading accelerator prefix from label,
// returning the remaining text and the shortcut key (empty if none).
func StripAccelerator(label string) (text, key string) {
	m := acceleratorPrefix.FindStringSubmatch(label)
	if m == nil {
		return label, ""
	}
	for _, g := range m[1:] {
		if g != "" {
			key = g
			break
		}
	}
	return label[len(m[0]):], key
}

// WaitHumanHandler derives a question from the node and options from
// outgoing-edge labels, delegating to the injected Interviewer (spec §4.5).
type WaitHumanHandler struct {
	Interviewer Interviewer
}

// NewWaitHumanHandler wraps interviewer.
func NewWaitHumanHandler(interviewer Interviewer) *WaitHumanHandler {
	return &WaitHumanHandler{Interviewer: interviewer}
}

// Execute asks the interviewer and maps the chosen option back to an edge
// label, returning an outcome whose PreferredLabel matches it.
func (h *WaitHumanHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	edges := preamble.OutgoingLabels
	options := make([]string, 0, len(edges))
	stripped := make([]string, 0, len(edges))
	for _, label := range edges {
		text, _ := StripAccelerator(label)
		options = append(options, label)
		stripped = append(stripped, text)
	}
	question := Question{
		StageID: n.ID,
		Text:    questionText(n),
		Type:    QuestionMultipleChoice,
		Options: stripped,
	}
	if len(options) == 0 {
		question.Type = QuestionFreeform
	}
	answer, err := h.Interviewer.Ask(ctx, question)
	if err != nil {
		return runtime.Outcome{}, fmt.Errorf("wait.human: ask: %w", err)
	}
	out := runtime.NewOutcome(runtime.StatusSuccess)
	label := matchOptionLabel(answer.Selected, edges, stripped)
	if label != "" {
		out.PreferredLabel = label
	} else if answer.Freeform != "" {
		out.Notes = answer.Freeform
	}
	return out, nil
}

func questionText(n *graph.Node) string {
	if n.Prompt != "" {
		return n.Prompt
	}
	return n.Label
}

func matchOptionLabel(selected string, rawLabels, strippedLabels []string) string {
	for i, s := range strippedLabels {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(selected)) {
			return rawLabels[i]
		}
	}
	for i, s := range strippedLabels {
		_, key := StripAccelerator(rawLabels[i])
		if key != "" && strings.EqualFold(key, strings.TrimSpace(selected)) {
			return rawLabels[i]
		}
		_ = s
	}
	return ""
}
