package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// lastResponseLimit bounds the context.last_response value (spec §3).
const lastResponseLimit = 200

// CodergenHandler delegates to the injected generative Backend (spec §4.5).
type CodergenHandler struct {
	Backend Backend
}

// NewCodergenHandler wraps backend.
func NewCodergenHandler(backend Backend) *CodergenHandler {
	return &CodergenHandler{Backend: backend}
}

// Execute expands $goal and other context variables in the node's prompt,
// delegates to the backend, and augments the resulting outcome with
// last_stage/last_response.
func (h *CodergenHandler) Execute(ctx context.Context, n *graph.Node, rc *runtime.Context, preamble fidelity.Preamble) (runtime.Outcome, error) {
	prompt := expandPrompt(n.Prompt, preamble, rc)
	raw, outcome, err := h.Backend.Run(ctx, n, prompt, preamble)
	if err != nil {
		return runtime.Outcome{}, fmt.Errorf("codergen: backend run: %w", err)
	}
	var out runtime.Outcome
	if outcome != nil {
		out = *outcome
	} else {
		out = runtime.FromString(raw)
	}
	if out.ContextUpdates == nil {
		out.ContextUpdates = map[string]any{}
	}
	out.ContextUpdates["last_stage"] = n.ID
	response := raw
	if response == "" {
		response = out.Notes
	}
	out.ContextUpdates["last_response"] = truncate(response, lastResponseLimit)
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// expandPrompt substitutes $goal and $KEY tokens in a prompt, where KEY
// (letters, digits, '_' and '.') is looked up verbatim as a context key; a
// leading "context." is not stripped.
// $goal substitution itself also happens once, globally, as a graph
// transform (spec §6.2); this per-invocation pass additionally resolves any
// remaining $-prefixed context variable tokens against the live context.
func expandPrompt(prompt string, preamble fidelity.Preamble, rc *runtime.Context) string {
	expanded := strings.ReplaceAll(prompt, "$goal", preamble.Goal)
	if rc == nil {
		return expanded
	}
	var b strings.Builder
	i := 0
	for i < len(expanded) {
		if expanded[i] == '$' && i+1 < len(expanded) {
			j := i + 1
			for j < len(expanded) && isIdentByte(expanded[j]) {
				j++
			}
			if j > i+1 {
				key := expanded[i+1 : j]
				if v, ok := rc.Get(key); ok {
					fmt.Fprintf(&b, "%v", v)
					i = j
					continue
				}
			}
		}
		b.WriteByte(expanded[i])
		i++
	}
	return b.String()
}

func isIdentByte(b byte) bool {
	return b == '.' || b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
