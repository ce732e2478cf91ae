// Package validate implements the ten validation rules that gate execution
// (spec §6.4).
package validate

import (
	"fmt"
	"sort"

	"github.com/gutelius/attractor/internal/graph"
)

// Severity distinguishes rules that block execution from advisory ones.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	NodeID   string
	EdgeFrom string
	EdgeTo   string
}

// LintRule is a single named validation check.
type LintRule interface {
	Name() string
	Apply(g *graph.Graph) []Diagnostic
}

type ruleFunc struct {
	name string
	fn   func(g *graph.Graph) []Diagnostic
}

func (r ruleFunc) Name() string                           { return r.name }
func (r ruleFunc) Apply(g *graph.Graph) []Diagnostic { return r.fn(g) }

// builtinRules is exactly the ten rules spec §6.4 names.
var builtinRules = []LintRule{
	ruleFunc{"start_node", lintStartNode},
	ruleFunc{"terminal_node", lintTerminalNode},
	ruleFunc{"edge_target_exists", lintEdgeTargetExists},
	ruleFunc{"start_no_incoming", lintStartNoIncoming},
	ruleFunc{"exit_no_outgoing", lintExitNoOutgoing},
	ruleFunc{"reachability", lintReachability},
	ruleFunc{"fidelity_valid", lintFidelityValid},
	ruleFunc{"retry_target_exists", lintRetryTargetExists},
	ruleFunc{"goal_gate_has_retry", lintGoalGateHasRetry},
	ruleFunc{"prompt_on_llm_nodes", lintPromptOnLLMNodes},
}

// Validate runs every built-in rule plus any extras, in declaration order.
func Validate(g *graph.Graph, extra ...LintRule) []Diagnostic {
	var out []Diagnostic
	for _, r := range builtinRules {
		out = append(out, r.Apply(g)...)
	}
	for _, r := range extra {
		out = append(out, r.Apply(g)...)
	}
	return out
}

// ValidateOrError runs Validate and returns an error naming every
// error-severity finding, or nil if none.
func ValidateOrError(g *graph.Graph, extra ...LintRule) error {
	diags := Validate(g, extra...)
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed with %d error(s): %s", len(errs), formatDiagnostics(errs))
}

func formatDiagnostics(diags []Diagnostic) string {
	var out string
	for i, d := range diags {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("[%s] %s", d.Rule, d.Message)
	}
	return out
}

func lintStartNode(g *graph.Graph) []Diagnostic {
	var starts []string
	for _, id := range g.NodeOrder() {
		if graph.IsStart(g.Nodes[id]) {
			starts = append(starts, id)
		}
	}
	switch len(starts) {
	case 0:
		return []Diagnostic{{Rule: "start_node", Severity: SeverityError, Message: "graph has no start node"}}
	case 1:
		return nil
	default:
		return []Diagnostic{{Rule: "start_node", Severity: SeverityError, Message: fmt.Sprintf("graph has %d start nodes, expected exactly one", len(starts))}}
	}
}

func lintTerminalNode(g *graph.Graph) []Diagnostic {
	if len(g.ExitNodeIDs()) == 0 {
		return []Diagnostic{{Rule: "terminal_node", Severity: SeverityError, Message: "graph has no exit node"}}
	}
	return nil
}

func lintEdgeTargetExists(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, e := range g.Edges {
		if _, ok := g.Node(e.From); !ok {
			diags = append(diags, Diagnostic{Rule: "edge_target_exists", Severity: SeverityError, Message: fmt.Sprintf("edge source %q does not exist", e.From), EdgeFrom: e.From, EdgeTo: e.To})
		}
		if _, ok := g.Node(e.To); !ok {
			diags = append(diags, Diagnostic{Rule: "edge_target_exists", Severity: SeverityError, Message: fmt.Sprintf("edge target %q does not exist", e.To), EdgeFrom: e.From, EdgeTo: e.To})
		}
	}
	return diags
}

func lintStartNoIncoming(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		if !graph.IsStart(n) {
			continue
		}
		if len(g.Incoming(id)) > 0 {
			diags = append(diags, Diagnostic{Rule: "start_no_incoming", Severity: SeverityError, Message: fmt.Sprintf("start node %q has incoming edges", id), NodeID: id})
		}
	}
	return diags
}

func lintExitNoOutgoing(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, id := range g.ExitNodeIDs() {
		if len(g.Outgoing(id)) > 0 {
			diags = append(diags, Diagnostic{Rule: "exit_no_outgoing", Severity: SeverityError, Message: fmt.Sprintf("exit node %q has outgoing edges", id), NodeID: id})
		}
	}
	return diags
}

// lintReachability checks that every node is reachable from the start set
// (spec §9: "reachability checks only from the start set"; cycles are not
// errors).
func lintReachability(g *graph.Graph) []Diagnostic {
	start := g.StartNodeID()
	if start == "" {
		return nil // already reported by lintStartNode
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Outgoing(cur) {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	var diags []Diagnostic
	for _, id := range g.NodeOrder() {
		if !visited[id] {
			diags = append(diags, Diagnostic{Rule: "reachability", Severity: SeverityError, Message: fmt.Sprintf("node %q is not reachable from start", id), NodeID: id})
		}
	}
	return diags
}

var recognizedFidelityModes = map[string]bool{
	"":               true, // unset is fine, resolver falls back
	"full":           true,
	"truncate":       true,
	"compact":        true,
	"summary:low":    true,
	"summary:medium": true,
	"summary:high":   true,
}

func lintFidelityValid(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	check := func(val, where string) {
		if !recognizedFidelityModes[val] {
			diags = append(diags, Diagnostic{Rule: "fidelity_valid", Severity: SeverityWarning, Message: fmt.Sprintf("unrecognized fidelity mode %q on %s", val, where)})
		}
	}
	if !recognizedFidelityModes[g.DefaultFidelity] {
		check(g.DefaultFidelity, "graph default_fidelity")
	}
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		if n.Fidelity != "" && !recognizedFidelityModes[n.Fidelity] {
			diags = append(diags, Diagnostic{Rule: "fidelity_valid", Severity: SeverityWarning, Message: fmt.Sprintf("unrecognized fidelity mode %q on node %q", n.Fidelity, id), NodeID: id})
		}
	}
	for _, e := range g.Edges {
		if e.Fidelity != "" && !recognizedFidelityModes[e.Fidelity] {
			diags = append(diags, Diagnostic{Rule: "fidelity_valid", Severity: SeverityWarning, Message: fmt.Sprintf("unrecognized fidelity mode %q on edge %s->%s", e.Fidelity, e.From, e.To), EdgeFrom: e.From, EdgeTo: e.To})
		}
	}
	return diags
}

func lintRetryTargetExists(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	checkTarget := func(target, where, nodeID string) {
		if target == "" {
			return
		}
		if _, ok := g.Node(target); !ok {
			diags = append(diags, Diagnostic{Rule: "retry_target_exists", Severity: SeverityWarning, Message: fmt.Sprintf("retry target %q on %s does not exist", target, where), NodeID: nodeID})
		}
	}
	checkTarget(g.DefaultRetryTarget, "graph default_retry_target", "")
	checkTarget(g.DefaultFallbackRetryTarget, "graph default_fallback_retry_target", "")
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		checkTarget(n.RetryTarget, fmt.Sprintf("node %q retry_target", id), id)
		checkTarget(n.FallbackRetryTarget, fmt.Sprintf("node %q fallback_retry_target", id), id)
	}
	return diags
}

func lintGoalGateHasRetry(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, id := range g.GoalGatedNodes() {
		n := g.Nodes[id]
		hasRetry := n.RetryTarget != "" || n.FallbackRetryTarget != "" || g.DefaultRetryTarget != "" || g.DefaultFallbackRetryTarget != ""
		if !hasRetry {
			diags = append(diags, Diagnostic{Rule: "goal_gate_has_retry", Severity: SeverityWarning, Message: fmt.Sprintf("goal-gated node %q has no resolvable retry target", id), NodeID: id})
		}
	}
	return diags
}

// llmHandlerShapes are the shapes whose default handler type consumes a
// prompt (codergen), used for the prompt_on_llm_nodes advisory check.
var llmHandlerShapes = map[string]bool{
	"box": true,
}

func lintPromptOnLLMNodes(g *graph.Graph) []Diagnostic {
	var diags []Diagnostic
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		isLLM := n.EffectiveType() == "codergen" || (n.EffectiveType() == "" && llmHandlerShapes[n.Shape])
		if isLLM && n.Prompt == "" {
			diags = append(diags, Diagnostic{Rule: "prompt_on_llm_nodes", Severity: SeverityWarning, Message: fmt.Sprintf("codergen node %q has no prompt", id), NodeID: id})
		}
	}
	return diags
}

// SortBySeverity returns diags with errors preceding warnings, each group in
// original order; used for reporting.
func SortBySeverity(diags []Diagnostic) []Diagnostic {
	out := append([]Diagnostic{}, diags...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity == SeverityError && out[j].Severity != SeverityError
	})
	return out
}
