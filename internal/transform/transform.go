// Package transform applies the ordered, pre-validation transforms to a
// graph: variable expansion over prompts, then stylesheet application over
// node configuration (spec §4.1, §6.2; SUPPLEMENTED FEATURES #3).
package transform

import (
	"strings"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/style"
)

// Transform mutates g in place, returning an error if it cannot proceed.
// Transforms run in declaration order; each sees the previous one's output.
type Transform func(g *graph.Graph) error

// Default returns the built-in transform pipeline: variable expansion
// followed by stylesheet application, in that order.
func Default() []Transform {
	return []Transform{
		ExpandVariables,
		ApplyStylesheet,
	}
}

// Run applies each transform in sequence, stopping at the first error.
func Run(g *graph.Graph, transforms []Transform) error {
	for _, t := range transforms {
		if err := t(g); err != nil {
			return err
		}
	}
	return nil
}

// ExpandVariables substitutes $goal tokens in every node's prompt with the
// graph's goal string (spec §6.2).
func ExpandVariables(g *graph.Graph) error {
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		if n.Prompt == "" {
			continue
		}
		n.Prompt = strings.ReplaceAll(n.Prompt, "$goal", g.Goal)
	}
	return nil
}

// ApplyStylesheet parses the graph's model_stylesheet source and applies it
// to every node's resolved configuration.
func ApplyStylesheet(g *graph.Graph) error {
	if strings.TrimSpace(g.ModelStylesheet) == "" {
		return nil
	}
	rules, err := style.Parse(g.ModelStylesheet)
	if err != nil {
		return err
	}
	style.Apply(g, rules)
	return nil
}
