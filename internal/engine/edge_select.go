package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gutelius/attractor/internal/cond"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/runtime"
)

// selectAcceleratorPrefix matches the same leading option-shortcut forms as
// the wait.human handler's label stripping, for preferred-label
// normalization (spec §4.6.1).
var selectAcceleratorPrefix = regexp.MustCompile(`^(?:\[[^\]]+\]\s+|[^\s)]+\)\s+|[^\s-]+\s+-\s+)`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeLabel strips one leading accelerator prefix, lowercases, and
// collapses whitespace (spec §4.6.1 step 2).
func normalizeLabel(label string) string {
	stripped := selectAcceleratorPrefix.ReplaceAllString(label, "")
	lower := strings.ToLower(stripped)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(lower, " "))
}

// selectNextEdge implements the five-step edge selection cascade
// (spec §4.6.1). Returns nil if fromID has no outgoing edges.
func selectNextEdge(g *graph.Graph, fromID string, outcome runtime.Outcome, ctx *runtime.Context) *graph.Edge {
	edges := g.Outgoing(fromID)
	if len(edges) == 0 {
		return nil
	}
	snap := cond.Snapshot{Outcome: outcome, Context: ctx}

	// 1. Condition match.
	var conditional []*graph.Edge
	for _, e := range edges {
		if strings.TrimSpace(e.Condition) != "" && cond.Evaluate(e.Condition, snap) {
			conditional = append(conditional, e)
		}
	}
	if len(conditional) > 0 {
		return pickByWeight(conditional)
	}

	// 2. Preferred-label match.
	if strings.TrimSpace(outcome.PreferredLabel) != "" {
		target := normalizeLabel(outcome.PreferredLabel)
		var labelMatches []*graph.Edge
		for _, e := range edges {
			if normalizeLabel(e.Label) == target {
				labelMatches = append(labelMatches, e)
			}
		}
		if len(labelMatches) > 0 {
			return pickByWeight(labelMatches)
		}
	}

	// 3. Suggested-next-ids.
	if len(outcome.SuggestedNextIDs) > 0 {
		for _, id := range outcome.SuggestedNextIDs {
			for _, e := range edges {
				if e.To == id {
					return e
				}
			}
		}
	}

	// 4. Unconditional weight.
	var unconditional []*graph.Edge
	for _, e := range edges {
		if strings.TrimSpace(e.Condition) == "" {
			unconditional = append(unconditional, e)
		}
	}
	if len(unconditional) > 0 {
		return pickByWeight(unconditional)
	}

	// 5. Any edge.
	return pickByWeight(edges)
}

// pickByWeight returns the highest-weight edge, breaking ties by
// target-id lexicographic ascending.
func pickByWeight(edges []*graph.Edge) *graph.Edge {
	sorted := append([]*graph.Edge{}, edges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].To < sorted[j].To
	})
	return sorted[0]
}
