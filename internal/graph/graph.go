// Package graph implements the in-memory attributed directed graph that
// attractor pipelines are expressed over: nodes, edges, subgraphs, and
// graph-level defaults, with insertion-ordered accessors.
package graph

import "strings"

// Node is a single pipeline stage.
type Node struct {
	ID                   string
	Label                string
	Shape                string
	Type                 string // explicit handler-type override
	Prompt               string
	MaxRetries           int
	GoalGate             bool
	RetryTarget          string
	FallbackRetryTarget  string
	Fidelity             string
	ThreadID             string
	Classes              []string
	Timeout              string
	LLMModel             string
	LLMProvider          string
	ReasoningEffort      string
	ReasoningEffortSet   bool // true once ReasoningEffort has been set explicitly, distinct from the sentinel default
	AutoStatus           bool
	AllowPartial         bool
	Subgraph             string
	Extra                map[string]any
}

// DefaultReasoningEffort is the value a node's ReasoningEffort carries when
// the author never set it explicitly. Because "high" is also a legal
// explicit value, ReasoningEffortSet — not a value comparison against this
// sentinel — is what the stylesheet resolver checks to decide whether an
// explicit reasoning_effort="high" on the node must be preserved (spec §4.3).
const DefaultReasoningEffort = "high"

// NewNode returns a Node with its defaulted fields populated.
func NewNode(id string) *Node {
	return &Node{
		ID:              id,
		ReasoningEffort: DefaultReasoningEffort,
		Extra:           map[string]any{},
	}
}

// ExtraString returns a string-typed Extra value, or def if absent/wrong type.
func (n *Node) ExtraString(key, def string) string {
	if n == nil || n.Extra == nil {
		return def
	}
	if v, ok := n.Extra[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// ExtraInt returns an int-typed Extra value, or def if absent/wrong type.
// Accepts int, int64, and float64 (the common decoded-JSON/YAML number
// forms) for convenience.
func (n *Node) ExtraInt(key string, def int) int {
	if n == nil || n.Extra == nil {
		return def
	}
	v, ok := n.Extra[key]
	if !ok {
		return def
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return def
	}
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From      string
	To        string
	Label     string
	Condition string
	Weight    int
	Fidelity  string
	ThreadID  string
	LoopRestart bool
	Extra     map[string]any
}

// NewEdge returns a zero-weight Edge with its Extra map initialized.
func NewEdge(from, to string) *Edge {
	return &Edge{From: from, To: to, Extra: map[string]any{}}
}

// Subgraph is a named, labeled grouping of node ids.
type Subgraph struct {
	Name    string
	Label   string
	NodeIDs []string
}

// ClassName derives the stylesheet class name for a subgraph's label by
// lowercasing, replacing spaces with hyphens, and stripping everything that
// is not alphanumeric or a hyphen (spec §3).
func (s *Subgraph) ClassName() string {
	if s == nil {
		return ""
	}
	return DeriveClassName(s.Label)
}

// DeriveClassName applies the subgraph-label-to-class-name transform.
func DeriveClassName(label string) string {
	lower := strings.ToLower(label)
	lower = strings.ReplaceAll(lower, " ", "-")
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Graph is a pipeline description: nodes, edges, subgraphs, and graph-level
// defaults. It is read-only after construction except for the transforms
// applied before validation (see internal/transform).
type Graph struct {
	Name    string
	Goal    string
	Label   string

	nodeOrder []string
	Nodes     map[string]*Node

	Edges []*Edge

	subgraphOrder []string
	Subgraphs     map[string]*Subgraph

	DefaultNodeAttrs map[string]string
	DefaultEdgeAttrs map[string]string

	ModelStylesheet string

	DefaultMaxRetry              int
	DefaultRetryTarget           string
	DefaultFallbackRetryTarget   string
	DefaultFidelity              string
}

// New returns an empty Graph with its defaults populated (default_max_retry
// of 50, per spec §3).
func New(name string) *Graph {
	return &Graph{
		Name:             name,
		Nodes:            map[string]*Node{},
		Subgraphs:        map[string]*Subgraph{},
		DefaultNodeAttrs: map[string]string{},
		DefaultEdgeAttrs: map[string]string{},
		DefaultMaxRetry:  50,
	}
}

// AddNode inserts a node, preserving insertion order. A node with a
// duplicate id replaces the prior value in place (order preserved).
func (g *Graph) AddNode(n *Node) {
	if n == nil {
		return
	}
	if _, exists := g.Nodes[n.ID]; !exists {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.Nodes[n.ID] = n
}

// AddEdge appends an edge, preserving insertion order.
func (g *Graph) AddEdge(e *Edge) {
	if e == nil {
		return
	}
	g.Edges = append(g.Edges, e)
}

// AddSubgraph inserts a subgraph, preserving insertion order.
func (g *Graph) AddSubgraph(s *Subgraph) {
	if s == nil {
		return
	}
	if _, exists := g.Subgraphs[s.Name]; !exists {
		g.subgraphOrder = append(g.subgraphOrder, s.Name)
	}
	g.Subgraphs[s.Name] = s
}

// NodeOrder returns node ids in insertion order.
func (g *Graph) NodeOrder() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// SubgraphOrder returns subgraph names in insertion order.
func (g *Graph) SubgraphOrder() []string {
	out := make([]string, len(g.subgraphOrder))
	copy(out, g.subgraphOrder)
	return out
}

// Outgoing returns the edges leaving nodeID in insertion order.
func (g *Graph) Outgoing(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges entering nodeID in insertion order.
func (g *Graph) Incoming(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.To == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// EffectiveType returns the node's explicit type override if set, else "".
// Shape-based dispatch is the handler registry's responsibility.
func (n *Node) EffectiveType() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Type)
}

// ClassList returns the node's explicit classes plus its enclosing
// subgraph's derived class, if any. Used by the stylesheet resolver.
func ClassList(g *Graph, n *Node) []string {
	if n == nil {
		return nil
	}
	classes := append([]string{}, n.Classes...)
	if n.Subgraph != "" && g != nil {
		if sg, ok := g.Subgraphs[n.Subgraph]; ok {
			classes = append(classes, sg.ClassName())
		}
	}
	return classes
}

// GoalGatedNodes returns goal-gated node ids in declaration order.
func (g *Graph) GoalGatedNodes() []string {
	var out []string
	for _, id := range g.nodeOrder {
		if n := g.Nodes[id]; n != nil && n.GoalGate {
			out = append(out, id)
		}
	}
	return out
}

// IsStart reports whether n is a start node: shape Mdiamond or explicit
// type "start".
func IsStart(n *Node) bool {
	if n == nil {
		return false
	}
	return n.Shape == "Mdiamond" || n.EffectiveType() == "start"
}

// IsExit reports whether n is an exit node: shape Msquare or explicit type
// "exit".
func IsExit(n *Node) bool {
	if n == nil {
		return false
	}
	return n.Shape == "Msquare" || n.EffectiveType() == "exit"
}

// StartNodeID returns the single start node's id, or "" if none/ambiguous.
func (g *Graph) StartNodeID() string {
	var found string
	count := 0
	for _, id := range g.nodeOrder {
		if IsStart(g.Nodes[id]) {
			found = id
			count++
		}
	}
	if count != 1 {
		return ""
	}
	return found
}

// ExitNodeIDs returns all exit node ids in declaration order.
func (g *Graph) ExitNodeIDs() []string {
	var out []string
	for _, id := range g.nodeOrder {
		if IsExit(g.Nodes[id]) {
			out = append(out, id)
		}
	}
	return out
}
