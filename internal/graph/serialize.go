package graph

import "encoding/json"

// The engine consumes already-parsed graphs (spec §6.2); the DOT parser
// itself is an external collaborator out of core scope (spec §1). This
// file gives cmd/attractor a concrete, already-parsed wire format to load
// graphs from for local testing, standing in for that external contract.

type nodeDoc struct {
	ID                  string         `json:"id"`
	Label               string         `json:"label,omitempty"`
	Shape               string         `json:"shape,omitempty"`
	Type                string         `json:"type,omitempty"`
	Prompt              string         `json:"prompt,omitempty"`
	MaxRetries          int            `json:"max_retries,omitempty"`
	GoalGate            bool           `json:"goal_gate,omitempty"`
	RetryTarget         string         `json:"retry_target,omitempty"`
	FallbackRetryTarget string         `json:"fallback_retry_target,omitempty"`
	Fidelity            string         `json:"fidelity,omitempty"`
	ThreadID            string         `json:"thread_id,omitempty"`
	Classes             []string       `json:"classes,omitempty"`
	Timeout             string         `json:"timeout,omitempty"`
	LLMModel            string         `json:"llm_model,omitempty"`
	LLMProvider         string         `json:"llm_provider,omitempty"`
	ReasoningEffort     string         `json:"reasoning_effort,omitempty"`
	AutoStatus          bool           `json:"auto_status,omitempty"`
	AllowPartial        bool           `json:"allow_partial,omitempty"`
	Subgraph            string         `json:"subgraph,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

type edgeDoc struct {
	From        string         `json:"from"`
	To          string         `json:"to"`
	Label       string         `json:"label,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	Weight      int            `json:"weight,omitempty"`
	Fidelity    string         `json:"fidelity,omitempty"`
	ThreadID    string         `json:"thread_id,omitempty"`
	LoopRestart bool           `json:"loop_restart,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type subgraphDoc struct {
	Name    string   `json:"name"`
	Label   string   `json:"label,omitempty"`
	NodeIDs []string `json:"node_ids,omitempty"`
}

type graphDoc struct {
	Name  string `json:"name"`
	Goal  string `json:"goal,omitempty"`
	Label string `json:"label,omitempty"`

	Nodes     []nodeDoc     `json:"nodes"`
	Edges     []edgeDoc     `json:"edges,omitempty"`
	Subgraphs []subgraphDoc `json:"subgraphs,omitempty"`

	ModelStylesheet string `json:"model_stylesheet,omitempty"`

	DefaultMaxRetry            int    `json:"default_max_retry,omitempty"`
	DefaultRetryTarget         string `json:"default_retry_target,omitempty"`
	DefaultFallbackRetryTarget string `json:"default_fallback_retry_target,omitempty"`
	DefaultFidelity            string `json:"default_fidelity,omitempty"`
}

// ParseJSON decodes a graphDoc-shaped JSON document into a *Graph,
// preserving node/subgraph declaration order from array order.
func ParseJSON(data []byte) (*Graph, error) {
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	g := New(doc.Name)
	g.Goal = doc.Goal
	g.Label = doc.Label
	g.ModelStylesheet = doc.ModelStylesheet
	if doc.DefaultMaxRetry > 0 {
		g.DefaultMaxRetry = doc.DefaultMaxRetry
	}
	g.DefaultRetryTarget = doc.DefaultRetryTarget
	g.DefaultFallbackRetryTarget = doc.DefaultFallbackRetryTarget
	g.DefaultFidelity = doc.DefaultFidelity

	for _, nd := range doc.Nodes {
		n := NewNode(nd.ID)
		n.Label = nd.Label
		n.Shape = nd.Shape
		n.Type = nd.Type
		n.Prompt = nd.Prompt
		n.MaxRetries = nd.MaxRetries
		n.GoalGate = nd.GoalGate
		n.RetryTarget = nd.RetryTarget
		n.FallbackRetryTarget = nd.FallbackRetryTarget
		n.Fidelity = nd.Fidelity
		n.ThreadID = nd.ThreadID
		n.Classes = nd.Classes
		n.Timeout = nd.Timeout
		n.LLMModel = nd.LLMModel
		n.LLMProvider = nd.LLMProvider
		if nd.ReasoningEffort != "" {
			n.ReasoningEffort = nd.ReasoningEffort
			n.ReasoningEffortSet = true
		}
		n.AutoStatus = nd.AutoStatus
		n.AllowPartial = nd.AllowPartial
		n.Subgraph = nd.Subgraph
		if nd.Extra != nil {
			n.Extra = nd.Extra
		}
		g.AddNode(n)
	}
	for _, ed := range doc.Edges {
		e := NewEdge(ed.From, ed.To)
		e.Label = ed.Label
		e.Condition = ed.Condition
		e.Weight = ed.Weight
		e.Fidelity = ed.Fidelity
		e.ThreadID = ed.ThreadID
		e.LoopRestart = ed.LoopRestart
		if ed.Extra != nil {
			e.Extra = ed.Extra
		}
		g.AddEdge(e)
	}
	for _, sd := range doc.Subgraphs {
		g.AddSubgraph(&Subgraph{Name: sd.Name, Label: sd.Label, NodeIDs: sd.NodeIDs})
	}
	return g, nil
}

// ToJSON encodes g back into its graphDoc wire form.
func ToJSON(g *Graph) ([]byte, error) {
	doc := graphDoc{
		Name:                       g.Name,
		Goal:                       g.Goal,
		Label:                      g.Label,
		ModelStylesheet:            g.ModelStylesheet,
		DefaultMaxRetry:            g.DefaultMaxRetry,
		DefaultRetryTarget:         g.DefaultRetryTarget,
		DefaultFallbackRetryTarget: g.DefaultFallbackRetryTarget,
		DefaultFidelity:            g.DefaultFidelity,
	}
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		doc.Nodes = append(doc.Nodes, nodeDoc{
			ID: n.ID, Label: n.Label, Shape: n.Shape, Type: n.Type, Prompt: n.Prompt,
			MaxRetries: n.MaxRetries, GoalGate: n.GoalGate, RetryTarget: n.RetryTarget,
			FallbackRetryTarget: n.FallbackRetryTarget, Fidelity: n.Fidelity, ThreadID: n.ThreadID,
			Classes: n.Classes, Timeout: n.Timeout, LLMModel: n.LLMModel, LLMProvider: n.LLMProvider,
			ReasoningEffort: n.ReasoningEffort, AutoStatus: n.AutoStatus, AllowPartial: n.AllowPartial,
			Subgraph: n.Subgraph, Extra: n.Extra,
		})
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, edgeDoc{
			From: e.From, To: e.To, Label: e.Label, Condition: e.Condition, Weight: e.Weight,
			Fidelity: e.Fidelity, ThreadID: e.ThreadID, LoopRestart: e.LoopRestart, Extra: e.Extra,
		})
	}
	for _, name := range g.SubgraphOrder() {
		sg := g.Subgraphs[name]
		doc.Subgraphs = append(doc.Subgraphs, subgraphDoc{Name: sg.Name, Label: sg.Label, NodeIDs: sg.NodeIDs})
	}
	return json.MarshalIndent(doc, "", "  ")
}
