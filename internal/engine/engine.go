// Package engine implements the single-threaded execution loop: node
// visitation, retry, five-step edge selection, goal-gate enforcement, event
// emission, checkpointing, and cancellation (spec §4.6).
package engine

import (
	"context"
	"fmt"

	"github.com/gutelius/attractor/internal/ctxlog"
	"github.com/gutelius/attractor/internal/fidelity"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/registry"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/gutelius/attractor/internal/validate"
	"github.com/zeebo/blake3"
)

// DefaultStepLimit bounds the main loop when the caller does not configure
// one explicitly (spec §3 "a step limit").
const DefaultStepLimit = 10000

// Options configures a single run.
type Options struct {
	StepLimit   int
	Persistence runtime.Persistence
	Events      runtime.EventSink
	Clock       runtime.Clock
	Random      runtime.RandomSource
}

func (o Options) withDefaults() Options {
	if o.StepLimit <= 0 {
		o.StepLimit = DefaultStepLimit
	}
	if o.Events == nil {
		o.Events = runtime.NewEventLog()
	}
	if o.Clock == nil {
		o.Clock = runtime.SystemClock{}
	}
	if o.Random == nil {
		o.Random = runtime.SystemRandom{}
	}
	return o
}

// Engine is the owned state of one pipeline traversal (spec §4.6).
type Engine struct {
	Graph    *graph.Graph
	Registry *registry.Registry
	opts     Options

	ctx            *runtime.Context
	currentNode    string
	arrivalEdge    *graph.Edge
	completedLog   []string
	nodeRetries    map[string]int
	nodeOutcomes   map[string]runtime.Outcome
	logs           []string
	previousNodeID string
	threadHistory  map[string]string

	// failureSignatures counts repeated identical failures for logging
	// (not routing): a blake3 hash of node id + failure reason, counted
	// across the run. This mirrors the teacher's restart-signature
	// bookkeeping without letting long node-id chains grow an unbounded key.
	failureSignatures map[string]int
}

// New constructs an Engine over g using reg to dispatch handlers.
func New(g *graph.Graph, reg *registry.Registry, opts Options) *Engine {
	return &Engine{
		Graph:             g,
		Registry:          reg,
		opts:              opts.withDefaults(),
		ctx:               runtime.NewContext(),
		nodeRetries:       map[string]int{},
		nodeOutcomes:      map[string]runtime.Outcome{},
		threadHistory:     map[string]string{},
		failureSignatures: map[string]int{},
	}
}

// Context returns the engine's live context store (for tests and
// inspection; handlers receive it directly).
func (e *Engine) Context() *runtime.Context { return e.ctx }

// Events returns the configured event sink.
func (e *Engine) Events() runtime.EventSink { return e.opts.Events }

func (e *Engine) emit(kind runtime.EventKind, nodeID string, data map[string]any) {
	e.opts.Events.Emit(runtime.Event{
		ID:        runtime.NewID(e.opts.Clock.Now()),
		Kind:      kind,
		NodeID:    nodeID,
		Data:      data,
		Timestamp: e.opts.Clock.Now(),
	})
}

func failureSignature(nodeID, reason string) string {
	h := blake3.Sum256([]byte(nodeID + "\x00" + reason))
	return fmt.Sprintf("%x", h[:8])
}

// seedContext writes the three required seed keys (spec §3 "Context").
func (e *Engine) seedContext() {
	e.ctx.Set("pipeline.name", e.Graph.Name)
	e.ctx.Set("pipeline.goal", e.Graph.Goal)
	e.ctx.Set("goal", e.Graph.Goal)
}

// Initialize seeds context, validates the graph, and sets the current node
// to the graph's start node (spec §4.6 "Initialization"). Transforms are
// expected to already have been applied by the caller (see
// internal/transform) since they must run once, before validation, not on
// every Engine construction.
func (e *Engine) Initialize() error {
	e.seedContext()
	if err := validate.ValidateOrError(e.Graph); err != nil {
		return fmt.Errorf("engine: initialize: %w", err)
	}
	start := e.Graph.StartNodeID()
	if start == "" {
		return fmt.Errorf("engine: initialize: no resolvable start node")
	}
	e.currentNode = start
	return nil
}

func (e *Engine) log(ctx context.Context, msg string, args ...any) {
	ctxlog.FromContext(ctx).Info(msg, args...)
}

// maxRetriesFor resolves a node's effective max-retries: the node's
// max_retries if > 0, else the graph's default_max_retry (spec §4.6 step 2).
func (e *Engine) maxRetriesFor(n *graph.Node) int {
	if n.MaxRetries > 0 {
		return n.MaxRetries
	}
	return e.Graph.DefaultMaxRetry
}

// buildPreamble computes the fidelity-resolved preamble for visiting node n,
// having arrived via edge (nil at the very first node).
func (e *Engine) buildPreamble(n *graph.Node, edge *graph.Edge) fidelity.Preamble {
	mode := fidelity.ResolveMode(edge, n, e.Graph)
	threadID := fidelity.ResolveThreadID(edge, n, e.Graph, e.previousNodeID)
	stages := make([]fidelity.CompletedStage, 0, len(e.completedLog))
	for _, id := range e.completedLog {
		stages = append(stages, fidelity.CompletedStage{NodeID: id, Status: e.nodeOutcomes[id].Status})
	}
	st := fidelity.State{
		PipelineName:  e.Graph.Name,
		Goal:          e.Graph.Goal,
		Completed:     stages,
		ContextOrder:  e.contextInsertionOrder(),
		Context:       e.ctx,
		ThreadHistory: e.threadHistory,
	}
	p := fidelity.Assemble(mode, threadID, st)
	p.OutgoingLabels = edgeLabels(e.Graph.Outgoing(n.ID))
	p.BranchTargets = edgeTargets(e.Graph.Outgoing(n.ID))
	return p
}

// contextInsertionOrder returns context keys in first-insertion order
// (spec §4.4 "first twenty context entries in insertion order").
func (e *Engine) contextInsertionOrder() []string {
	return e.ctx.Order()
}

func edgeLabels(edges []*graph.Edge) []string {
	out := make([]string, len(edges))
	for i, ed := range edges {
		out[i] = ed.Label
	}
	return out
}

func edgeTargets(edges []*graph.Edge) []string {
	out := make([]string, len(edges))
	for i, ed := range edges {
		out[i] = ed.To
	}
	return out
}
