// Package registry dispatches a node to its handler by resolved type
// (spec §4.5, §9 "Dynamic dispatch over handlers").
package registry

import (
	"fmt"

	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/handler"
)

// shapeToType is the fixed shape-based dispatch table; an explicit node
// `type` attribute always takes precedence over it (spec §4.5).
var shapeToType = map[string]string{
	"Mdiamond":     "start",
	"Msquare":      "exit",
	"box":          "codergen",
	"hexagon":      "wait.human",
	"diamond":      "conditional",
	"component":    "parallel",
	"tripleoctagon": "parallel.fan_in",
	"parallelogram": "tool",
	"house":        "stack.manager_loop",
}

// defaultType is used when a node's shape has no entry in shapeToType.
const defaultType = "codergen"

// Registry is a plain map from handler type string to a handler instance.
// New handlers register by inserting into the map; there is no inheritance
// hierarchy (spec §9).
type Registry struct {
	handlers map[string]handler.Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: map[string]handler.Handler{}}
}

// Register binds typeName to h, replacing any prior binding. This is how
// external handler instances are accepted (spec §2 "Handler registry...
// accepts external handler instances").
func (r *Registry) Register(typeName string, h handler.Handler) {
	r.handlers[typeName] = h
}

// ResolveType returns a node's effective handler type: its explicit `type`
// attribute if set, else its shape mapped through shapeToType, else
// defaultType.
func ResolveType(n *graph.Node) string {
	if t := n.EffectiveType(); t != "" {
		return t
	}
	if t, ok := shapeToType[n.Shape]; ok {
		return t
	}
	return defaultType
}

// Lookup resolves n's handler type and returns the bound Handler.
func (r *Registry) Lookup(n *graph.Node) (handler.Handler, error) {
	typeName := ResolveType(n)
	h, ok := r.handlers[typeName]
	if !ok {
		return nil, fmt.Errorf("registry: no handler registered for type %q (node %q)", typeName, n.ID)
	}
	return h, nil
}
