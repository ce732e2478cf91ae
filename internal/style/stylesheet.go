// Package style parses and applies the CSS-like model stylesheet that
// resolves per-node LLM configuration (spec §4.3).
package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gutelius/attractor/internal/graph"
)

// SelectorKind distinguishes the three selector forms, ordered by
// ascending specificity.
type SelectorKind int

const (
	Universal SelectorKind = iota // "*", specificity 0
	Class                         // ".NAME", specificity 1
	ID                            // "#ID", specificity 2
)

// Rule is one parsed stylesheet rule.
type Rule struct {
	Kind       SelectorKind
	Value      string // class name or node id; empty for Universal
	Order      int    // declaration order, for tie-breaking
	Decls      map[string]string
}

func (k SelectorKind) specificity() int {
	return int(k)
}

// Parse parses a stylesheet source string of `SELECTOR { prop: value; ... }`
// rules.
func Parse(src string) ([]Rule, error) {
	p := &parser{src: src}
	return p.parseRules()
}

type parser struct {
	src string
	pos int
	order int
}

func (p *parser) parseRules() ([]Rule, error) {
	var rules []Rule
	for {
		p.skipSpace()
		if p.eof() {
			return rules, nil
		}
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
}

func (p *parser) parseRule() (Rule, error) {
	kind, value, err := p.parseSelector()
	if err != nil {
		return Rule{}, err
	}
	p.skipSpace()
	if !p.consume('{') {
		return Rule{}, p.errf("expected '{' after selector")
	}
	decls, err := p.parseDecls()
	if err != nil {
		return Rule{}, err
	}
	rule := Rule{Kind: kind, Value: value, Order: p.order, Decls: decls}
	p.order++
	return rule, nil
}

func (p *parser) parseSelector() (SelectorKind, string, error) {
	p.skipSpace()
	if p.eof() {
		return 0, "", p.errf("expected selector")
	}
	switch p.src[p.pos] {
	case '*':
		p.pos++
		return Universal, "", nil
	case '.':
		p.pos++
		name := p.parseIdentLike()
		if name == "" {
			return 0, "", p.errf("expected class name after '.'")
		}
		return Class, name, nil
	case '#':
		p.pos++
		name := p.parseIdentLike()
		if name == "" {
			return 0, "", p.errf("expected id after '#'")
		}
		return ID, name, nil
	default:
		return 0, "", p.errf("unrecognized selector start %q", p.src[p.pos])
	}
}

func (p *parser) parseIdentLike() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) parseDecls() (map[string]string, error) {
	decls := map[string]string{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errf("unterminated rule block")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return decls, nil
		}
		key := p.parseIdentLike()
		if key == "" {
			return nil, p.errf("expected property name")
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errf("expected ':' after property %q", key)
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		decls[key] = val
		p.skipSpace()
		p.consume(';')
	}
}

func (p *parser) parseValue() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", p.errf("expected value")
	}
	if p.src[p.pos] == '"' || p.src[p.pos] == '\'' {
		return p.parseString()
	}
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ';' && p.src[p.pos] != '}' {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos]), nil
}

func (p *parser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", p.errf("unterminated string")
	}
	s := p.src[start:p.pos]
	p.pos++
	return s, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) consume(b byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("stylesheet: %s (at byte %d)", fmt.Sprintf(format, args...), p.pos)
}

// recognizedProps are the only stylesheet properties applied to a node;
// unknown properties are parsed but ignored (spec §4.3).
var recognizedProps = map[string]bool{
	"llm_model":        true,
	"llm_provider":     true,
	"reasoning_effort": true,
}

// Apply resolves every rule against every node in g, mutating each node's
// llm_model/llm_provider/reasoning_effort in place according to specificity
// and declaration order: later, more-specific rules overwrite earlier ones,
// but a property already set explicitly on the node at parse time is never
// overwritten (spec §4.3, §9). For reasoning_effort, "set explicitly" is
// tracked via Node.ReasoningEffortSet rather than inferred from the value,
// since the sentinel default and a legitimate explicit value coincide.
func Apply(g *graph.Graph, rules []Rule) {
	for _, id := range g.NodeOrder() {
		n := g.Nodes[id]
		locked := lockedProps(n)
		matching := matchingRules(g, n, rules)
		sort.SliceStable(matching, func(i, j int) bool {
			si, sj := matching[i].Kind.specificity(), matching[j].Kind.specificity()
			if si != sj {
				return si < sj
			}
			return matching[i].Order < matching[j].Order
		})
		for _, rule := range matching {
			applyDecls(n, rule.Decls, locked)
		}
	}
}

// lockedProps captures which recognized properties were already set on n
// before any stylesheet rule runs (explicit DOT/JSON attributes), so the
// cascade can tell "set by an earlier rule" (overwritable) apart from "set
// explicitly on the node" (never overwritable).
func lockedProps(n *graph.Node) map[string]bool {
	return map[string]bool{
		"llm_model":        n.LLMModel != "",
		"llm_provider":     n.LLMProvider != "",
		"reasoning_effort": n.ReasoningEffortSet,
	}
}

func matchingRules(g *graph.Graph, n *graph.Node, rules []Rule) []Rule {
	var out []Rule
	for _, r := range rules {
		if ruleMatches(g, n, r) {
			out = append(out, r)
		}
	}
	return out
}

func ruleMatches(g *graph.Graph, n *graph.Node, r Rule) bool {
	switch r.Kind {
	case Universal:
		return true
	case Class:
		for _, c := range graph.ClassList(g, n) {
			if c == r.Value {
				return true
			}
		}
		return false
	case ID:
		return n.ID == r.Value
	default:
		return false
	}
}

func applyDecls(n *graph.Node, decls map[string]string, locked map[string]bool) {
	for prop, val := range decls {
		if !recognizedProps[prop] {
			continue
		}
		if locked[prop] {
			continue
		}
		switch prop {
		case "llm_model":
			n.LLMModel = val
		case "llm_provider":
			n.LLMProvider = val
		case "reasoning_effort":
			n.ReasoningEffort = val
		}
	}
}
