package runtime

import "strings"

// Status is one of the five canonical outcome statuses, or a custom,
// pipeline-author-defined routing label preserved verbatim for condition
// matching (spec §9 "custom outcome values").
type Status string

const (
	StatusSuccess        Status = "success"
	StatusFail           Status = "fail"
	StatusPartialSuccess Status = "partial_success"
	StatusRetry          Status = "retry"
	StatusSkipped        Status = "skipped"
)

// canonicalStatuses is the closed set that drives goal-gate and retry
// semantics. Anything outside it is preserved as a custom status string for
// condition routing only (SUPPLEMENTED FEATURES #5).
var canonicalStatuses = map[Status]bool{
	StatusSuccess:        true,
	StatusFail:           true,
	StatusPartialSuccess: true,
	StatusRetry:          true,
	StatusSkipped:        true,
}

// statusAliases maps the original implementation's case-insensitive
// shorthand forms onto the canonical set (SUPPLEMENTED FEATURES #4).
var statusAliases = map[string]Status{
	"ok":      StatusSuccess,
	"error":   StatusFail,
	"failure": StatusFail,
	"skip":    StatusSkipped,
}

// ParseStatus normalizes a raw status string: known aliases and canonical
// names (case-insensitively) resolve to their canonical form; anything else
// passes through unchanged as a custom status.
func ParseStatus(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if alias, ok := statusAliases[lower]; ok {
		return alias
	}
	for canon := range canonicalStatuses {
		if string(canon) == lower {
			return canon
		}
	}
	return Status(trimmed)
}

// IsCanonical reports whether s is one of the five statuses that drive
// goal-gate and retry semantics.
func (s Status) IsCanonical() bool {
	return canonicalStatuses[s]
}

// IsSuccessClass reports whether s satisfies a goal gate: SUCCESS or
// PARTIAL_SUCCESS (spec §3 "Outcome").
func (s Status) IsSuccessClass() bool {
	return s == StatusSuccess || s == StatusPartialSuccess
}

// successRank orders statuses for fan-in ranking: SUCCESS > PARTIAL_SUCCESS
// > RETRY > FAIL > SKIPPED (spec §4.7 "Fan-in").
var successRank = map[Status]int{
	StatusSuccess:        4,
	StatusPartialSuccess: 3,
	StatusRetry:          2,
	StatusFail:           1,
	StatusSkipped:        0,
}

// SuccessRank returns s's rank for fan-in ranking. Unknown/custom statuses
// rank below SKIPPED.
func (s Status) SuccessRank() int {
	if r, ok := successRank[s]; ok {
		return r
	}
	return -1
}

// Outcome is the structured result of a handler invocation (spec §3).
type Outcome struct {
	Status           Status         `json:"status" yaml:"status"`
	PreferredLabel   string         `json:"preferred_label,omitempty" yaml:"preferred_label,omitempty"`
	SuggestedNextIDs []string       `json:"suggested_next_ids,omitempty" yaml:"suggested_next_ids,omitempty"`
	ContextUpdates   map[string]any `json:"context_updates,omitempty" yaml:"context_updates,omitempty"`
	Notes            string         `json:"notes,omitempty" yaml:"notes,omitempty"`
	FailureReason    string         `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	// ArtifactRefs names paths/URIs the handler produced, recorded into the
	// checkpoint log alongside plain log lines (SUPPLEMENTED FEATURES #1).
	ArtifactRefs []string `json:"artifact_refs,omitempty" yaml:"artifact_refs,omitempty"`

	// Score is an optional numeric ranking value drawn from ContextUpdates
	// by parallel-branch bookkeeping (spec §4.7 "Branches surface...").
	Score    float64 `json:"-" yaml:"-"`
	HasScore bool    `json:"-" yaml:"-"`
}

// NewOutcome returns an Outcome with the given status and an initialized
// ContextUpdates map.
func NewOutcome(status Status) Outcome {
	return Outcome{Status: status, ContextUpdates: map[string]any{}}
}

// FromString wraps a raw backend response string in a SUCCESS outcome, per
// spec §4.5 "A raw string from the backend is wrapped in an SUCCESS outcome."
func FromString(s string) Outcome {
	o := NewOutcome(StatusSuccess)
	o.Notes = s
	return o
}

// Satisfied reports whether this outcome satisfies a goal gate.
func (o Outcome) Satisfied() bool {
	return o.Status.IsSuccessClass()
}
