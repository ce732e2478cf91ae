package cond

import (
	"testing"

	"github.com/gutelius/attractor/internal/runtime"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyConditionIsTrue(t *testing.T) {
	assert.True(t, Evaluate("", Snapshot{}))
}

func TestEvaluate_OutcomeEquality(t *testing.T) {
	snap := Snapshot{Outcome: runtime.NewOutcome(runtime.StatusSuccess)}
	assert.True(t, Evaluate("outcome=success", snap))
	assert.False(t, Evaluate("outcome=fail", snap))
	assert.True(t, Evaluate("outcome!=fail", snap))
}

func TestEvaluate_PreferredLabel(t *testing.T) {
	out := runtime.NewOutcome(runtime.StatusSuccess)
	out.PreferredLabel = "retry_path"
	snap := Snapshot{Outcome: out}
	assert.True(t, Evaluate("preferred_label=retry_path", snap))
}

func TestEvaluate_AndClausesAllMustHold(t *testing.T) {
	snap := Snapshot{Outcome: runtime.NewOutcome(runtime.StatusSuccess)}
	snap.Context = runtime.NewContext()
	snap.Context.Set("reviewed", true)

	assert.True(t, Evaluate("outcome=success && context.reviewed", snap))
	assert.False(t, Evaluate("outcome=success && context.missing", snap))
}

func TestEvaluate_ContextPrefixTwoStepResolution(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("score", 5)
	snap := Snapshot{Context: ctx}

	assert.True(t, Evaluate("context.score=5", snap))
	assert.True(t, Evaluate("score=5", snap))
}

func TestEvaluate_QuotedValueLiteral(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("name", "alice")
	snap := Snapshot{Context: ctx}

	assert.True(t, Evaluate(`name="alice"`, snap))
}

func TestEvaluate_BareKeyTruthiness(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("has_items", []any{"x"})
	ctx.Set("empty_list", []any{})
	ctx.Set("zero", 0)
	snap := Snapshot{Context: ctx}

	assert.True(t, Evaluate("has_items", snap))
	assert.False(t, Evaluate("empty_list", snap))
	assert.False(t, Evaluate("zero", snap))
	assert.False(t, Evaluate("nonexistent", snap))
}

func TestEvaluate_BooleanStringify(t *testing.T) {
	ctx := runtime.NewContext()
	ctx.Set("flag", true)
	snap := Snapshot{Context: ctx}
	assert.True(t, Evaluate("flag=true", snap))
}
