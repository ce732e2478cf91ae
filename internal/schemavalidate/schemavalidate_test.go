package schemavalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOutcome_AcceptsMinimalValid(t *testing.T) {
	err := ValidateOutcome([]byte(`{"status": "success"}`))
	assert.NoError(t, err)
}

func TestValidateOutcome_RejectsMissingStatus(t *testing.T) {
	err := ValidateOutcome([]byte(`{"notes": "no status here"}`))
	assert.Error(t, err)
}

func TestValidateOutcome_RejectsInvalidJSON(t *testing.T) {
	err := ValidateOutcome([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateOutcome_RejectsWrongFieldType(t *testing.T) {
	err := ValidateOutcome([]byte(`{"status": 5}`))
	assert.Error(t, err)
}

func TestValidateCheckpoint_AcceptsCompleteDocument(t *testing.T) {
	err := ValidateCheckpoint([]byte(`{
		"timestamp": 123.0,
		"current_node": "a",
		"completed_nodes": ["a"],
		"node_retries": {"a": 1},
		"context": {"goal": "ship"},
		"logs": ["a:success"]
	}`))
	assert.NoError(t, err)
}

func TestValidateCheckpoint_RejectsMissingRequiredField(t *testing.T) {
	err := ValidateCheckpoint([]byte(`{"timestamp": 1}`))
	assert.Error(t, err)
}
