// Package schemavalidate validates externally-sourced Outcome and
// Checkpoint payloads against a JSON schema (spec §7 "validation at a
// system boundary": a resumed checkpoint file or a handler's raw JSON
// response may have been hand-edited or come from an untrusted backend).
// These are standalone checks for callers to apply before decoding; the
// engine's own resume path and handler dispatch do not call them.
package schemavalidate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const outcomeSchemaJSON = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string", "minLength": 1},
    "preferred_label": {"type": "string"},
    "suggested_next_ids": {"type": "array", "items": {"type": "string"}},
    "context_updates": {"type": "object"},
    "notes": {"type": "string"},
    "failure_reason": {"type": "string"},
    "artifact_refs": {"type": "array", "items": {"type": "string"}}
  }
}`

const checkpointSchemaJSON = `{
  "type": "object",
  "required": ["timestamp", "current_node", "completed_nodes", "node_retries", "context", "logs"],
  "properties": {
    "timestamp": {"type": "number"},
    "current_node": {"type": "string"},
    "completed_nodes": {"type": "array", "items": {"type": "string"}},
    "node_retries": {"type": "object", "additionalProperties": {"type": "integer"}},
    "context": {"type": "object"},
    "logs": {"type": "array", "items": {"type": "string"}}
  }
}`

// compileSchema compiles a raw JSON schema document under a synthetic
// resource name (grounded on kilroy's tool_registry.go compileSchema).
func compileSchema(name, rawJSON string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(rawJSON)); err != nil {
		return nil, fmt.Errorf("schemavalidate: add resource %s: %w", name, err)
	}
	return c.Compile(name)
}

var (
	once            sync.Once
	outcomeSchema   *jsonschema.Schema
	checkpointSchema *jsonschema.Schema
	compileErr      error
)

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	once.Do(func() {
		outcomeSchema, compileErr = compileSchema("outcome.json", outcomeSchemaJSON)
		if compileErr != nil {
			return
		}
		checkpointSchema, compileErr = compileSchema("checkpoint.json", checkpointSchemaJSON)
	})
	return outcomeSchema, checkpointSchema, compileErr
}

// ValidateOutcome checks raw against the Outcome schema.
func ValidateOutcome(raw []byte) error {
	outcomeS, _, err := schemas()
	if err != nil {
		return fmt.Errorf("schemavalidate: compile: %w", err)
	}
	return validateAgainst(outcomeS, raw)
}

// ValidateCheckpoint checks raw against the Checkpoint schema.
func ValidateCheckpoint(raw []byte) error {
	_, cpS, err := schemas()
	if err != nil {
		return fmt.Errorf("schemavalidate: compile: %w", err)
	}
	return validateAgainst(cpS, raw)
}

func validateAgainst(s *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("schemavalidate: invalid json: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schemavalidate: %w", err)
	}
	return nil
}
