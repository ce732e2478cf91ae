// Package runconfig loads the YAML/JSON run configuration that drives
// cmd/attractor: which graph to run, where to checkpoint, and the runtime
// policy knobs layered over the graph's own defaults (spec §4.6, §6.1).
package runconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuntimePolicy overrides graph-level defaults for a single run. Pointer
// fields distinguish "unset, fall back to the graph" from "explicitly
// zero" (grounded on kilroy's RuntimePolicyConfig).
type RuntimePolicy struct {
	StepLimit      *int `json:"step_limit,omitempty" yaml:"step_limit,omitempty"`
	DefaultMaxRetry *int `json:"default_max_retry,omitempty" yaml:"default_max_retry,omitempty"`
}

// Interviewer selects which Interviewer implementation cmd/attractor wires
// up (spec §6.1's five recommended implementations).
type Interviewer struct {
	Kind    string   `json:"kind,omitempty" yaml:"kind,omitempty"` // auto_approve|queue|terminal
	Answers []string `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// RunConfig is the top-level run configuration document.
type RunConfig struct {
	Version int `json:"version" yaml:"version"`

	Graph      string `json:"graph" yaml:"graph"`
	Goal       string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Stylesheet string `json:"stylesheet,omitempty" yaml:"stylesheet,omitempty"`

	Checkpoint struct {
		Path string `json:"path" yaml:"path"`
	} `json:"checkpoint" yaml:"checkpoint"`

	RuntimePolicy RuntimePolicy `json:"runtime_policy,omitempty" yaml:"runtime_policy,omitempty"`
	Interviewer   Interviewer   `json:"interviewer,omitempty" yaml:"interviewer,omitempty"`
}

// Load reads and strictly decodes path (JSON if it ends in .json, YAML
// otherwise), applies defaults, and validates the result (grounded on
// kilroy's LoadRunConfigFile).
func Load(path string) (*RunConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runconfig: read %s: %w", path, err)
	}
	var cfg RunConfig
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := decodeJSONStrict(b, &cfg); err != nil {
			return nil, fmt.Errorf("runconfig: decode %s: %w", path, err)
		}
	} else {
		if err := decodeYAMLStrict(b, &cfg); err != nil {
			return nil, fmt.Errorf("runconfig: decode %s: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("runconfig: %s: %w", path, err)
	}
	return &cfg, nil
}

func decodeJSONStrict(b []byte, cfg *RunConfig) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("json: multiple top-level values are not allowed")
		}
		return err
	}
	return nil
}

func decodeYAMLStrict(b []byte, cfg *RunConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}

func applyDefaults(cfg *RunConfig) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Checkpoint.Path == "" {
		cfg.Checkpoint.Path = ".attractor/checkpoint.json"
	}
	if cfg.Interviewer.Kind == "" {
		cfg.Interviewer.Kind = "auto_approve"
	}
}

func validate(cfg *RunConfig) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Graph) == "" {
		return fmt.Errorf("graph is required")
	}
	switch cfg.Interviewer.Kind {
	case "auto_approve", "queue", "terminal":
	default:
		return fmt.Errorf("invalid interviewer.kind %q (want auto_approve|queue|terminal)", cfg.Interviewer.Kind)
	}
	if cfg.Interviewer.Kind == "queue" && len(cfg.Interviewer.Answers) == 0 {
		return fmt.Errorf("interviewer.answers is required when interviewer.kind=queue")
	}
	if cfg.RuntimePolicy.StepLimit != nil && *cfg.RuntimePolicy.StepLimit <= 0 {
		return fmt.Errorf("runtime_policy.step_limit must be > 0")
	}
	if cfg.RuntimePolicy.DefaultMaxRetry != nil && *cfg.RuntimePolicy.DefaultMaxRetry < 0 {
		return fmt.Errorf("runtime_policy.default_max_retry must be >= 0")
	}
	return nil
}
