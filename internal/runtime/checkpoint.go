package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the record persisted after every completed step (spec §3,
// §6.3). Forward-compatible: unknown fields are ignored on decode, missing
// fields default to their zero value.
type Checkpoint struct {
	Timestamp      float64          `json:"timestamp"`
	CurrentNode    string           `json:"current_node"`
	CompletedNodes []string         `json:"completed_nodes"`
	NodeRetries    map[string]int   `json:"node_retries"`
	Context        map[string]any   `json:"context"`
	Logs           []string         `json:"logs"`
}

// NewCheckpoint builds a Checkpoint from current run state.
func NewCheckpoint(now time.Time, currentNode string, completed []string, retries map[string]int, ctx map[string]any, logs []string) Checkpoint {
	return Checkpoint{
		Timestamp:      float64(now.UnixNano()) / 1e9,
		CurrentNode:    currentNode,
		CompletedNodes: append([]string{}, completed...),
		NodeRetries:    copyIntMap(retries),
		Context:        ctx,
		Logs:           append([]string{}, logs...),
	}
}

func copyIntMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ArtifactLogEntry formats an artifact reference produced by a node into the
// checkpoint log line convention (SUPPLEMENTED FEATURES #1).
func ArtifactLogEntry(nodeID, ref string) string {
	return fmt.Sprintf("artifact:%s:%s", nodeID, ref)
}

// Persistence reads and writes checkpoints. Implementations must make Save
// atomic: a concurrent reader must never observe a partially written file
// (spec §5 "write-to-temp-and-rename").
type Persistence interface {
	Save(Checkpoint) error
	Load() (Checkpoint, bool, error)
}

// FilePersistence is the default Persistence, backed by a single JSON file
// on disk written via write-to-temp-and-rename.
type FilePersistence struct {
	Path string
}

// NewFilePersistence returns a FilePersistence rooted at path.
func NewFilePersistence(path string) *FilePersistence {
	return &FilePersistence{Path: path}
}

// Save atomically writes cp to disk: marshal to a temp file in the same
// directory, then rename over the destination, so a reader never observes a
// partial write.
func (p *FilePersistence) Save(cp Checkpoint) error {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, p.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// Load reads the checkpoint file, returning (_, false, nil) if it does not
// exist yet.
func (p *FilePersistence) Load() (Checkpoint, bool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("checkpoint: read: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: decode: %w", err)
	}
	return cp, true, nil
}
