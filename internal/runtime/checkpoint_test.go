package runtime

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckpoint_CopiesSlicesAndMaps(t *testing.T) {
	retries := map[string]int{"a": 1}
	completed := []string{"a"}
	logs := []string{"line1"}

	cp := NewCheckpoint(time.Unix(100, 0), "b", completed, retries, map[string]any{"k": "v"}, logs)

	retries["a"] = 99
	completed[0] = "mutated"
	logs[0] = "mutated"

	assert.Equal(t, 1, cp.NodeRetries["a"])
	assert.Equal(t, "a", cp.CompletedNodes[0])
	assert.Equal(t, "line1", cp.Logs[0])
	assert.Equal(t, "b", cp.CurrentNode)
}

func TestArtifactLogEntry_Format(t *testing.T) {
	assert.Equal(t, "artifact:node1:out.txt", ArtifactLogEntry("node1", "out.txt"))
}

func TestFilePersistence_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePersistence(filepath.Join(dir, "nested", "checkpoint.json"))

	cp := NewCheckpoint(time.Unix(200, 0), "work", []string{"start", "work"}, map[string]int{"work": 2}, map[string]any{"goal": "ship"}, []string{"artifact:work:a.txt"})

	require.NoError(t, p.Save(cp))

	loaded, found, err := p.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "work", loaded.CurrentNode)
	assert.Equal(t, []string{"start", "work"}, loaded.CompletedNodes)
	assert.Equal(t, 2, loaded.NodeRetries["work"])
	assert.Equal(t, "ship", loaded.Context["goal"])
}

func TestFilePersistence_Load_MissingFileReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePersistence(filepath.Join(dir, "missing.json"))

	cp, found, err := p.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Checkpoint{}, cp)
}
