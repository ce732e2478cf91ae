// Package fsdiscover resolves glob patterns against the filesystem: finding
// checkpoint/log directories and companion prompt files referenced by a
// graph (spec §6.1's file-based external interfaces). It wraps
// bmatcuk/doublestar/v4 rather than stdlib filepath.Glob so `**` recursive
// patterns work, matching the teacher's own wired dependency.
package fsdiscover

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob resolves pattern (which may use `**` for recursive matching) rooted
// at root, returning matches sorted lexicographically for determinism.
func Glob(root, pattern string) ([]string, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("fsdiscover: glob %q under %q: %w", pattern, root, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// FindPromptFile locates a node's companion prompt file: <root>/<nodeID>.md
// if present, else the first match of <root>/**/<nodeID>.md. Returns ""
// with no error if nothing matches (a node's prompt is optional; it may be
// inlined in the graph instead).
func FindPromptFile(root, nodeID string) (string, error) {
	direct := nodeID + ".md"
	if ok, err := existsUnder(root, direct); err != nil {
		return "", err
	} else if ok {
		return direct, nil
	}
	matches, err := Glob(root, "**/"+nodeID+".md")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

func existsUnder(root, rel string) (bool, error) {
	_, err := os.Stat(joinPath(root, rel))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func joinPath(root, rel string) string {
	if root == "" {
		return rel
	}
	return root + string(os.PathSeparator) + rel
}

// ValidPattern reports whether pattern is syntactically valid doublestar
// glob syntax, for validating config before a run starts.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
