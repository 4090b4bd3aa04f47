// Package security guards file names derived from user input.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// JoinWithinDirectory joins name onto dir and rejects results that escape
// dir. The check is lexical so it also holds for in-memory file systems.
func JoinWithinDirectory(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("file name %q must be relative", name)
	}
	cleanDir := filepath.Clean(dir)
	joined := filepath.Join(cleanDir, name)
	rel, err := filepath.Rel(cleanDir, joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file name %q escapes %s", name, dir)
	}
	return joined, nil
}
