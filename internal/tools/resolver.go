package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pathResolver confines a scope-relative path under root, rejecting any
// path that escapes it after normalization (§4.5 invariant 8). Grounded on
// the teacher's files.Resolver.
type pathResolver struct {
	root string
}

func (r pathResolver) resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	rootAbs, err := filepath.Abs(r.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes scope root")
	}
	return targetAbs, nil
}
