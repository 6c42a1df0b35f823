// Package sanitize provides path validation for repository-relative input.
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal indicates a path resolves outside the repository root.
	ErrPathTraversal = errors.New("path escapes repository root")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")
)

// JoinRepoPath joins a client-supplied relative path onto the repository
// root and guarantees the result stays inside the root.
//
// The returned path is absolute and cleaned. Absolute inputs are allowed
// only when they already point inside the root; everything else is
// rejected with ErrPathTraversal.
//
// Symlinks are not resolved: a link inside the root that points outside
// it can still escape. Callers that need symlink defense must add a
// real-path check on top.
func JoinRepoPath(root string, path string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("repository root: %w", ErrEmptyPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving repository root: %w", err)
	}

	var target string
	if filepath.IsAbs(path) {
		target = filepath.Clean(path)
	} else {
		target = filepath.Join(absRoot, path)
	}

	rel, err := filepath.Rel(absRoot, target)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}

	return target, nil
}
