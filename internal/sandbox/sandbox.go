// Package sandbox confines caller-supplied paths to a workspace root.
//
// Every filesystem path derived from request input must pass through Resolve
// before it is opened, created or removed.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrPathEscape is returned when a path resolves outside its root.
var ErrPathEscape = errors.New("path escapes workspace")

// Resolve joins p to root (or takes p as-is when absolute), canonicalizes the
// result including symlinks, and verifies it is root or a descendant of root.
// Paths that do not exist yet resolve through their deepest existing parent.
func Resolve(root, p string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("resolve path: empty workspace root")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	canonRoot, err := canonicalize(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	var candidate string
	if filepath.IsAbs(p) {
		candidate = filepath.Clean(p)
	} else {
		candidate = filepath.Join(canonRoot, p)
	}
	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}

	if !Within(canonRoot, resolved) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, p)
	}
	return resolved, nil
}

// Within reports whether target equals root or lies beneath it. Both paths
// must already be absolute and clean.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalize resolves symlinks on the longest existing prefix of path and
// re-appends the missing tail.
func canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	var tail []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !isNotDir(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}

func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}
