package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines file access to a single directory tree
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir. The directory does not need to
// exist yet.
func NewSandbox(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("sandbox directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox directory: %w", err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox directory
func (s *Sandbox) Root() string {
	return s.root
}

// Contains reports whether path lies inside the sandbox, following symlinks
// on both the path and the root
func (s *Sandbox) Contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	clean := filepath.Clean(abs)

	real := clean
	if info, err := os.Lstat(clean); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(clean); err == nil {
			real = resolved
		}
	}

	realRoot := s.root
	if resolved, err := filepath.EvalSymlinks(s.root); err == nil {
		realRoot = resolved
	}

	within := func(p string) bool {
		return isUnder(p, s.root) || isUnder(p, realRoot)
	}
	return within(clean) && within(real), nil
}

// Resolve turns path into an absolute path inside the sandbox. Relative
// paths are taken relative to the root.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	ok, err := s.Contains(abs)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("path is outside %s: %s", s.root, path)
	}
	return abs, nil
}

func isUnder(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
