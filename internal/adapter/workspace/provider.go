// Package workspace provides working-tree file access rooted at a
// repository directory. All paths resolve relative to the root; traversal
// attempts are rejected.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider implements the DocumentProvider port over the filesystem.
type Provider struct {
	root string
}

// NewProvider creates a Provider rooted at the given directory.
func NewProvider(root string) *Provider {
	return &Provider{root: root}
}

// Content returns the current working content of a file and whether it
// exists. The repo argument identifies the repository for callers that
// manage several providers; a single-root provider serves one repository.
func (p *Provider) Content(repo, path string) ([]byte, bool, error) {
	resolved, err := p.resolvePath(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid path %q: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("%q is a directory", path)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", path, err)
	}
	return content, true, nil
}

// resolvePath resolves a path and validates it's within the provider root.
// It follows symlinks to prevent bypassing the root directory check.
func (p *Provider) resolvePath(path string) (string, error) {
	var resolved string

	if filepath.IsAbs(path) {
		resolved = path
	} else {
		resolved = filepath.Join(p.root, path)
	}

	resolved = filepath.Clean(resolved)

	realRoot, err := filepath.EvalSymlinks(p.root)
	if err != nil {
		realRoot = filepath.Clean(p.root)
	}

	realPath, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("resolving symlinks: %w", err)
		}
		// File doesn't exist - validate the cleaned path instead
		rel, relErr := filepath.Rel(realRoot, resolved)
		if relErr != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path traversal detected")
		}
		return resolved, nil
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path traversal detected")
	}

	return realPath, nil
}
