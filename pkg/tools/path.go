package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscapes is returned for paths outside of the project directory.
var ErrPathEscapes = fmt.Errorf("path escapes project directory: %w", fs.ErrPermission)

// PathGuard confines paths to the project directory. It only looks at the
// path strings and never touches the filesystem.
type PathGuard struct {
	// roots are the absolute project directory as given and with the
	// symlinks resolved.
	roots []string
}

// NewPathGuard creates a guard for the project directory root.
func NewPathGuard(root string) (*PathGuard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	g := &PathGuard{roots: []string{abs}}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
		g.roots = append(g.roots, resolved)
	}
	return g, nil
}

// Root returns the absolute project directory.
func (g *PathGuard) Root() string {
	return g.roots[0]
}

// Resolve returns the absolute form of p, relative paths being taken from
// the project directory, and its path relative to the project directory.
func (g *PathGuard) Resolve(p string) (abs string, rel string, err error) {
	if strings.TrimSpace(p) == "" {
		return "", "", errors.New("path is required")
	}
	for _, root := range g.roots {
		abs = p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, abs)
		}
		abs = filepath.Clean(abs)
		rel, err = filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return abs, rel, nil
	}
	return "", "", ErrPathEscapes
}

// IsPermitted reports whether p is inside the project directory.
func (g *PathGuard) IsPermitted(p string) bool {
	_, _, err := g.Resolve(p)
	return err == nil
}

func openRoot(dir string) (*os.Root, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open the project directory %s: %w", dir, err)
	}
	return root, nil
}
