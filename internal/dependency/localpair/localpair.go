// Package localpair implements the "local-pair" dependency kind: a
// pre-built include/library directory pair that is copied verbatim into
// the cache, with no build step and no profile of its own.
package localpair

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillsemyonkin/buildpp/internal/dependency"
	"github.com/kirillsemyonkin/buildpp/internal/fsx"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
)

func init() {
	dependency.RegisterBackend("local-pair", New)
}

// Dependency is a pre-built pair of include and library directories.
type Dependency struct {
	IncludeDir string
	LibDir     string
}

// New parses the required `include` and `library` keys, both of which must
// name existing directories relative to projectDir.
func New(node *lsd.Node, projectDir string) (dependency.Dependency, error) {
	level, ok := node.ToLevel()
	if !ok {
		return nil, fmt.Errorf("localpair: entry must be a level")
	}

	includeDir, err := requireDir(level, "include", projectDir)
	if err != nil {
		return nil, err
	}
	libDir, err := requireDir(level, "library", projectDir)
	if err != nil {
		return nil, err
	}

	return &Dependency{IncludeDir: includeDir, LibDir: libDir}, nil
}

func requireDir(level *lsd.Level, key, projectDir string) (string, error) {
	value, ok := level.Get(key).ToValue()
	if !ok {
		return "", fmt.Errorf("localpair: missing required key %q", key)
	}
	path := value
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("localpair: %s %q: %w", key, path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("localpair: %s %q is not a directory", key, path)
	}
	return path, nil
}

func (d *Dependency) CurrentVersion() (string, error) { return "", nil }

func (d *Dependency) CurrentProfile(string) (string, error) { return "", nil }

func (d *Dependency) NeedsRecaching(_ string, cacheDir string) (bool, error) {
	cacheMTime, err := fsx.LastModifiedRecursive(cacheDir)
	if err != nil {
		return true, nil
	}
	includeMTime, err := fsx.LastModifiedRecursive(d.IncludeDir)
	if err != nil {
		return false, err
	}
	libMTime, err := fsx.LastModifiedRecursive(d.LibDir)
	if err != nil {
		return false, err
	}
	newest := includeMTime
	if libMTime.After(newest) {
		newest = libMTime
	}
	return cacheMTime.Before(newest), nil
}

func (d *Dependency) Cache(_ string, includeDir, libDir string) error {
	if err := fsx.CopyDirAll(d.IncludeDir, includeDir); err != nil {
		return err
	}
	return fsx.CopyDirAll(d.LibDir, libDir)
}
