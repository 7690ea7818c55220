// Package localbuild implements the "local-build" dependency kind: a
// sibling build++ project built as a library and cached into the
// top-level project's include/lib directories.
//
// Loading the nested project requires internal/config, which in turn
// parses the dependency table that constructs this backend. To avoid an
// import cycle, the actual project loader is injected by internal/config's
// own init() via the package-level Loader variable, rather than imported
// directly.
package localbuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kirillsemyonkin/buildpp/internal/dependency"
	"github.com/kirillsemyonkin/buildpp/internal/fsx"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
)

func init() {
	dependency.RegisterBackend("local-build", New)
}

// Project is the subset of a nested build++ project this backend needs.
// internal/config's Configuration implements it.
type Project interface {
	Version() string
	BuildLibrary(profileName string) error
	ConfigPath() string
	SrcDir() string
	TargetDir(profileName string) string
	TargetIncludeDir(profileName string) string
	TargetArtifactDir(profileName string) string
}

// Loader loads a nested project from its directory. internal/config's
// init() sets this to its own Load function.
var Loader func(projectDir string) (Project, error)

var ErrNoLoader = errors.New("localbuild: no project loader registered")

// ProfileChoice is either "inherit the selected profile" or a fixed named
// profile to always build the nested project with.
type ProfileChoice struct {
	Inherit bool
	Name    string
}

// Resolve returns the nested project's profile name given the profile
// selected for the top-level build.
func (c ProfileChoice) Resolve(selected string) string {
	if c.Inherit {
		return selected
	}
	return c.Name
}

// Dependency is a sibling build++ project consumed as a library.
type Dependency struct {
	ProjectDir string
	Profile    ProfileChoice
	project    Project
}

// New parses a dependency table entry's `path` (required) and `profile`
// (optional, "inherit" or a fixed profile name, defaulting to the global
// default profile when absent) into a Dependency.
func New(node *lsd.Node, projectDir string) (dependency.Dependency, error) {
	if Loader == nil {
		return nil, ErrNoLoader
	}
	level, ok := node.ToLevel()
	if !ok {
		return nil, fmt.Errorf("localbuild: entry must be a level")
	}

	path, ok := level.Get("path").ToValue()
	if !ok {
		return nil, fmt.Errorf("localbuild: missing required key \"path\"")
	}
	depDir := filepath.Join(projectDir, path)

	choice := ProfileChoice{Name: "default"}
	if profileValue, ok := level.Get("profile").ToValue(); ok {
		if profileValue == "inherit" {
			choice = ProfileChoice{Inherit: true}
		} else {
			choice = ProfileChoice{Name: profileValue}
		}
	}

	project, err := Loader(depDir)
	if err != nil {
		return nil, fmt.Errorf("localbuild: loading %s: %w", depDir, err)
	}

	return &Dependency{ProjectDir: depDir, Profile: choice, project: project}, nil
}

func (d *Dependency) CurrentVersion() (string, error) {
	return d.project.Version(), nil
}

func (d *Dependency) CurrentProfile(selectedProfile string) (string, error) {
	return d.Profile.Resolve(selectedProfile), nil
}

func (d *Dependency) NeedsRecaching(selectedProfile string, cacheDir string) (bool, error) {
	resolved := d.Profile.Resolve(selectedProfile)
	targetDir := d.project.TargetDir(resolved)

	targetInfo, err := os.Stat(targetDir)
	if err != nil || !targetInfo.IsDir() {
		return true, nil
	}

	cacheMTime, err := fsx.LastModifiedRecursive(cacheDir)
	if err != nil {
		return true, nil
	}

	configMTime, err := fsx.LastModifiedRecursive(d.project.ConfigPath())
	if err != nil {
		return false, err
	}
	srcMTime, err := fsx.LastModifiedRecursive(d.project.SrcDir())
	if err != nil {
		return false, err
	}
	targetMTime, err := fsx.LastModifiedRecursive(targetDir)
	if err != nil {
		return false, err
	}

	newest := latest(configMTime, srcMTime, targetMTime)
	return cacheMTime.Before(newest), nil
}

func (d *Dependency) Cache(selectedProfile, includeDir, libDir string) error {
	resolved := d.Profile.Resolve(selectedProfile)
	if err := d.project.BuildLibrary(resolved); err != nil {
		return err
	}
	if err := fsx.CopyDirAll(d.project.TargetIncludeDir(resolved), includeDir); err != nil {
		return err
	}
	return fsx.CopyDirAll(d.project.TargetArtifactDir(resolved), libDir)
}

func latest(times ...time.Time) time.Time {
	max := times[0]
	for _, t := range times[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max
}
