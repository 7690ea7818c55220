// Package dependency implements the dependency registry described by the
// build configuration's `dependency` table. Each entry names an `is` kind
// (local-build or local-pair) that resolves to a concrete backend; parsing
// all entries accumulates every bad entry instead of stopping at the first.
package dependency

import (
	"fmt"
	"strings"

	"github.com/kirillsemyonkin/buildpp/internal/errors"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/suggest"
)

// Dependency is the closed set of operations every dependency kind
// supports. Concrete backends (localbuild, localpair) are two structs
// behind this interface.
type Dependency interface {
	// CurrentVersion reports the dependency's own version string, which names
	// its cache subdirectory; local-pair dependencies have no version and
	// return "".
	CurrentVersion() (string, error)
	// CurrentProfile resolves which profile name this dependency actually
	// builds with, given the profile selected for the top-level build.
	CurrentProfile(selectedProfile string) (string, error)
	// NeedsRecaching reports whether cacheDir is stale relative to the
	// dependency's own sources, regardless of kind.
	NeedsRecaching(selectedProfile, cacheDir string) (bool, error)
	// Cache builds (if applicable) and copies the dependency's headers and
	// library artifacts into includeDir and libDir.
	Cache(selectedProfile, includeDir, libDir string) error
}

// Factory constructs a Dependency from a single dependency table entry.
// projectDir is the directory containing the build++.lsd that declared it,
// used to resolve relative paths.
type Factory func(node *lsd.Node, projectDir string) (Dependency, error)

var backends = map[string]Factory{}

// RegisterBackend makes a backend available under a canonical kind name
// ("local-build", "local-pair"). Called from each backend package's init.
func RegisterBackend(kind string, factory Factory) {
	backends[kind] = factory
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// canonicalKind maps every accepted spelling of an `is` value onto the
// backend name it was registered under.
func canonicalKind(is string) (string, bool) {
	if is == "local" {
		return "local-build", true
	}
	words := strings.Fields(strings.ReplaceAll(is, "-", " "))
	if len(words) == 2 && words[0] == "local" {
		switch words[1] {
		case "build", "build++", "buildpp":
			return "local-build", true
		case "pair", "include", "library":
			return "local-pair", true
		}
	}
	return "", false
}

// ErrorKind distinguishes dependency-table parse failures.
type ErrorKind int

const (
	ErrMissingIs ErrorKind = iota
	ErrUnknownKind
	ErrBackendParse
)

// ParseError reports a failure parsing a single dependency table entry.
type ParseError struct {
	Dependency string
	Kind       ErrorKind
	Value      string
	Suggestion string
	Err        error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrMissingIs:
		return fmt.Sprintf("dependency %q: missing \"is\"", e.Dependency)
	case ErrUnknownKind:
		msg := fmt.Sprintf("dependency %q: unknown kind %q", e.Dependency, e.Value)
		if e.Suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
		}
		return msg
	case ErrBackendParse:
		return fmt.Sprintf("dependency %q: %v", e.Dependency, e.Err)
	default:
		return fmt.Sprintf("dependency %q: invalid", e.Dependency)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseAll parses every entry of a dependency table rooted at projectDir,
// accumulating every failing entry instead of stopping at the first.
func ParseAll(table *lsd.Level, projectDir string) (map[string]Dependency, error) {
	result := make(map[string]Dependency, table.Len())
	var errs []error

	for _, name := range table.Keys() {
		node := table.Get(name)
		level, ok := node.ToLevel()
		if !ok {
			errs = append(errs, &ParseError{Dependency: name, Kind: ErrMissingIs})
			continue
		}
		isValue, ok := level.Get("is").ToValue()
		if !ok {
			errs = append(errs, &ParseError{Dependency: name, Kind: ErrMissingIs})
			continue
		}
		kind, ok := canonicalKind(isValue)
		if !ok {
			suggestion, _ := suggest.Closest(isValue, []string{"local", "local-build", "local-pair", "local-include", "local-library"})
			errs = append(errs, &ParseError{Dependency: name, Kind: ErrUnknownKind, Value: isValue, Suggestion: suggestion})
			continue
		}
		factory, ok := backends[kind]
		if !ok {
			errs = append(errs, &ParseError{Dependency: name, Kind: ErrUnknownKind, Value: isValue})
			continue
		}
		dep, err := factory(node, projectDir)
		if err != nil {
			errs = append(errs, &ParseError{Dependency: name, Kind: ErrBackendParse, Err: err})
			continue
		}
		result[name] = dep
	}

	if err := errors.New(errs...); err != nil {
		return nil, err
	}
	return result, nil
}
