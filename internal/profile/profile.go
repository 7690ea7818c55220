// Package profile implements the profile registry described by the build
// configuration's `profile` table: named compiler backends that can inherit
// from one another or be freshly created from a known `is` backend and then
// overridden field by field.
package profile

import (
	"fmt"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
	"github.com/kirillsemyonkin/buildpp/internal/errors"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/suggest"
)

// DefaultProfile is the name every project is expected to define at least
// once, used whenever a build or run is requested without an explicit
// --profile.
const DefaultProfile = "default"

// Dependency is the per-dependency information a backend needs to assemble
// include/library flags: the resolved cache directories and the dependency's
// table name. Library file names are taken from the LibDir listing, not
// from Name.
type Dependency struct {
	Name       string
	IncludeDir string
	LibDir     string
}

// Profile is the closed set of operations every compiler backend supports.
// Concrete backends (msvc, nvcc) are two structs behind this interface; it
// is never implemented outside this module.
type Profile interface {
	// Apply overrides fields of a copy of the profile from node (a profile
	// table entry's level; its "is"/"inherit" keys are ignored) and
	// returns the resulting profile, leaving the receiver untouched.
	Apply(node *lsd.Node) (Profile, error)
	SrcFileSuffix() string
	ArtifactPrefix(bt buildtype.Type) string
	ArtifactSuffix(bt buildtype.Type) string
	CompilerCommand() string
	CompilerArguments(bt buildtype.Type, srcFile, targetFile string, deps []Dependency) ([]string, error)
}

// Factory creates a fresh default-configured profile for a backend name.
type Factory func() Profile

var backends = map[string]Factory{}

// RegisterBackend makes a backend available under the `is` value name. It is
// called from each backend package's init function.
func RegisterBackend(name string, factory Factory) {
	backends[name] = factory
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// ErrorKind distinguishes profile-table parse failures.
type ErrorKind int

const (
	ErrUnknownBackend ErrorKind = iota
	ErrUnknownInheritTarget
	ErrMissingIsOrInherit
	ErrApplyFailed
)

// ParseError reports a failure parsing a single profile table entry.
type ParseError struct {
	Kind       ErrorKind
	Profile    string
	Value      string
	Suggestion string
	Err        error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnknownBackend:
		msg := fmt.Sprintf("profile %q: unknown backend %q", e.Profile, e.Value)
		if e.Suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
		}
		return msg
	case ErrUnknownInheritTarget:
		msg := fmt.Sprintf("profile %q: inherits from undefined profile %q", e.Profile, e.Value)
		if e.Suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
		}
		return msg
	case ErrMissingIsOrInherit:
		return fmt.Sprintf("profile %q: must declare either \"is\" or \"inherit\"", e.Profile)
	case ErrApplyFailed:
		return fmt.Sprintf("profile %q: %v", e.Profile, e.Err)
	default:
		return fmt.Sprintf("profile %q: invalid", e.Profile)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseAll parses every entry of a profile table. Entries declaring `is` are
// resolved first (they never depend on other entries); entries declaring
// `inherit` are resolved second, against the already-built set, so
// inheritance chains only ever need a single pass. Every failing entry is
// reported; ParseAll never stops at the first error.
func ParseAll(table *lsd.Level) (map[string]Profile, error) {
	result := make(map[string]Profile, table.Len())
	var errs []error

	var deferredInherit []string
	for _, name := range table.Keys() {
		node := table.Get(name)
		level, ok := node.ToLevel()
		if !ok {
			errs = append(errs, &ParseError{Kind: ErrMissingIsOrInherit, Profile: name})
			continue
		}
		if inheritNode := level.Get("inherit"); inheritNode != nil {
			deferredInherit = append(deferredInherit, name)
			continue
		}
		isValue, ok := level.Get("is").ToValue()
		if !ok {
			errs = append(errs, &ParseError{Kind: ErrMissingIsOrInherit, Profile: name})
			continue
		}
		factory, ok := backends[isValue]
		if !ok {
			suggestion, _ := suggest.Closest(isValue, backendNames())
			errs = append(errs, &ParseError{Kind: ErrUnknownBackend, Profile: name, Value: isValue, Suggestion: suggestion})
			continue
		}
		applied, err := factory().Apply(node)
		if err != nil {
			errs = append(errs, &ParseError{Kind: ErrApplyFailed, Profile: name, Err: err})
			continue
		}
		result[name] = applied
	}

	for _, name := range deferredInherit {
		node := table.Get(name)
		level, _ := node.ToLevel()
		inheritName, _ := level.Get("inherit").ToValue()
		base, ok := result[inheritName]
		if !ok {
			names := make([]string, 0, len(result))
			for n := range result {
				names = append(names, n)
			}
			suggestion, _ := suggest.Closest(inheritName, names)
			errs = append(errs, &ParseError{Kind: ErrUnknownInheritTarget, Profile: name, Value: inheritName, Suggestion: suggestion})
			continue
		}
		applied, err := base.Apply(node)
		if err != nil {
			errs = append(errs, &ParseError{Kind: ErrApplyFailed, Profile: name, Err: err})
			continue
		}
		result[name] = applied
	}

	if err := errors.New(errs...); err != nil {
		return nil, err
	}
	return result, nil
}
