// Package nvcc implements the NVIDIA nvcc profile backend. Argument
// assembly follows nvcc's `--flag value`/`--flag=value` convention; artifact
// naming is platform-conditional (no .exe/.dll suffix convention on Linux).
package nvcc

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
	"github.com/kirillsemyonkin/buildpp/internal/fsx"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/profile"
)

func init() {
	profile.RegisterBackend("nvcc", New)
}

// ErrStaticLibraryNotImplemented mirrors msvc's: static nvcc libraries were
// never implemented upstream, so this fails fast instead of guessing at
// flags.
var ErrStaticLibraryNotImplemented = errors.New("nvcc: static library output is not implemented")

// Standard is a supported --std value.
type Standard int

const (
	StandardNone Standard = iota
	CPP03
	CPP11
	CPP14
	CPP17
	CPP20
)

func (s Standard) flag() string {
	switch s {
	case CPP03:
		return "c++03"
	case CPP11:
		return "c++11"
	case CPP14:
		return "c++14"
	case CPP17:
		return "c++17"
	case CPP20:
		return "c++20"
	default:
		return ""
	}
}

func parseStandard(s string) (Standard, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c++03", "cpp03", "03":
		return CPP03, true
	case "c++11", "cpp11", "11":
		return CPP11, true
	case "c++14", "cpp14", "14":
		return CPP14, true
	case "c++17", "cpp17", "17":
		return CPP17, true
	case "c++20", "cpp20", "20":
		return CPP20, true
	default:
		return StandardNone, false
	}
}

// Optimize is a supported --optimize level.
type Optimize int

const (
	OptimizeNone Optimize = iota
	No
	Yes
	EvenMore
	YetMore
	Size
	UncompliantFast
	Debug
	SizeAggressive
)

func (o Optimize) flag() (string, bool) {
	switch o {
	case No:
		return "0", true
	case Yes:
		return "1", true
	case EvenMore:
		return "2", true
	case YetMore:
		return "3", true
	case Size:
		return "s", true
	case UncompliantFast:
		return "fast", true
	case Debug:
		return "g", true
	case SizeAggressive:
		return "z", true
	default:
		return "", false
	}
}

func parseOptimize(s string) (Optimize, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "0":
		return No, true
	case "yes", "1":
		return Yes, true
	case "even-more", "2":
		return EvenMore, true
	case "yet-more", "3":
		return YetMore, true
	case "size", "s":
		return Size, true
	case "uncompliant-fast", "fast":
		return UncompliantFast, true
	case "debug", "g":
		return Debug, true
	case "size-aggressive", "z":
		return SizeAggressive, true
	default:
		return OptimizeNone, false
	}
}

// LibraryType selects between a shared and static library artifact.
type LibraryType int

const (
	Shared LibraryType = iota
	Static
)

func parseLibraryType(s string) (LibraryType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "dynamic", "so", "dll":
		return Shared, true
	case "static":
		return Static, true
	default:
		return 0, false
	}
}

// Profile is the nvcc compiler backend.
type Profile struct {
	CompilerPath string
	StdOpt       Standard
	Optimize     Optimize
	Dopt         bool
	LibraryType  LibraryType
}

// New returns the default nvcc profile: nvcc on PATH, no standard/optimize
// override, device-code optimization off, shared libraries.
func New() profile.Profile {
	return &Profile{CompilerPath: "nvcc", LibraryType: Shared}
}

// Apply returns a copy of p with fields from node's overrides applied.
func (p *Profile) Apply(node *lsd.Node) (profile.Profile, error) {
	copied := *p
	level, ok := node.ToLevel()
	if !ok {
		return &copied, nil
	}
	for _, key := range level.Keys() {
		switch key {
		case "is", "inherit":
			continue
		case "compiler_path":
			v, _ := level.Get(key).ToValue()
			copied.CompilerPath = v
		case "standard":
			v, _ := level.Get(key).ToValue()
			std, ok := parseStandard(v)
			if !ok {
				return nil, fmt.Errorf("nvcc: unknown standard %q", v)
			}
			copied.StdOpt = std
		case "optimize":
			v, _ := level.Get(key).ToValue()
			opt, ok := parseOptimize(v)
			if !ok {
				return nil, fmt.Errorf("nvcc: unknown optimize level %q", v)
			}
			copied.Optimize = opt
		case "dopt":
			v, _ := level.Get(key).ToValue()
			copied.Dopt = strings.EqualFold(v, "true") || v == "1"
		case "library":
			v, _ := level.Get(key).ToValue()
			lt, ok := parseLibraryType(v)
			if !ok {
				return nil, fmt.Errorf("nvcc: unknown library type %q", v)
			}
			copied.LibraryType = lt
		}
	}
	return &copied, nil
}

func (p *Profile) SrcFileSuffix() string { return "cu" }

func (p *Profile) ArtifactPrefix(bt buildtype.Type) string {
	if bt == buildtype.Library && runtime.GOOS != "windows" {
		return "lib"
	}
	return ""
}

func (p *Profile) ArtifactSuffix(bt buildtype.Type) string {
	windows := runtime.GOOS == "windows"
	switch bt {
	case buildtype.Binary:
		if windows {
			return "exe"
		}
		return ""
	case buildtype.Library:
		switch {
		case windows && p.LibraryType == Shared:
			return "dll"
		case windows:
			return "lib"
		case p.LibraryType == Shared:
			return "so"
		default:
			return "a"
		}
	default:
		return ""
	}
}

func (p *Profile) CompilerCommand() string { return p.CompilerPath }

// CompilerArguments assembles nvcc arguments in the order the original
// backend uses: compiler flags, --shared when applicable, per-dependency
// include/library paths and discovered library names, the output file, and
// finally the source file.
func (p *Profile) CompilerArguments(bt buildtype.Type, srcFile, targetFile string, deps []profile.Dependency) ([]string, error) {
	var args []string

	if flag, ok := p.Optimize.flag(); ok {
		args = append(args, "--optimize", flag)
	}
	if p.Dopt {
		args = append(args, "--dopt")
	}
	if std := p.StdOpt.flag(); std != "" {
		args = append(args, "--std", std)
	}

	if bt == buildtype.Library {
		if p.LibraryType == Static {
			return nil, ErrStaticLibraryNotImplemented
		}
		args = append(args, "--shared")
	}

	for _, dep := range deps {
		args = append(args, fmt.Sprintf("--include-path=%s", dep.IncludeDir))
		args = append(args, fmt.Sprintf("--library-path=%s", dep.LibDir))

		entries, err := os.ReadDir(dep.LibDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			stem, ext := fsx.SplitFileName(entry.Name())
			switch ext {
			case "lib", "a", "exp":
				args = append(args, fmt.Sprintf("--library=%s", strings.TrimPrefix(stem, "lib")))
			}
		}
	}

	args = append(args, "--output-file", targetFile)
	args = append(args, srcFile)

	return args, nil
}
