// Package msvc implements the MSVC (cl.exe) profile backend: argument
// assembly follows cl's `/flag` convention and the `/link` switch-over to
// linker-style arguments.
package msvc

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
	"github.com/kirillsemyonkin/buildpp/internal/fsx"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/profile"
)

func init() {
	profile.RegisterBackend("msvc", New)
}

// ErrStaticLibraryNotImplemented is returned when a library build requests
// a static library: the original backend never implemented this (a
// panicking todo!()), so it fails fast here instead.
var ErrStaticLibraryNotImplemented = errors.New("msvc: static library output is not implemented")

// Standard is a supported /std: value.
type Standard int

const (
	StandardNone Standard = iota
	CPP14
	CPP17
	CPP20
	CPPLatest
	C11
	C17
)

func (s Standard) flag() string {
	switch s {
	case CPP14:
		return "c++14"
	case CPP17:
		return "c++17"
	case CPP20:
		return "c++20"
	case CPPLatest:
		return "c++latest"
	case C11:
		return "c11"
	case C17:
		return "c17"
	default:
		return ""
	}
}

func parseStandard(s string) (Standard, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c++14", "cpp14", "14":
		return CPP14, true
	case "c++17", "cpp17", "17":
		return CPP17, true
	case "c++20", "cpp20", "20":
		return CPP20, true
	case "c++latest", "cpplatest", "latest":
		return CPPLatest, true
	case "c11":
		return C11, true
	case "c17":
		return C17, true
	default:
		return StandardNone, false
	}
}

// Optimize is a supported /O value.
type Optimize int

const (
	OptimizeNone Optimize = iota
	MinimizeSize
	MaximizeSpeed
)

func (o Optimize) flag() string {
	switch o {
	case MinimizeSize:
		return "/O1"
	case MaximizeSpeed:
		return "/O2"
	default:
		return ""
	}
}

func parseOptimize(s string) (Optimize, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "minsize", "minimize-size":
		return MinimizeSize, true
	case "speed", "maxspeed", "maximize-speed":
		return MaximizeSpeed, true
	default:
		return OptimizeNone, false
	}
}

// LibraryType selects between a shared (DLL) and static library artifact.
type LibraryType int

const (
	Shared LibraryType = iota
	Static
)

func parseLibraryType(s string) (LibraryType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "dynamic", "dll":
		return Shared, true
	case "static":
		return Static, true
	default:
		return 0, false
	}
}

// Profile is the MSVC compiler backend.
type Profile struct {
	CompilerPath string
	StdOpt       Standard
	Optimize     Optimize
	OpenMP       bool
	LibraryType  LibraryType
}

// New returns the default MSVC profile: cl on PATH, no standard/optimize
// override, OpenMP off, shared libraries.
func New() profile.Profile {
	return &Profile{CompilerPath: "cl", LibraryType: Shared}
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
				return nil, fmt.Errorf("msvc: unknown standard %q", v)
			}
			copied.StdOpt = std
		case "optimize":
			v, _ := level.Get(key).ToValue()
			opt, ok := parseOptimize(v)
			if !ok {
				return nil, fmt.Errorf("msvc: unknown optimize level %q", v)
			}
			copied.Optimize = opt
		case "openmp":
			v, _ := level.Get(key).ToValue()
			copied.OpenMP = strings.EqualFold(v, "true") || v == "1"
		case "library":
			v, _ := level.Get(key).ToValue()
			lt, ok := parseLibraryType(v)
			if !ok {
				return nil, fmt.Errorf("msvc: unknown library type %q", v)
			}
			copied.LibraryType = lt
		}
	}
	return &copied, nil
}

func (p *Profile) SrcFileSuffix() string { return "cpp" }

func (p *Profile) ArtifactPrefix(bt buildtype.Type) string {
	if bt == buildtype.Library && p.LibraryType == Shared {
		return ""
	}
	return ""
}

func (p *Profile) ArtifactSuffix(bt buildtype.Type) string {
	switch bt {
	case buildtype.Binary:
		return "exe"
	case buildtype.Library:
		if p.LibraryType == Shared {
			return "dll"
		}
		return "lib"
	default:
		return ""
	}
}

func (p *Profile) CompilerCommand() string { return p.CompilerPath }

// CompilerArguments assembles cl.exe arguments in the exact order the
// original backend uses: compiler flags, then per-dependency include paths,
// the source file, bare library file names, the /link switch-over, the
// output path, /DLL when applicable, and finally per-dependency /LIBPATH.
func (p *Profile) CompilerArguments(bt buildtype.Type, srcFile, targetFile string, deps []profile.Dependency) ([]string, error) {
	var args []string

	if p.OpenMP {
		args = append(args, "/openmp")
	}
	if flag := p.Optimize.flag(); flag != "" {
		args = append(args, flag)
	}
	if std := p.StdOpt.flag(); std != "" {
		args = append(args, "/std:"+std)
	}

	for _, dep := range deps {
		args = append(args, "/I", dep.IncludeDir)
	}

	args = append(args, srcFile)

	for _, dep := range deps {
		entries, err := os.ReadDir(dep.LibDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			_, ext := fsx.SplitFileName(entry.Name())
			switch ext {
			case "lib", "a", "exp":
				args = append(args, entry.Name())
			}
		}
	}

	args = append(args, "/link")
	args = append(args, "/OUT:"+targetFile)

	if bt == buildtype.Library {
		if p.LibraryType == Static {
			return nil, ErrStaticLibraryNotImplemented
		}
		args = append(args, "/DLL")
	}

	for _, dep := range deps {
		args = append(args, "/LIBPATH:"+dep.LibDir)
	}

	return args, nil
}
