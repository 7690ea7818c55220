// Package config loads a project's build++.lsd file into a Configuration
// and implements the build and run engines: dependency caching, staleness
// detection, compiler invocation, and post-build staging.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
	"github.com/kirillsemyonkin/buildpp/internal/dependency"
	"github.com/kirillsemyonkin/buildpp/internal/dependency/localbuild"
	_ "github.com/kirillsemyonkin/buildpp/internal/dependency/localpair"
	"github.com/kirillsemyonkin/buildpp/internal/fsx"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/profile"
	_ "github.com/kirillsemyonkin/buildpp/internal/profile/msvc"
	_ "github.com/kirillsemyonkin/buildpp/internal/profile/nvcc"
)

func init() {
	localbuild.Loader = func(dir string) (localbuild.Project, error) {
		return Load(dir)
	}
}

// configFileName is the canonical project file every build++ project root
// must contain.
const configFileName = "build++.lsd"

// Configuration is a fully loaded project: its declared name and version,
// its resolved dependency and profile tables, and its run specification.
type Configuration struct {
	ProjectDir      string
	Name            string
	version         string
	Dependencies    map[string]dependency.Dependency
	DependencyOrder []string
	Profiles        map[string]profile.Profile
	Run             *RunSpec
}

// Version returns the project's declared version string.
func (c *Configuration) Version() string { return c.version }

// RunSpec is the parsed form of the `run` key: a command and its arguments,
// each possibly containing a "{}" placeholder for the built binary's path.
type RunSpec struct {
	Command   string
	Arguments []string
}

// LoadErrorKind distinguishes failures while loading a project file.
type LoadErrorKind int

const (
	ErrOpenFile LoadErrorKind = iota
	ErrParseLSD
	ErrMissingName
	ErrMissingVersion
	ErrDependencyTable
	ErrProfileTable
	ErrRunSpec
)

// LoadError reports a failure loading a build++.lsd file.
type LoadError struct {
	Kind LoadErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case ErrOpenFile:
		return fmt.Sprintf("could not open %s: %v", configFileName, e.Err)
	case ErrParseLSD:
		return fmt.Sprintf("could not parse %s: %v", configFileName, e.Err)
	case ErrMissingName:
		return fmt.Sprintf("%s: missing required key \"name\"", configFileName)
	case ErrMissingVersion:
		return fmt.Sprintf("%s: missing required key \"version\"", configFileName)
	case ErrDependencyTable:
		return fmt.Sprintf("%s: invalid dependency table: %v", configFileName, e.Err)
	case ErrProfileTable:
		return fmt.Sprintf("%s: invalid profile table: %v", configFileName, e.Err)
	case ErrRunSpec:
		return fmt.Sprintf("%s: invalid run specification: %v", configFileName, e.Err)
	default:
		return fmt.Sprintf("%s: invalid", configFileName)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

var errInvalidRunSpec = fmt.Errorf("run must be a scalar, a list, or a level with \"command\"")
var errInvalidDependencyEntry = fmt.Errorf("dependency table entries must be levels")
var errInvalidProfileEntry = fmt.Errorf("profile table entries must be levels")

// Load reads and parses projectDir/build++.lsd into a Configuration.
func Load(projectDir string) (*Configuration, error) {
	path := filepath.Join(projectDir, configFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrOpenFile, Err: err}
	}
	defer f.Close()

	root, err := lsd.Parse(f)
	if err != nil {
		return nil, &LoadError{Kind: ErrParseLSD, Err: err}
	}

	name, ok, err := root.GetValue([]string{"name"}, fmt.Errorf("must be a scalar"))
	if err != nil || !ok {
		return nil, &LoadError{Kind: ErrMissingName, Err: err}
	}
	version, ok, err := root.GetValue([]string{"version"}, fmt.Errorf("must be a scalar"))
	if err != nil || !ok {
		return nil, &LoadError{Kind: ErrMissingVersion, Err: err}
	}

	cfg := &Configuration{
		ProjectDir: projectDir,
		Name:       name,
		version:    version,
		Profiles:   map[string]profile.Profile{},
	}

	if depsLevel, ok, err := root.GetLevel([]string{"dependency"}, errInvalidDependencyEntry); err != nil {
		return nil, &LoadError{Kind: ErrDependencyTable, Err: err}
	} else if ok {
		deps, err := dependency.ParseAll(depsLevel, projectDir)
		if err != nil {
			return nil, &LoadError{Kind: ErrDependencyTable, Err: err}
		}
		cfg.Dependencies = deps
		cfg.DependencyOrder = depsLevel.Keys()
	}

	if profilesLevel, ok, err := root.GetLevel([]string{"profile"}, errInvalidProfileEntry); err != nil {
		return nil, &LoadError{Kind: ErrProfileTable, Err: err}
	} else if ok {
		profiles, err := profile.ParseAll(profilesLevel)
		if err != nil {
			return nil, &LoadError{Kind: ErrProfileTable, Err: err}
		}
		cfg.Profiles = profiles
	}

	runNode := root.GetInner([]string{"run"})
	runSpec, err := parseRunSpec(runNode)
	if err != nil {
		return nil, &LoadError{Kind: ErrRunSpec, Err: err}
	}
	cfg.Run = runSpec

	return cfg, nil
}

func parseRunSpec(node *lsd.Node) (*RunSpec, error) {
	if node == nil {
		return &RunSpec{Command: "{}"}, nil
	}
	if v, ok := node.ToValue(); ok {
		if strings.TrimSpace(v) == "" {
			return &RunSpec{Command: "{}"}, nil
		}
		words := strings.Fields(v)
		return &RunSpec{Command: words[0], Arguments: words[1:]}, nil
	}

	level, ok := node.ToLevel()
	if !ok {
		return nil, errInvalidRunSpec
	}

	if level.IsList() {
		tokens, err := tokensFromList(level)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			return &RunSpec{Command: "{}"}, nil
		}
		return &RunSpec{Command: tokens[0], Arguments: tokens[1:]}, nil
	}

	// command is a scalar, or an empty level standing for the "{}" placeholder.
	commandNode := node.GetInner([]string{"command"})
	command, ok := commandNode.ToValue()
	if !ok {
		lvl, isLevel := commandNode.ToLevel()
		if !isLevel || lvl.Len() != 0 {
			return nil, errInvalidRunSpec
		}
		command = "{}"
	}

	var arguments []string
	if argsLevel, ok, err := node.GetList([]string{"arguments"}, errInvalidRunSpec); err != nil {
		return nil, err
	} else if ok {
		arguments, err = tokensFromList(argsLevel)
		if err != nil {
			return nil, err
		}
	}

	return &RunSpec{Command: command, Arguments: arguments}, nil
}

// tokensFromList reads each list entry as a scalar token; an entry that is
// itself an empty level is the literal "{}" placeholder, since a plain
// string "{}" would already parse as a scalar and both must behave alike.
func tokensFromList(level *lsd.Level) ([]string, error) {
	values := level.Values()
	tokens := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.ToValue(); ok {
			tokens = append(tokens, s)
			continue
		}
		if lvl, ok := v.ToLevel(); ok && lvl.Len() == 0 {
			tokens = append(tokens, "{}")
			continue
		}
		return nil, errInvalidRunSpec
	}
	return tokens, nil
}

//
// Directory layout (project dir / target / cache), spec.md §4.5
//

func (c *Configuration) ConfigPath() string { return filepath.Join(c.ProjectDir, configFileName) }
func (c *Configuration) SrcDir() string     { return filepath.Join(c.ProjectDir, "src") }

// TargetDir returns project_dir/target/<version>/<profile>: the profile it
// was built with, nested under this project's own version.
func (c *Configuration) TargetDir(profileName string) string {
	return filepath.Join(c.ProjectDir, "target", c.version, profileName)
}

func (c *Configuration) TargetArtifactDir(profileName string) string {
	return filepath.Join(c.TargetDir(profileName), "artifact")
}
func (c *Configuration) TargetIncludeDir(profileName string) string {
	return filepath.Join(c.TargetDir(profileName), "include")
}

func (c *Configuration) CacheDir() string { return filepath.Join(c.ProjectDir, "cache") }

// CacheDepDir returns cache/<alias>[/<version>][/<profile>], omitting the
// version and/or profile segments when the dependency reports them empty
// (local-pair dependencies have neither).
func (c *Configuration) CacheDepDir(name, version, profileName string) string {
	dir := filepath.Join(c.CacheDir(), name)
	if version != "" {
		dir = filepath.Join(dir, version)
	}
	if profileName != "" {
		dir = filepath.Join(dir, profileName)
	}
	return dir
}
func (c *Configuration) CacheDepIncludeDir(name, version, profileName string) string {
	return filepath.Join(c.CacheDepDir(name, version, profileName), "include")
}
func (c *Configuration) CacheDepLibDir(name, version, profileName string) string {
	return filepath.Join(c.CacheDepDir(name, version, profileName), "lib")
}

// BuildLibrary satisfies localbuild.Project: it always builds this
// configuration as a Library, for use as a dependency of another project.
func (c *Configuration) BuildLibrary(profileName string) error {
	bt := buildtype.Library
	_, err := c.Build(&bt, profileName)
	return err
}

//
// Build engine, spec.md §4.5
//

// BuildErrorKind distinguishes build engine failures.
type BuildErrorKind int

const (
	ErrInvalidProfile BuildErrorKind = iota
	ErrCouldNotDetectSourceFile
	ErrBuildTypeNeedsToBeSpecified
	ErrRequiredBuildTypeMissingSource
	ErrCacheFailed
	ErrTargetFailed
	ErrCompilerFailedToStart
	ErrCompilerFailedExitCode
	ErrCompilerKilled
	ErrPostBuildFailed
)

// BuildError reports a failure building a project.
type BuildError struct {
	Kind     BuildErrorKind
	Profile  string
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case ErrInvalidProfile:
		return fmt.Sprintf("unknown profile %q", e.Profile)
	case ErrCouldNotDetectSourceFile:
		return "could not detect a main/lib source file to determine the build type"
	case ErrBuildTypeNeedsToBeSpecified:
		return "both a binary and a library source file exist; --build-type must be specified"
	case ErrRequiredBuildTypeMissingSource:
		return "the requested build type has no matching source file"
	case ErrCacheFailed:
		return fmt.Sprintf("dependency caching failed: %v", e.Err)
	case ErrTargetFailed:
		return fmt.Sprintf("preparing target directory failed: %v", e.Err)
	case ErrCompilerFailedToStart:
		return fmt.Sprintf("could not start compiler: %v", e.Err)
	case ErrCompilerFailedExitCode:
		return fmt.Sprintf("compiler exited with code %d", e.ExitCode)
	case ErrCompilerKilled:
		return "compiler process was killed"
	case ErrPostBuildFailed:
		return fmt.Sprintf("post-build staging failed: %v", e.Err)
	default:
		return "build failed"
	}
}

func (e *BuildError) Unwrap() error { return e.Err }

// Build builds the project. buildType nil means auto-detect from the
// source files present in src/; profileName selects the profile to build
// with. It returns the resolved profile used.
func (c *Configuration) Build(buildType *buildtype.Type, profileName string) (profile.Profile, error) {
	prof, ok := c.Profiles[profileName]
	if !ok {
		return nil, &BuildError{Kind: ErrInvalidProfile, Profile: profileName}
	}

	resolvedType, err := c.resolveBuildType(buildType, prof)
	if err != nil {
		return nil, err
	}

	anyRecached, err := c.cacheDependencies(profileName)
	if err != nil {
		return nil, &BuildError{Kind: ErrCacheFailed, Err: err}
	}

	if !anyRecached {
		if up, err := c.targetIsUpToDate(profileName); err != nil {
			return nil, &BuildError{Kind: ErrTargetFailed, Err: err}
		} else if up {
			return prof, nil
		}
	}

	if err := c.prepareTargetDirs(profileName); err != nil {
		return nil, &BuildError{Kind: ErrTargetFailed, Err: err}
	}

	srcFile := filepath.Join(c.SrcDir(), resolvedType.SrcFilename()+"."+prof.SrcFileSuffix())
	artifactName := prof.ArtifactPrefix(resolvedType) + c.Name + "." + prof.ArtifactSuffix(resolvedType)
	targetFile := filepath.Join(c.TargetArtifactDir(profileName), artifactName)

	deps, err := c.dependencyArgs(profileName)
	if err != nil {
		return nil, &BuildError{Kind: ErrCacheFailed, Err: err}
	}

	args, err := prof.CompilerArguments(resolvedType, srcFile, targetFile, deps)
	if err != nil {
		return nil, &BuildError{Kind: ErrCompilerFailedToStart, Err: err}
	}

	cmd := exec.Command(prof.CompilerCommand(), args...)
	cmd.Dir = c.TargetArtifactDir(profileName)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if !exitErr.ProcessState.Exited() {
				return nil, &BuildError{Kind: ErrCompilerKilled, Err: err}
			}
			return nil, &BuildError{Kind: ErrCompilerFailedExitCode, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return nil, &BuildError{Kind: ErrCompilerFailedToStart, Err: err}
	}

	if err := c.stageArtifacts(profileName); err != nil {
		return nil, &BuildError{Kind: ErrPostBuildFailed, Err: err}
	}

	return prof, nil
}

func (c *Configuration) resolveBuildType(requested *buildtype.Type, prof profile.Profile) (buildtype.Type, error) {
	suffix := prof.SrcFileSuffix()
	mainPath := filepath.Join(c.SrcDir(), buildtype.Binary.SrcFilename()+"."+suffix)
	libPath := filepath.Join(c.SrcDir(), buildtype.Library.SrcFilename()+"."+suffix)
	hasMain := fileExists(mainPath)
	hasLib := fileExists(libPath)

	if requested != nil {
		if *requested == buildtype.Binary && !hasMain {
			return 0, &BuildError{Kind: ErrRequiredBuildTypeMissingSource}
		}
		if *requested == buildtype.Library && !hasLib {
			return 0, &BuildError{Kind: ErrRequiredBuildTypeMissingSource}
		}
		return *requested, nil
	}

	switch {
	case hasMain && hasLib:
		return 0, &BuildError{Kind: ErrBuildTypeNeedsToBeSpecified}
	case hasMain:
		return buildtype.Binary, nil
	case hasLib:
		return buildtype.Library, nil
	default:
		return 0, &BuildError{Kind: ErrCouldNotDetectSourceFile}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// cacheDependencies caches every stale dependency, logging a diagnostic
// fingerprint of each recached directory listing. It returns whether any
// dependency was actually recached.
func (c *Configuration) cacheDependencies(profileName string) (bool, error) {
	anyRecached := false
	for _, name := range c.DependencyOrder {
		dep := c.Dependencies[name]
		version, err := dep.CurrentVersion()
		if err != nil {
			return anyRecached, err
		}
		currentProfile, err := dep.CurrentProfile(profileName)
		if err != nil {
			return anyRecached, err
		}
		cacheDir := c.CacheDepDir(name, version, currentProfile)
		includeDir := c.CacheDepIncludeDir(name, version, currentProfile)
		libDir := c.CacheDepLibDir(name, version, currentProfile)

		needsRecaching := true
		if info, err := os.Stat(cacheDir); err == nil && info.IsDir() {
			var err error
			needsRecaching, err = dep.NeedsRecaching(profileName, cacheDir)
			if err != nil {
				return anyRecached, err
			}
		}
		if !needsRecaching {
			continue
		}

		anyRecached = true
		if err := os.MkdirAll(includeDir, 0o755); err != nil {
			return anyRecached, err
		}
		if err := os.MkdirAll(libDir, 0o755); err != nil {
			return anyRecached, err
		}
		if err := dep.Cache(profileName, includeDir, libDir); err != nil {
			return anyRecached, err
		}

		logger.Printf("recached dependency %q (fingerprint %s)", name, fingerprintDir(cacheDir))
	}
	return anyRecached, nil
}

// fingerprintDir hashes a directory's sorted entry-name listing so repeated
// runs can be compared without diffing file contents. It is diagnostic only
// and never drives a staleness decision.
func fingerprintDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "unavailable"
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	digest := xxhash.Sum64String(strings.Join(names, "\x00"))
	return fmt.Sprintf("%016x", digest)
}

func (c *Configuration) targetIsUpToDate(profileName string) (bool, error) {
	info, err := os.Stat(c.TargetDir(profileName))
	if err != nil || !info.IsDir() {
		return false, nil
	}
	targetMTime, err := fsx.LastModifiedRecursive(c.TargetDir(profileName))
	if err != nil {
		return false, err
	}
	configMTime, err := fsx.LastModifiedRecursive(c.ConfigPath())
	if err != nil {
		return false, err
	}
	srcMTime, err := fsx.LastModifiedRecursive(c.SrcDir())
	if err != nil {
		return false, err
	}
	newest := configMTime
	if srcMTime.After(newest) {
		newest = srcMTime
	}
	return !targetMTime.Before(newest), nil
}

func (c *Configuration) prepareTargetDirs(profileName string) error {
	if err := fsx.RemoveDirAll(c.TargetArtifactDir(profileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := fsx.RemoveDirAll(c.TargetIncludeDir(profileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(c.TargetArtifactDir(profileName), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(c.TargetIncludeDir(profileName), 0o755)
}

func (c *Configuration) dependencyArgs(profileName string) ([]profile.Dependency, error) {
	deps := make([]profile.Dependency, 0, len(c.DependencyOrder))
	for _, name := range c.DependencyOrder {
		dep := c.Dependencies[name]
		version, err := dep.CurrentVersion()
		if err != nil {
			return nil, err
		}
		currentProfile, err := dep.CurrentProfile(profileName)
		if err != nil {
			return nil, err
		}
		deps = append(deps, profile.Dependency{
			Name:       name,
			IncludeDir: c.CacheDepIncludeDir(name, version, currentProfile),
			LibDir:     c.CacheDepLibDir(name, version, currentProfile),
		})
	}
	return deps, nil
}

func isHeaderExt(ext string) bool {
	switch ext {
	case "h", "cuh", "hh", "H", "hp", "hxx", "hpp", "HPP", "h++", "tcc":
		return true
	default:
		return false
	}
}

func isObjectExt(ext string) bool {
	return ext == "obj"
}

// stageArtifacts copies this project's own headers into target/include,
// deletes intermediate object files from target/artifact, and copies every
// dependency's cached include/lib directories into the same target
// directories so a library built against this project links transitively.
func (c *Configuration) stageArtifacts(profileName string) error {
	if err := fsx.CopyDirAllFilterExt(c.SrcDir(), c.TargetIncludeDir(profileName), isHeaderExt); err != nil {
		return err
	}
	if err := fsx.RemoveDirAllFilterExt(c.TargetArtifactDir(profileName), isObjectExt); err != nil {
		return err
	}
	for _, name := range c.DependencyOrder {
		dep := c.Dependencies[name]
		version, err := dep.CurrentVersion()
		if err != nil {
			return err
		}
		currentProfile, err := dep.CurrentProfile(profileName)
		if err != nil {
			return err
		}
		if err := fsx.CopyDirAll(c.CacheDepIncludeDir(name, version, currentProfile), c.TargetIncludeDir(profileName)); err != nil {
			return err
		}
		if err := fsx.CopyDirAll(c.CacheDepLibDir(name, version, currentProfile), c.TargetArtifactDir(profileName)); err != nil {
			return err
		}
	}
	return nil
}

//
// Run engine, spec.md §4.6
//

// RunErrorKind distinguishes run engine failures.
type RunErrorKind int

const (
	ErrRunBuildFailed RunErrorKind = iota
	ErrRunFailedToStart
	ErrRunKilled
)

// RunError reports a failure running a built project.
type RunError struct {
	Kind RunErrorKind
	Err  error
}

func (e *RunError) Error() string {
	switch e.Kind {
	case ErrRunBuildFailed:
		return fmt.Sprintf("build before run failed: %v", e.Err)
	case ErrRunFailedToStart:
		return fmt.Sprintf("could not start run command: %v", e.Err)
	case ErrRunKilled:
		return "run command was killed"
	default:
		return "run failed"
	}
}

func (e *RunError) Unwrap() error { return e.Err }

// Run builds the project as a Binary and executes its run specification,
// substituting "{}" in the command and every argument with the built
// binary's path, then appending additionalArgs. It returns the child
// process's exit code.
func (c *Configuration) Run(profileName string, additionalArgs []string) (int, error) {
	binaryType := buildtype.Binary
	prof, err := c.Build(&binaryType, profileName)
	if err != nil {
		return 0, &RunError{Kind: ErrRunBuildFailed, Err: err}
	}

	artifactName := prof.ArtifactPrefix(binaryType) + c.Name + "." + prof.ArtifactSuffix(binaryType)
	binaryPath := filepath.Join(c.TargetArtifactDir(profileName), artifactName)

	command := strings.ReplaceAll(c.Run.Command, "{}", binaryPath)
	args := make([]string, 0, len(c.Run.Arguments)+len(additionalArgs))
	for _, arg := range c.Run.Arguments {
		args = append(args, strings.ReplaceAll(arg, "{}", binaryPath))
	}
	args = append(args, additionalArgs...)

	cmd := exec.Command(command, args...)
	cmd.Dir = c.ProjectDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if !exitErr.ProcessState.Exited() {
				return 0, &RunError{Kind: ErrRunKilled, Err: err}
			}
			return exitErr.ExitCode(), nil
		}
		return 0, &RunError{Kind: ErrRunFailedToStart, Err: err}
	}
	return 0, nil
}
