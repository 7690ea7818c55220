// Command buildpp is the build++ CLI: build, run, and scaffold native
// C/C++/CUDA projects described by a build++.lsd file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
	"github.com/kirillsemyonkin/buildpp/internal/cliargs"
	"github.com/kirillsemyonkin/buildpp/internal/config"
	"github.com/kirillsemyonkin/buildpp/internal/profile"
	"github.com/kirillsemyonkin/buildpp/internal/scaffold"
	"github.com/kirillsemyonkin/buildpp/internal/suggest"
	"github.com/kirillsemyonkin/buildpp/internal/version"
)

// Version is the build++ CLI's own version, re-exported at package scope.
var Version = version.Version

const usage = `build++ ` + version.Version + ` - a build tool for C/C++/CUDA

Usage:
  build++ build [--build-type binary|library] [--profile name]
  build++ run [--profile name] [-- args passed to the program]
  build++ new --build-type binary|library --name project-name
  build++ version
  build++ help
`

var knownSubcommands = []string{"build", "run", "new", "version", "help"}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	pre, post := cliargs.Split(argv)
	args, err := cliargs.Parse(pre, post)
	if err != nil {
		if pe, ok := err.(*cliargs.ParseError); ok && pe.Kind == cliargs.ErrNoSubcommand {
			fmt.Print(usage)
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	switch args.Subcommand {
	case "help":
		fmt.Print(usage)
		return 0
	case "version":
		fmt.Println(version.Info())
		return 0
	case "build":
		return runBuild(args)
	case "run":
		return runRun(args)
	case "new":
		return runNew(args)
	default:
		best, _ := suggest.Closest(args.Subcommand, knownSubcommands)
		fmt.Fprintf(os.Stderr, "unknown subcommand %q (did you mean %q?)\n", args.Subcommand, best)
		return 2
	}
}

// singleValue requires that flag, if present, was given exactly one value.
func singleValue(flags map[string][]string, name string) (string, bool, error) {
	values, ok := flags[name]
	if !ok {
		return "", false, nil
	}
	if len(values) != 1 {
		return "", false, fmt.Errorf("--%s requires exactly one value", name)
	}
	return values[0], true, nil
}

func requireSingleValue(flags map[string][]string, name string) (string, error) {
	value, ok, err := singleValue(flags, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("--%s is required", name)
	}
	return value, nil
}

func cwd() (string, error) { return os.Getwd() }

func runBuild(args *cliargs.Args) int {
	dir, err := cwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var bt *buildtype.Type
	if v, ok, err := singleValue(args.Flags, "build-type"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	} else if ok {
		parsed, ok := buildtype.Parse(v)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown build type %q\n", v)
			return 2
		}
		bt = &parsed
	}

	profileName := profile.DefaultProfile
	if v, ok, err := singleValue(args.Flags, "profile"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	} else if ok {
		profileName = v
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if _, err := cfg.Build(bt, profileName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runRun(args *cliargs.Args) int {
	dir, err := cwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	profileName := profile.DefaultProfile
	if v, ok, err := singleValue(args.Flags, "profile"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	} else if ok {
		profileName = v
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	exitCode, err := cfg.Run(profileName, args.Passthrough)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

func runNew(args *cliargs.Args) int {
	dir, err := cwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	btValue, err := requireSingleValue(args.Flags, "build-type")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	bt, ok := buildtype.Parse(btValue)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown build type %q\n", btValue)
		return 2
	}

	name, err := requireSingleValue(args.Flags, "name")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	projectDir := filepath.Join(dir, name)
	if err := scaffold.New(projectDir, bt, name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
