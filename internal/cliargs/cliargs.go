// Package cliargs implements the CLI's flag grammar: a subcommand name
// followed by flags in any of the `--flag`, `-flag`, or `/flag` spellings
// (case-folded), each accumulating the values that follow it until the next
// flag or the literal `--`/`-`/`/` that switches to passthrough arguments.
package cliargs

import (
	"fmt"
	"strings"
)

// ErrorKind distinguishes CLI argument parsing failures.
type ErrorKind int

const (
	ErrNoSubcommand ErrorKind = iota
	ErrRepeatedFlag
	ErrValueBeforeAnyFlag
)

// ParseError reports a failure parsing the raw argument vector.
type ParseError struct {
	Kind ErrorKind
	Flag string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrNoSubcommand:
		return "no subcommand given"
	case ErrRepeatedFlag:
		return fmt.Sprintf("flag %q was given more than once", e.Flag)
	case ErrValueBeforeAnyFlag:
		return "unexpected value before any flag"
	default:
		return "invalid arguments"
	}
}

// Args is the parsed form of a command line: a subcommand name, a table of
// flags each mapped to the list of values that followed it, and the raw
// tokens after the pre/post-`--` split switched to passthrough.
type Args struct {
	Subcommand  string
	Flags       map[string][]string
	Passthrough []string
}

func stripPrefix(token string) (string, bool) {
	for _, prefix := range []string{"--", "-", "/"} {
		if strings.HasPrefix(token, prefix) {
			return strings.ToLower(token[len(prefix):]), true
		}
	}
	return "", false
}

func isSplitToken(token string) bool {
	return token == "--" || token == "-" || token == "/"
}

// Split partitions a raw argv (already without argv[0]) into the arguments
// before and after the first bare `--`, `-`, or `/` token. Empty arguments
// are skipped entirely, matching the original CLI's tolerance for stray
// empty strings from shell expansion.
func Split(argv []string) (pre, post []string) {
	switched := false
	for _, arg := range argv {
		if arg == "" {
			continue
		}
		if !switched && isSplitToken(arg) {
			switched = true
			continue
		}
		if switched {
			post = append(post, arg)
		} else {
			pre = append(pre, arg)
		}
	}
	return pre, post
}

// Parse interprets pre as "<subcommand> [flag [values...]]...". The first
// token is always the subcommand name, stripped of any --/-/ prefix and
// lower-cased exactly like a flag name would be. post becomes Passthrough
// verbatim.
func Parse(pre, post []string) (*Args, error) {
	if len(pre) == 0 {
		return nil, &ParseError{Kind: ErrNoSubcommand}
	}

	subcommand, _ := stripPrefix(pre[0])
	if subcommand == "" {
		subcommand = strings.ToLower(pre[0])
	}

	flags := map[string][]string{}
	var lastFlag string
	haveFlag := false

	for _, token := range pre[1:] {
		if name, ok := stripPrefix(token); ok {
			if _, exists := flags[name]; exists {
				return nil, &ParseError{Kind: ErrRepeatedFlag, Flag: name}
			}
			flags[name] = nil
			lastFlag = name
			haveFlag = true
			continue
		}
		if !haveFlag {
			return nil, &ParseError{Kind: ErrValueBeforeAnyFlag}
		}
		flags[lastFlag] = append(flags[lastFlag], token)
	}

	return &Args{Subcommand: subcommand, Flags: flags, Passthrough: post}, nil
}
