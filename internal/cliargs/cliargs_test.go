package cliargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPreAndPostDashDash(t *testing.T) {
	pre, post := Split([]string{"build", "--profile", "release", "--", "--extra", "arg"})
	assert.Equal(t, []string{"build", "--profile", "release"}, pre)
	assert.Equal(t, []string{"--extra", "arg"}, post)
}

func TestSplitSkipsEmptyArgs(t *testing.T) {
	pre, post := Split([]string{"build", "", "--profile", ""})
	assert.Equal(t, []string{"build", "--profile"}, pre)
	assert.Empty(t, post)
}

func TestSplitAcceptsSlashAndSingleDashAsSeparator(t *testing.T) {
	_, post := Split([]string{"run", "/", "x"})
	assert.Equal(t, []string{"x"}, post)

	_, post = Split([]string{"run", "-", "y"})
	assert.Equal(t, []string{"y"}, post)
}

func TestParseBasic(t *testing.T) {
	pre, post := Split([]string{"BUILD", "--Profile", "release", "--verbose"})
	args, err := Parse(pre, post)
	require.NoError(t, err)
	assert.Equal(t, "build", args.Subcommand)
	assert.Equal(t, []string{"release"}, args.Flags["profile"])
	assert.Contains(t, args.Flags, "verbose")
	assert.Empty(t, args.Flags["verbose"])
}

func TestParseInterchangeablePrefixes(t *testing.T) {
	pre, _ := Split([]string{"new", "-name", "foo", "/build-type", "binary"})
	args, err := Parse(pre, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, args.Flags["name"])
	assert.Equal(t, []string{"binary"}, args.Flags["build-type"])
}

func TestParseRepeatedFlagIsError(t *testing.T) {
	pre, _ := Split([]string{"build", "--profile", "a", "--profile", "b"})
	_, err := Parse(pre, nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrRepeatedFlag, pe.Kind)
}

func TestParseValueBeforeAnyFlagIsError(t *testing.T) {
	pre, _ := Split([]string{"build", "release"})
	_, err := Parse(pre, nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrValueBeforeAnyFlag, pe.Kind)
}

func TestParseNoSubcommand(t *testing.T) {
	_, err := Parse(nil, nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrNoSubcommand, pe.Kind)
}
