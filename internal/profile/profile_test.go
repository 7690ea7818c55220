package profile_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillsemyonkin/buildpp/internal/lsd"
	"github.com/kirillsemyonkin/buildpp/internal/profile"
	_ "github.com/kirillsemyonkin/buildpp/internal/profile/msvc"
	_ "github.com/kirillsemyonkin/buildpp/internal/profile/nvcc"
)

func parseTable(t *testing.T, doc string) *lsd.Level {
	t.Helper()
	node, err := lsd.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	lvl, ok := node.ToLevel()
	require.True(t, ok)
	return lvl
}

func TestParseAllResolvesIsAndInherit(t *testing.T) {
	table := parseTable(t, "default.is msvc\ndefault.standard c++17\nrelease.inherit default\nrelease.optimize speed\n")

	profiles, err := profile.ParseAll(table)
	require.NoError(t, err)
	assert.Contains(t, profiles, "default")
	assert.Contains(t, profiles, "release")
}

func TestParseAllUnknownBackend(t *testing.T) {
	table := parseTable(t, "default.is msvcc\n")
	_, err := profile.ParseAll(table)
	require.Error(t, err)
}

func TestParseAllUnknownInheritTarget(t *testing.T) {
	table := parseTable(t, "release.inherit ghost\n")
	_, err := profile.ParseAll(table)
	require.Error(t, err)
}
