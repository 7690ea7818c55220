package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestRunNoSubcommandPrintsUsage(t *testing.T) {
	assert.Equal(t, 0, run(nil))
}

func TestRunUnknownSubcommand(t *testing.T) {
	assert.Equal(t, 2, run([]string{"frobnicate"}))
}

func TestRunVersion(t *testing.T) {
	assert.Equal(t, 0, run([]string{"version"}))
}

func TestRunNewScaffoldsProject(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	code := run([]string{"new", "--build-type", "binary", "--name", "demo"})
	assert.Equal(t, 0, code)

	_, err := os.Stat(filepath.Join(dir, "demo", "build++.lsd"))
	assert.NoError(t, err)
}

func TestRunNewMissingRequiredFlag(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	code := run([]string{"new", "--build-type", "binary"})
	assert.Equal(t, 2, code)
}

func TestRunBuildMissingConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	code := run([]string{"build"})
	assert.Equal(t, 1, code)
}
