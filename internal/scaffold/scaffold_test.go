package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
)

func TestNewBinaryProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "myproj")
	require.NoError(t, New(dir, buildtype.Binary, "myproj"))

	config, err := os.ReadFile(filepath.Join(dir, "build++.lsd"))
	require.NoError(t, err)
	assert.Contains(t, string(config), "name myproj")
	assert.Contains(t, string(config), "version 0.1.0")

	_, err = os.Stat(filepath.Join(dir, "src", "main.cpp"))
	assert.NoError(t, err)
}

func TestNewLibraryProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mylib")
	require.NoError(t, New(dir, buildtype.Library, "mylib"))

	_, err := os.Stat(filepath.Join(dir, "src", "lib.cpp"))
	assert.NoError(t, err)
}

func TestNewRefusesNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o644))

	err := New(dir, buildtype.Binary, "proj")
	require.ErrorIs(t, err, ErrProjectDirNotEmpty)
}
