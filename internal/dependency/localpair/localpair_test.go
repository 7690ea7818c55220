package localpair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillsemyonkin/buildpp/internal/lsd"
)

func buildNode(t *testing.T, fields map[string]string) *lsd.Node {
	t.Helper()
	level := lsd.NewLevel()
	for k, v := range fields {
		level.Set(k, lsd.ValueNode(v))
	}
	return lsd.LevelNode(level)
}

func TestNewRequiresExistingDirs(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "include"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "lib"), 0o755))

	dep, err := New(buildNode(t, map[string]string{"include": "include", "library": "lib"}), projectDir)
	require.NoError(t, err)

	d := dep.(*Dependency)
	assert.Equal(t, filepath.Join(projectDir, "include"), d.IncludeDir)
	assert.Equal(t, filepath.Join(projectDir, "lib"), d.LibDir)
}

func TestNewMissingDirFails(t *testing.T) {
	projectDir := t.TempDir()
	_, err := New(buildNode(t, map[string]string{"include": "nope", "library": "nope2"}), projectDir)
	require.Error(t, err)
}

func TestVersionAndProfileAreEmpty(t *testing.T) {
	d := &Dependency{}
	v, err := d.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, "", v)

	p, err := d.CurrentProfile("anything")
	require.NoError(t, err)
	assert.Equal(t, "", p)
}

func TestCacheCopiesBothDirs(t *testing.T) {
	include := t.TempDir()
	lib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(include, "a.h"), []byte("h"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "a.lib"), []byte("l"), 0o644))

	d := &Dependency{IncludeDir: include, LibDir: lib}
	dstInclude := filepath.Join(t.TempDir(), "out-include")
	dstLib := filepath.Join(t.TempDir(), "out-lib")
	require.NoError(t, d.Cache("ignored", dstInclude, dstLib))

	_, err := os.Stat(filepath.Join(dstInclude, "a.h"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dstLib, "a.lib"))
	assert.NoError(t, err)
}
