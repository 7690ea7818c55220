package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kirillsemyonkin/buildpp/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMinimalProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"), "name hello\nversion 0.1.0\nprofile.default.is msvc\n")
	writeFile(t, filepath.Join(dir, "src", "main.cpp"), "int main() { return 0; }\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hello", cfg.Name)
	assert.Equal(t, "0.1.0", cfg.Version())
	assert.Contains(t, cfg.Profiles, "default")
	assert.Equal(t, "{}", cfg.Run.Command)
}

func TestLoadMissingNameFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"), "version 0.1.0\n")
	_, err := config.Load(dir)
	require.Error(t, err)
}

func TestLoadRunSpecScalarShape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"), "name hello\nversion 0.1.0\nrun \"{} --flag\"\n")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "{}", cfg.Run.Command)
	assert.Equal(t, []string{"--flag"}, cfg.Run.Arguments)
}

func TestLoadRunSpecLevelShape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"),
		"name hello\nversion 0.1.0\nrun.command {}\nrun.arguments [\n  --verbose\n]\n")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "{}", cfg.Run.Command)
	assert.Equal(t, []string{"--verbose"}, cfg.Run.Arguments)
}

func TestLoadLocalPairDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"),
		"name hello\nversion 0.1.0\ndependency.foo.is local-pair\ndependency.foo.include vendor/include\ndependency.foo.library vendor/lib\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "include"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "lib"), 0o755))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.Dependencies, "foo")
	assert.Equal(t, []string{"foo"}, cfg.DependencyOrder)
}

func TestBuildWithFakeCompiler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler script is a shell script")
	}
	dir := t.TempDir()
	compiler := filepath.Join(dir, "fake-cl.sh")
	writeFile(t, compiler, "#!/bin/sh\nfor arg; do\n  case \"$arg\" in\n    /OUT:*) touch \"${arg#/OUT:}\" ;;\n  esac\ndone\n")
	require.NoError(t, os.Chmod(compiler, 0o755))

	writeFile(t, filepath.Join(dir, "build++.lsd"),
		"name hello\nversion 0.1.0\nprofile.default.is msvc\nprofile.default.compiler_path "+compiler+"\n")
	writeFile(t, filepath.Join(dir, "src", "main.cpp"), "int main() { return 0; }\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	prof, err := cfg.Build(nil, "default")
	require.NoError(t, err)
	assert.NotNil(t, prof)

	entries, err := os.ReadDir(cfg.TargetArtifactDir("default"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestBuildUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build++.lsd"), "name hello\nversion 0.1.0\n")
	writeFile(t, filepath.Join(dir, "src", "main.cpp"), "int main() { return 0; }\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	_, err = cfg.Build(nil, "ghost")
	require.Error(t, err)
}
