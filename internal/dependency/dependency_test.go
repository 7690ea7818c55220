package dependency_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillsemyonkin/buildpp/internal/dependency"
	"github.com/kirillsemyonkin/buildpp/internal/dependency/localbuild"
	_ "github.com/kirillsemyonkin/buildpp/internal/dependency/localpair"
	"github.com/kirillsemyonkin/buildpp/internal/lsd"
)

func TestParseAllLocalPairAndUnknownKind(t *testing.T) {
	localbuild.Loader = func(dir string) (localbuild.Project, error) {
		t.Fatalf("loader should not be called for this table")
		return nil, nil
	}

	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "include"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "lib"), 0o755))

	doc := "good.is local-pair\ngood.include include\ngood.library lib\nbad.is nonsense\n"
	node, err := lsd.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	table, ok := node.ToLevel()
	require.True(t, ok)

	_, err = dependency.ParseAll(table, projectDir)
	require.Error(t, err)

	onlyGood := lsd.NewLevel()
	onlyGood.Set("good", table.Get("good"))
	deps, err := dependency.ParseAll(onlyGood, projectDir)
	require.NoError(t, err)
	assert.Contains(t, deps, "good")
}
