// Package scaffold implements the `new` subcommand: writing a fresh
// build++.lsd and a hello-world source file into a new project directory.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillsemyonkin/buildpp/internal/buildtype"
)

// ErrProjectDirNotEmpty is returned when the target directory already
// exists and contains files.
var ErrProjectDirNotEmpty = errors.New("scaffold: project directory already exists and has files")

const initialVersion = "0.1.0"

// New creates dir/build++.lsd and dir/src/<main|lib>.cpp for a fresh
// project named name, refusing to touch a dir that already has contents.
func New(dir string, bt buildtype.Type, name string) error {
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		return ErrProjectDirNotEmpty
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return err
	}

	configContent := fmt.Sprintf("name %s\nversion %s\n", name, initialVersion)
	if err := os.WriteFile(filepath.Join(dir, "build++.lsd"), []byte(configContent), 0o644); err != nil {
		return err
	}

	srcPath := filepath.Join(dir, "src", bt.SrcFilename()+".cpp")
	return os.WriteFile(srcPath, []byte(helloWorldBody(bt)), 0o644)
}

func helloWorldBody(bt buildtype.Type) string {
	if bt == buildtype.Library {
		return "int hello() {\n    return 42;\n}\n"
	}
	return "#include <cstdio>\n\nint main() {\n    std::printf(\"Hello, world!\\n\");\n    return 0;\n}\n"
}
