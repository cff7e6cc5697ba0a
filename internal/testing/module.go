package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// TestModulePath is the module path WriteModule declares.
const TestModulePath = "example.com/demo"

// WriteModule lays out a throwaway Go module under t.TempDir() and returns
// its root. files maps slash-separated relative paths to contents; a go.mod
// is added unless files has one.
func WriteModule(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	if _, ok := files["go.mod"]; !ok {
		writeFile(t, root, "go.mod", "module "+TestModulePath+"\n\ngo 1.21\n")
	}
	for name, content := range files {
		writeFile(t, root, name, content)
	}
	return root
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
