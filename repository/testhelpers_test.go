package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func problemManifest(name string) string {
	return fmt.Sprintf(`name = %q

[binary]
os = "ubuntu:18.04"
cmd = "./%s"

[[binary.executable]]
path = "%s"
public = true

[[binary.readonly]]
path = "flag"
`, name, name, name)
}

// writeFiles creates files (relative path -> content) under root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// singleProblemRepo creates a repository whose root is the problem name.
func singleProblemRepo(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"soma.toml": problemManifest(name),
		name:        "\x7fELF",
		"flag":      "flag{test}",
	})
	return dir
}

// listRepo creates a repository declaring one sub-directory per problem name.
func listRepo(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	list := "problems = ["
	for i, name := range names {
		if i > 0 {
			list += ", "
		}
		list += fmt.Sprintf("%q", name)
		writeFiles(t, dir, map[string]string{
			name + "/soma.toml": problemManifest(name),
			name + "/" + name:   "\x7fELF",
			name + "/flag":      "flag{" + name + "}",
		})
	}
	writeFiles(t, dir, map[string]string{"soma-list.toml": list + "]\n"})
	return dir
}

func newTestManager(t *testing.T) (*Manager, *SQLiteIndexStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repositories")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := OpenSQLiteIndexStore(filepath.Join(root, "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteIndexStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := NewManager(root, store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store, root
}
