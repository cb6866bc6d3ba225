package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

const simpleBof = `
name = "simple-bof"

[binary]
os = "ubuntu:18.04"
cmd = "./simple-bof"

[[binary.executable]]
path = "simple-bof"
public = true

[[binary.readonly]]
path = "flag"

[[binary.readonly]]
path = "bin/libc.so.6"
target_path = "/lib/libc.so.6"
permissions = "444"
public = true
`

func TestParseAndSolidify(t *testing.T) {
	m, err := Parse([]byte(simpleBof))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Name != "simple-bof" {
		t.Errorf("Name=%q, want %q", m.Name, "simple-bof")
	}

	solid, err := m.Solidify()
	if err != nil {
		t.Fatalf("Solidify: %v", err)
	}
	if solid.WorkDir != "/home/simple-bof" {
		t.Errorf("WorkDir=%q, want %q", solid.WorkDir, "/home/simple-bof")
	}

	want := []SolidFileEntry{
		{Path: "simple-bof", TargetPath: "/home/simple-bof/simple-bof", Permissions: 0o550, Public: true},
		{Path: "flag", TargetPath: "/home/simple-bof/flag", Permissions: 0o440},
		{Path: "bin/libc.so.6", TargetPath: "/lib/libc.so.6", Permissions: 0o444, Public: true},
	}
	if len(solid.Binary.FileEntries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(solid.Binary.FileEntries), len(want))
	}
	for i, got := range solid.Binary.FileEntries {
		if got != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got, want[i])
		}
	}
	if got := solid.Binary.FileEntries[0].Mode(); got != "550" {
		t.Errorf("Mode()=%q, want %q", got, "550")
	}
}

func TestPublicFiles(t *testing.T) {
	m, err := Parse([]byte(simpleBof))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	public := m.PublicFiles()
	if len(public) != 2 {
		t.Fatalf("got %d public files, want 2", len(public))
	}
	if public[0].Path != "simple-bof" || public[1].Path != "bin/libc.so.6" {
		t.Errorf("public files = %+v", public)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", "[binary]\nos = \"ubuntu\"\ncmd = \"x\"\n"},
		{"missing binary", "name = \"x\"\n"},
		{"wrong type", "name = 5\n[binary]\nos = \"ubuntu\"\ncmd = \"x\"\n"},
		{"unknown key", "name = \"x\"\nflavour = \"y\"\n[binary]\nos = \"ubuntu\"\ncmd = \"x\"\n"},
		{"escaping path", "name = \"x\"\n[binary]\nos = \"ubuntu\"\ncmd = \"x\"\n[[binary.readonly]]\npath = \"../secret\"\n"},
		{"not toml", "name = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("Parse() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestSolidifyReportsEveryRelativeTarget(t *testing.T) {
	m := &Manifest{
		Name: "rel",
		Binary: Binary{
			OS:  "ubuntu",
			Cmd: "./rel",
			Executable: []FileEntry{
				{Path: "rel", TargetPath: "relative/rel"},
				{Path: "ok"},
			},
			ReadOnly: []FileEntry{
				{Path: "flag", TargetPath: "flag"},
			},
		},
	}

	_, err := m.Solidify()
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("Solidify() error = %v, want ErrInvalidManifest", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("got %d errors, want 2: %v", n, err)
	}
}

func TestSolidifyRelativeWorkDir(t *testing.T) {
	m := &Manifest{
		Name:    "rel",
		WorkDir: "home/rel",
		Binary: Binary{
			OS:         "ubuntu",
			Cmd:        "./rel",
			Executable: []FileEntry{{Path: "rel"}},
		},
	}

	_, err := m.Solidify()
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("Solidify() error = %v, want ErrInvalidManifest", err)
	}
	// The work dir and the entry derived from it are both reported.
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("got %d errors, want 2: %v", n, err)
	}
}

func TestSolidifyFileNameNotFound(t *testing.T) {
	m := &Manifest{
		Name: "dot",
		Binary: Binary{
			OS:       "ubuntu",
			Cmd:      "./dot",
			ReadOnly: []FileEntry{{Path: "."}},
		},
	}

	_, err := m.Solidify()
	if !errors.Is(err, ErrFileNameNotFound) {
		t.Errorf("Solidify() error = %v, want ErrFileNameNotFound", err)
	}
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{"550", 0o550, false},
		{"440", 0o440, false},
		{"777", 0o777, false},
		{"0", 0, false},
		{"1000", 0, true},
		{"789", 0, true},
		{"rwx", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePermissions(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePermissions(%q): err=%v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePermissions(%q)=%o, want %o", tt.in, got, tt.want)
		}
	}
}

func TestSolidifyRejectsBadPermissions(t *testing.T) {
	m := &Manifest{
		Name: "perm",
		Binary: Binary{
			OS:         "ubuntu",
			Cmd:        "./perm",
			Executable: []FileEntry{{Path: "perm", Permissions: "1777"}},
		},
	}
	if _, err := m.Solidify(); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("Solidify() error = %v, want ErrInvalidManifest", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(simpleBof), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Files()) != 3 {
		t.Errorf("Files()=%d, want 3", len(m.Files()))
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
