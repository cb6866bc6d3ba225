// Package manifest reads the per-problem soma.toml declaration and resolves it
// into a build description whose paths and permissions are fully determined.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/pelletier/go-toml"
	"go.uber.org/multierr"
)

// FileName is the manifest file expected at the root of every problem directory.
const FileName = "soma.toml"

const (
	// ExecutableMode is applied to executable entries without explicit permissions.
	ExecutableMode os.FileMode = 0o550

	// ReadOnlyMode is applied to read-only entries without explicit permissions.
	ReadOnlyMode os.FileMode = 0o440
)

// Standard errors
var (
	// ErrInvalidManifest is returned when an entry in the manifest is malformed or unsafe.
	ErrInvalidManifest = errors.New("some entry in the manifest is invalid")

	// ErrFileNameNotFound is returned when a file name cannot be derived from a path.
	ErrFileNameNotFound = errors.New("failed to detect filename from the path")

	// ErrInvalidUnicode is returned when a path contains characters that are not valid UTF-8.
	ErrInvalidUnicode = errors.New("the specified file's path contains unsupported characters")
)

// FileEntry is one file declared by the manifest.
type FileEntry struct {
	Path        string `toml:"path"`
	Public      bool   `toml:"public"`
	TargetPath  string `toml:"target_path"`
	Permissions string `toml:"permissions"`
}

// Binary holds the launch configuration of a binary problem.
type Binary struct {
	OS         string      `toml:"os"`
	Cmd        string      `toml:"cmd"`
	Executable []FileEntry `toml:"executable"`
	ReadOnly   []FileEntry `toml:"readonly"`
}

// Manifest is the declarative description of a problem as written by its author.
type Manifest struct {
	Name    string `toml:"name"`
	WorkDir string `toml:"work_dir"`
	Binary  Binary `toml:"binary"`
}

// SolidFileEntry is a FileEntry with its destination and mode resolved.
type SolidFileEntry struct {
	Path        string
	TargetPath  string
	Permissions os.FileMode
	Public      bool
}

// Mode formats the permissions the way chmod expects them.
func (e SolidFileEntry) Mode() string {
	return fmt.Sprintf("%o", uint32(e.Permissions))
}

// SolidBinary is the resolved form of Binary.
type SolidBinary struct {
	OS          string
	Cmd         string
	FileEntries []SolidFileEntry
}

// SolidManifest is a manifest whose work directory and target paths are absolute.
type SolidManifest struct {
	Name    string
	WorkDir string
	Binary  SolidBinary
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest content.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data)).Strict(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	switch {
	case m.Name == "":
		return nil, fmt.Errorf("%w: missing name", ErrInvalidManifest)
	case m.Binary.OS == "":
		return nil, fmt.Errorf("%w: missing binary.os", ErrInvalidManifest)
	case m.Binary.Cmd == "":
		return nil, fmt.Errorf("%w: missing binary.cmd", ErrInvalidManifest)
	}

	for _, entry := range m.Files() {
		if !utf8.ValidString(entry.Path) {
			return nil, ErrInvalidUnicode
		}
		if !filepath.IsLocal(filepath.FromSlash(entry.Path)) {
			return nil, fmt.Errorf("%w: %q escapes the problem directory", ErrInvalidManifest, entry.Path)
		}
	}

	return &m, nil
}

// Files returns executable entries followed by read-only entries.
func (m *Manifest) Files() []FileEntry {
	files := make([]FileEntry, 0, len(m.Binary.Executable)+len(m.Binary.ReadOnly))
	files = append(files, m.Binary.Executable...)
	return append(files, m.Binary.ReadOnly...)
}

// PublicFiles returns the entries an operator is allowed to fetch.
func (m *Manifest) PublicFiles() []FileEntry {
	var public []FileEntry
	for _, entry := range m.Files() {
		if entry.Public {
			public = append(public, entry)
		}
	}
	return public
}

// Solidify resolves defaults and validates that every destination is absolute.
// All offending entries are reported, not only the first one.
func (m *Manifest) Solidify() (*SolidManifest, error) {
	workDir := m.WorkDir
	if workDir == "" {
		workDir = "/home/" + m.Name
	}

	var errs error
	if !path.IsAbs(workDir) {
		errs = multierr.Append(errs, fmt.Errorf("%w: work_dir %q is not absolute", ErrInvalidManifest, workDir))
	}

	entries := make([]SolidFileEntry, 0, len(m.Binary.Executable)+len(m.Binary.ReadOnly))
	resolve := func(files []FileEntry, mode os.FileMode) {
		for _, file := range files {
			entry, err := file.solidify(workDir, mode)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			entries = append(entries, entry)
		}
	}
	resolve(m.Binary.Executable, ExecutableMode)
	resolve(m.Binary.ReadOnly, ReadOnlyMode)

	if errs != nil {
		return nil, errs
	}

	return &SolidManifest{
		Name:    m.Name,
		WorkDir: workDir,
		Binary: SolidBinary{
			OS:          m.Binary.OS,
			Cmd:         m.Binary.Cmd,
			FileEntries: entries,
		},
	}, nil
}

func (f FileEntry) solidify(workDir string, mode os.FileMode) (SolidFileEntry, error) {
	target := f.TargetPath
	if target == "" {
		name := path.Base(filepath.ToSlash(f.Path))
		if name == "." || name == "/" || name == ".." {
			return SolidFileEntry{}, fmt.Errorf("%q: %w", f.Path, ErrFileNameNotFound)
		}
		target = path.Join(workDir, name)
	}
	if !utf8.ValidString(target) {
		return SolidFileEntry{}, fmt.Errorf("%q: %w", target, ErrInvalidUnicode)
	}
	if !path.IsAbs(target) {
		return SolidFileEntry{}, fmt.Errorf("%w: target path %q of %q is not absolute", ErrInvalidManifest, target, f.Path)
	}

	if f.Permissions != "" {
		parsed, err := ParsePermissions(f.Permissions)
		if err != nil {
			return SolidFileEntry{}, err
		}
		mode = parsed
	}

	return SolidFileEntry{
		Path:        f.Path,
		TargetPath:  path.Clean(target),
		Permissions: mode,
		Public:      f.Public,
	}, nil
}

// ParsePermissions parses an octal permission string between 0 and 0o777.
func ParsePermissions(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 16)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("%w: permissions %q is not an octal mode up to 777", ErrInvalidManifest, s)
	}
	return os.FileMode(v), nil
}
