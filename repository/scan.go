package repository

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/PLUS-POSTECH/soma/manifest"
)

// ListFileName declares the problems of a multi-problem repository.
const ListFileName = "soma-list.toml"

type problemList struct {
	Problems []string `toml:"problems"`
}

// ScanProblems reads the problems found in the repository checked out at root.
// A repository either has a soma.toml at its root or a soma-list.toml naming
// the sub-directories that hold one.
func ScanProblems(root string) ([]ProblemIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(root, ListFileName))
	if errors.Is(err, os.ErrNotExist) {
		entry, err := readProblem(root, ".")
		if err != nil {
			return nil, err
		}
		return []ProblemIndexEntry{entry}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ListFileName, err)
	}

	var list problemList
	if err := toml.NewDecoder(bytes.NewReader(data)).Strict(true).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProblemList, err)
	}
	if err := checkProblemList(root, list.Problems); err != nil {
		return nil, err
	}

	entries := make([]ProblemIndexEntry, 0, len(list.Problems))
	names := make(map[Name]bool, len(list.Problems))
	for _, rel := range list.Problems {
		entry, err := readProblem(root, rel)
		if err != nil {
			return nil, err
		}
		if names[entry.Name] {
			return nil, fmt.Errorf("%w: problem name %q is declared twice", ErrInvalidProblemList, entry.Name)
		}
		names[entry.Name] = true
		entries = append(entries, entry)
	}
	return entries, nil
}

// checkProblemList verifies every entry resolves to a distinct directory inside root.
func checkProblemList(root string, problems []string) error {
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}

	seen := make(map[string]string, len(problems))
	for _, rel := range problems {
		resolved, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("%w: %q is unreachable", ErrInvalidProblemList, rel)
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %q is not a directory", ErrInvalidProblemList, rel)
		}
		inside, err := filepath.Rel(canonicalRoot, resolved)
		if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %q is outside the repository", ErrInvalidProblemList, rel)
		}
		if prev, ok := seen[resolved]; ok {
			return fmt.Errorf("%w: %q and %q are the same directory", ErrInvalidProblemList, prev, rel)
		}
		seen[resolved] = rel
	}
	return nil
}

func readProblem(root, rel string) (ProblemIndexEntry, error) {
	manifestPath := filepath.Join(root, filepath.FromSlash(rel), manifest.FileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return ProblemIndexEntry{}, fmt.Errorf("%s: %w", rel, ErrInvalidRepository)
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return ProblemIndexEntry{}, err
	}
	name, err := NewName(m.Name)
	if err != nil {
		return ProblemIndexEntry{}, fmt.Errorf("problem at %s: %w", rel, err)
	}

	return ProblemIndexEntry{
		Name: name,
		Path: path.Clean(filepath.ToSlash(rel)),
	}, nil
}
