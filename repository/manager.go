package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Manager owns the repository index and the working copies under root.
// Changes stay in memory until Commit.
type Manager struct {
	root  string
	store IndexStore
	index Index
	dirty bool
}

// NewManager loads the index from store. Working copies live under root.
func NewManager(root string, store IndexStore) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}
	idx, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load repository index: %w", err)
	}
	return &Manager{root: root, store: store, index: idx}, nil
}

// RepoPath returns the working copy location of a repository.
func (m *Manager) RepoPath(name Name) string {
	return filepath.Join(m.root, name.String())
}

// Dirty reports whether the in-memory index differs from the stored one.
func (m *Manager) Dirty() bool {
	return m.dirty
}

// RepoExists reports whether name is registered.
func (m *Manager) RepoExists(name Name) bool {
	_, ok := m.index[name]
	return ok
}

// AddRepo registers a repository, materializing its backend into a working copy.
func (m *Manager) AddRepo(ctx context.Context, name Name, backend Backend) error {
	if m.RepoExists(name) {
		return fmt.Errorf("%s: %w", name, ErrDuplicateRepository)
	}

	scratch, problems, err := m.materialize(ctx, backend)
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	if err := m.swapWorkingCopy(name, scratch); err != nil {
		return err
	}

	m.index[name] = IndexEntry{Backend: backend, Problems: problems}
	m.dirty = true
	slog.Debug("repository added", "repository", name, "backend", backend.String(), "problems", len(problems))
	return nil
}

// RemoveRepo deletes a repository's working copy and index entry.
func (m *Manager) RemoveRepo(name Name) error {
	if !m.RepoExists(name) {
		return fmt.Errorf("%s: %w", name, ErrRepositoryNotFound)
	}

	if err := os.RemoveAll(m.RepoPath(name)); err != nil {
		return fmt.Errorf("remove working copy: %w", err)
	}

	delete(m.index, name)
	m.dirty = true
	return nil
}

// UpdateRepo re-synchronizes a repository and refreshes its cached problem list.
// If a problem for which inUse reports true would no longer exist, the update
// fails with ErrUnsupportedUpdate and nothing is changed.
func (m *Manager) UpdateRepo(ctx context.Context, name Name, inUse func(Name) bool) error {
	entry, ok := m.index[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrRepositoryNotFound)
	}

	scratch, problems, err := m.materialize(ctx, entry.Backend)
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	remaining := make(map[Name]bool, len(problems))
	for _, prob := range problems {
		remaining[prob.Name] = true
	}
	for _, prob := range entry.Problems {
		if !remaining[prob.Name] && inUse != nil && inUse(prob.Name) {
			return fmt.Errorf("problem %s.%s was removed upstream: %w", name, prob.Name, ErrUnsupportedUpdate)
		}
	}

	if err := m.swapWorkingCopy(name, scratch); err != nil {
		return err
	}

	entry.Problems = problems
	m.index[name] = entry
	m.dirty = true
	return nil
}

// materialize synchronizes backend into a fresh scratch directory under root
// and scans it. The caller removes the scratch directory.
func (m *Manager) materialize(ctx context.Context, backend Backend) (string, []ProblemIndexEntry, error) {
	scratch := filepath.Join(m.root, ".scratch-"+uuid.NewString())
	if err := backend.UpdateAt(ctx, scratch); err != nil {
		os.RemoveAll(scratch)
		return "", nil, fmt.Errorf("synchronize %s: %w", backend, err)
	}

	problems, err := ScanProblems(scratch)
	if err != nil {
		os.RemoveAll(scratch)
		return "", nil, err
	}
	return scratch, problems, nil
}

// swapWorkingCopy replaces the working copy of name with the scratch directory.
func (m *Manager) swapWorkingCopy(name Name, scratch string) error {
	dst := m.RepoPath(name)
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove working copy: %w", err)
	}
	if err := os.Rename(scratch, dst); err != nil {
		return fmt.Errorf("install working copy: %w", err)
	}
	return nil
}

// GetRepo returns the index entry of name.
func (m *Manager) GetRepo(name Name) (Repository, error) {
	entry, ok := m.index[name]
	if !ok {
		return Repository{}, fmt.Errorf("%s: %w", name, ErrRepositoryNotFound)
	}
	return m.view(name, entry), nil
}

// ListRepo returns every repository ordered by name.
func (m *Manager) ListRepo() []Repository {
	names := m.sortedNames()
	repos := make([]Repository, 0, len(names))
	for _, name := range names {
		repos = append(repos, m.view(name, m.index[name]))
	}
	return repos
}

// ListProb returns every known problem ordered by repository.
func (m *Manager) ListProb() []Problem {
	var probs []Problem
	for _, name := range m.sortedNames() {
		for _, prob := range m.index[name].Problems {
			probs = append(probs, Problem{
				RepoName: name,
				ProbName: prob.Name,
				Path:     filepath.Join(m.RepoPath(name), filepath.FromSlash(prob.Path)),
			})
		}
	}
	return probs
}

// SearchProb resolves a bare problem name or a qualified "<repository>.<problem>"
// name to exactly one problem.
func (m *Manager) SearchProb(query string) (Problem, error) {
	var found []Problem
	for _, prob := range m.ListProb() {
		if query == prob.ProbName.String() || query == prob.QualifiedName() {
			found = append(found, prob)
		}
	}

	switch len(found) {
	case 0:
		return Problem{}, fmt.Errorf("%q: %w", query, ErrProblemNotFound)
	case 1:
		return found[0], nil
	default:
		return Problem{}, fmt.Errorf("%q: %w", query, ErrProblemQueryAmbiguous)
	}
}

// Commit writes the index if it changed since it was loaded or last committed.
func (m *Manager) Commit() error {
	if !m.dirty {
		return nil
	}
	if err := m.store.Save(m.index); err != nil {
		return fmt.Errorf("save repository index: %w", err)
	}
	m.dirty = false
	return nil
}

// Close commits pending changes and closes the store.
func (m *Manager) Close() error {
	return errors.Join(m.Commit(), m.store.Close())
}

func (m *Manager) view(name Name, entry IndexEntry) Repository {
	problems := make([]ProblemIndexEntry, len(entry.Problems))
	copy(problems, entry.Problems)
	return Repository{
		Name:     name,
		Backend:  entry.Backend,
		Problems: problems,
		Path:     m.RepoPath(name),
	}
}

func (m *Manager) sortedNames() []Name {
	names := make([]Name, 0, len(m.index))
	for name := range m.index {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
