package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/otiai10/copy"
)

// BackendKind tags the origin a repository is synchronized from.
type BackendKind string

const (
	BackendGit   BackendKind = "git"
	BackendLocal BackendKind = "local"
)

// Backend is the origin of a repository's content. The set of kinds is closed;
// UpdateAt switches over it exhaustively.
type Backend struct {
	Kind   BackendKind
	Origin string
}

// GitBackend returns a backend cloning from url.
func GitBackend(url string) Backend {
	return Backend{Kind: BackendGit, Origin: url}
}

// LocalBackend returns a backend mirroring the directory at path.
func LocalBackend(path string) Backend {
	return Backend{Kind: BackendLocal, Origin: path}
}

func (b Backend) String() string {
	switch b.Kind {
	case BackendGit:
		return "Git: " + b.Origin
	case BackendLocal:
		return "Local: " + b.Origin
	default:
		return string(b.Kind) + ": " + b.Origin
	}
}

// UpdateAt synchronizes localPath with the current content of the origin.
// Local changes under localPath are discarded.
func (b Backend) UpdateAt(ctx context.Context, localPath string) error {
	switch b.Kind {
	case BackendGit:
		return updateGit(ctx, b.Origin, localPath)
	case BackendLocal:
		return updateLocal(b.Origin, localPath)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, b.Kind)
	}
}

func updateLocal(origin, localPath string) error {
	if _, err := os.Stat(localPath); err == nil {
		if err := os.RemoveAll(localPath); err != nil {
			return fmt.Errorf("remove %s: %w", localPath, err)
		}
	}

	if err := copy.Copy(origin, localPath); err != nil {
		return fmt.Errorf("copy %s: %w", origin, err)
	}
	return nil
}

func updateGit(ctx context.Context, url, localPath string) error {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		slog.Debug("cloning repository", "url", url, "path", localPath)
		repo, err = git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return fmt.Errorf("clone %s: %w", url, err)
		}
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return fmt.Errorf("find remote: %w", err)
	}

	branch, err := defaultBranch(ctx, remote)
	if err != nil {
		return err
	}

	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, git.DefaultRemoteName, branch))
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []config.RefSpec{refSpec},
		Force:    true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", branch, err)
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch), true)
	if err != nil {
		return fmt.Errorf("resolve %s/%s: %w", git.DefaultRemoteName, branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", ref.Hash(), err)
	}
	return nil
}

// defaultBranch asks the remote which branch its HEAD points to.
func defaultBranch(ctx context.Context, remote *git.Remote) (string, error) {
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("list remote: %w", err)
	}

	branches := make(map[string]bool)
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD && ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short(), nil
		}
		if ref.Name().IsBranch() {
			branches[ref.Name().Short()] = true
		}
	}

	for _, candidate := range []string{"main", "master"} {
		if branches[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("remote %s has no default branch", remote.Config().Name)
}
