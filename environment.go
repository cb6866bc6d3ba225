package soma

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"

	"github.com/PLUS-POSTECH/soma/container"
	"github.com/PLUS-POSTECH/soma/repository"
)

// Version is stamped on every image and container as the soma.version label.
var Version = "0.1.0"

// Environment is one operator session over a locked data directory.
// Mutations of the repository index are persisted by Close.
type Environment struct {
	dataDir *DataDirectory
	config  Config
	repos   *repository.Manager
	runtime container.Runtime
	owner   string
	version string
	out     io.Writer
}

// Option configures an Environment.
type Option func(*Environment)

// WithRuntime replaces the Docker runtime.
func WithRuntime(rt container.Runtime) Option {
	return func(e *Environment) {
		e.runtime = rt
	}
}

// WithOwner sets the owner label instead of the configured or login name.
func WithOwner(owner string) Option {
	return func(e *Environment) {
		e.owner = owner
	}
}

// WithOutput sets where status lines and build progress are written.
func WithOutput(w io.Writer) Option {
	return func(e *Environment) {
		e.out = w
	}
}

// Open locks the data directory at dir and loads its configuration and index.
func Open(ctx context.Context, dir string, opts ...Option) (*Environment, error) {
	dataDir, err := OpenDataDirectory(dir)
	if err != nil {
		return nil, err
	}

	env, err := open(ctx, dataDir, opts)
	if err != nil {
		dataDir.Close()
		return nil, err
	}
	return env, nil
}

func open(ctx context.Context, dataDir *DataDirectory, opts []Option) (*Environment, error) {
	cfg, err := LoadConfig(dataDir.ConfigPath())
	if err != nil {
		return nil, err
	}

	e := &Environment{
		dataDir: dataDir,
		config:  cfg,
		version: Version,
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.owner == "" {
		e.owner = cfg.Owner
	}
	if e.owner == "" {
		if e.owner, err = loginName(); err != nil {
			return nil, err
		}
	}

	store, err := repository.OpenSQLiteIndexStore(dataDir.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDirectoryAccess, err)
	}
	e.repos, err = repository.NewManager(dataDir.RepositoriesPath(), store)
	if err != nil {
		store.Close()
		return nil, err
	}

	if e.runtime == nil {
		e.runtime = container.NewManager(
			container.WithHost(cfg.DockerHost),
			container.WithStopTimeout(cfg.StopTimeout),
		)
	}

	slog.DebugContext(ctx, "environment opened", "data_dir", dataDir.Path(), "owner", e.owner, "version", e.version)
	return e, nil
}

func loginName() (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", errors.New("cannot determine the current user; set owner in config.yaml")
}

// Owner returns the name stamped on artifacts of this session.
func (e *Environment) Owner() string {
	return e.owner
}

// Config returns the loaded configuration.
func (e *Environment) Config() Config {
	return e.config
}

// Repositories returns the repository manager.
func (e *Environment) Repositories() *repository.Manager {
	return e.repos
}

// Close commits the repository index, closes the runtime and releases the
// data directory lock. Every failure is returned.
func (e *Environment) Close() error {
	return errors.Join(
		e.repos.Close(),
		e.runtime.Close(),
		e.dataDir.Close(),
	)
}

func (e *Environment) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format+"\n", args...)
}

func (e *Environment) identity(prob repository.Problem) container.Identity {
	return container.Identity{
		Version:    e.version,
		Owner:      e.owner,
		Repository: prob.RepoName.String(),
		Problem:    prob.ProbName.String(),
	}
}
