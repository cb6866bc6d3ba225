package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
)

const defaultStopTimeout = 10

// Manager implements Runtime on top of the Docker Engine API.
type Manager struct {
	client      *client.Client
	host        string
	stopTimeout int
	mu          sync.Mutex

	connectOnce sync.Once
	connectErr  error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHost connects to a specific daemon address instead of probing.
func WithHost(host string) ManagerOption {
	return func(m *Manager) {
		m.host = host
	}
}

// WithStopTimeout sets how many seconds a container gets to exit on stop.
func WithStopTimeout(seconds int) ManagerOption {
	return func(m *Manager) {
		if seconds > 0 {
			m.stopTimeout = seconds
		}
	}
}

// NewManager creates a runtime manager. The daemon is not contacted until the
// first call; if it cannot be reached, every call fails with ErrRuntimeUnavailable.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{stopTimeout: defaultStopTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ready connects to the daemon once and reports whether it is usable.
func (m *Manager) ready(ctx context.Context) error {
	m.connectOnce.Do(func() {
		cli, err := createDockerClient(ctx, m.host)
		if err != nil {
			slog.Debug("docker unavailable", "error", err)
			m.connectErr = fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
			return
		}
		m.client = cli
	})
	return m.connectErr
}

// createDockerClient creates a Docker client, trying the environment first and
// then the usual socket locations.
func createDockerClient(ctx context.Context, host string) (*client.Client, error) {
	if host != "" {
		return connect(ctx, client.WithHost(host))
	}

	if cli, err := connect(ctx, client.FromEnv); err == nil {
		return cli, nil
	}

	home, _ := os.UserHomeDir()
	socketPaths := []string{
		"unix://" + home + "/.docker/run/docker.sock", // Docker Desktop macOS
		"unix:///var/run/docker.sock",                 // Linux default
		"unix://" + home + "/.colima/docker.sock",     // Colima
	}
	for _, socketPath := range socketPaths {
		if cli, err := connect(ctx, client.WithHost(socketPath)); err == nil {
			return cli, nil
		}
	}

	return nil, fmt.Errorf("could not connect to Docker daemon")
}

func connect(ctx context.Context, opt client.Opt) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(opt, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	return cli, nil
}

// IsAvailable returns whether Docker is available, connecting if needed.
func (m *Manager) IsAvailable(ctx context.Context) bool {
	return m.ready(ctx) == nil
}

// ListImages returns the images matching sel.
func (m *Manager) ListImages(ctx context.Context, sel Selector) ([]Image, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	summaries, err := m.client.ImageList(ctx, image.ListOptions{Filters: sel.Args()})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	images := make([]Image, 0, len(summaries))
	for _, s := range summaries {
		images = append(images, Image{ID: s.ID, Tags: s.RepoTags, Labels: s.Labels})
	}
	return images, nil
}

// ListContainers returns the containers matching sel, running or not.
func (m *Manager) ListContainers(ctx context.Context, sel Selector) ([]Container, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: sel.Args(),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	containers := make([]Container, 0, len(list))
	for _, c := range list {
		containers = append(containers, fromSummary(c))
	}
	return containers, nil
}

func fromSummary(c types.Container) Container {
	var name string
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return Container{
		ID:     c.ID,
		Name:   name,
		Image:  c.Image,
		State:  c.State,
		Labels: c.Labels,
	}
}

// BuildImage submits a build context and streams the daemon's progress to out.
func (m *Manager) BuildImage(ctx context.Context, opts BuildOptions, out io.Writer) error {
	if err := m.ready(ctx); err != nil {
		return err
	}
	if out == nil {
		out = io.Discard
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.client.ImageBuild(ctx, opts.Context, types.ImageBuildOptions{
		Tags:        []string{opts.Tag},
		Labels:      opts.Labels,
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return &BuildError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return &BuildError{Message: jerr.Message}
		}
		return fmt.Errorf("read build output: %w", err)
	}
	return nil
}

// RemoveImage removes an image by id or name.
func (m *Manager) RemoveImage(ctx context.Context, ref string) error {
	if err := m.ready(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.client.ImageRemove(ctx, ref, image.RemoveOptions{PruneChildren: true}); err != nil {
		return fmt.Errorf("remove image %s: %w", ref, err)
	}
	return nil
}

// CreateContainer creates a container publishing ContainerPort on HostPort.
func (m *Manager) CreateContainer(ctx context.Context, opts CreateOptions) (string, error) {
	if err := m.ready(ctx); err != nil {
		return "", err
	}

	port, err := nat.NewPort(nat.SplitProtoPort(opts.ContainerPort))
	if err != nil {
		return "", fmt.Errorf("container port %q: %w", opts.ContainerPort, err)
	}

	containerCfg := &container.Config{
		Image:        opts.Image,
		Labels:       opts.Labels,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: strconv.Itoa(opts.HostPort)}},
		},
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range resp.Warnings {
		slog.Warn("container create", "container", opts.Name, "warning", w)
	}
	return resp.ID, nil
}

// StartContainer starts a created container.
func (m *Manager) StartContainer(ctx context.Context, id string) error {
	if err := m.ready(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// StopContainer stops a container, killing it after the stop timeout.
func (m *Manager) StopContainer(ctx context.Context, id string) error {
	if err := m.ready(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	timeout := m.stopTimeout
	if err := m.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// RemoveContainer removes a container whatever its state.
func (m *Manager) RemoveContainer(ctx context.Context, id string) error {
	if err := m.ready(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Close closes the Docker client.
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
