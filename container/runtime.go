// Package container talks to the container runtime on behalf of soma. Every
// image and container it creates carries identity labels, and every listing
// is filtered by them, so artifacts of other tools on a shared host are never
// touched.
package container

import (
	"context"
	"errors"
	"io"
)

// Standard errors
var (
	// ErrDockerBuildFailed is returned when the runtime fails to build a problem image.
	ErrDockerBuildFailed = errors.New("failed to build docker image for a problem")

	// ErrRuntimeUnavailable is returned when no docker daemon could be reached.
	ErrRuntimeUnavailable = errors.New("docker not available")
)

// BuildError carries the runtime's own message for a failed build.
type BuildError struct {
	Message string
}

func (e *BuildError) Error() string {
	return ErrDockerBuildFailed.Error() + ": " + e.Message
}

func (e *BuildError) Unwrap() error {
	return ErrDockerBuildFailed
}

// Container states reported by the runtime.
const (
	StateCreated    = "created"
	StateRunning    = "running"
	StatePaused     = "paused"
	StateRestarting = "restarting"
	StateExited     = "exited"
	StateDead       = "dead"
)

// Image is a labeled image known to the runtime.
type Image struct {
	ID     string
	Tags   []string
	Labels map[string]string
}

// Container is a labeled container known to the runtime.
type Container struct {
	ID     string
	Name   string
	Image  string
	State  string
	Labels map[string]string
}

// Running reports whether the container is running.
func (c Container) Running() bool {
	return c.State == StateRunning
}

// Stoppable reports whether the container has a process that a stop would end.
func (c Container) Stoppable() bool {
	switch c.State {
	case StatePaused, StateRestarting, StateRunning:
		return true
	}
	return false
}

// BuildOptions describes an image build.
type BuildOptions struct {
	Tag    string
	Labels map[string]string
	// Context is a (optionally gzip compressed) tar stream with a Dockerfile at its root.
	Context io.Reader
}

// CreateOptions describes a container to create.
type CreateOptions struct {
	Name          string
	Image         string
	Labels        map[string]string
	ContainerPort string // e.g. "1337/tcp"
	HostPort      int
}

// Runtime is the subset of the container runtime soma drives. Calls are
// issued one at a time and identify artifacts by id or name.
type Runtime interface {
	ListImages(ctx context.Context, sel Selector) ([]Image, error)
	ListContainers(ctx context.Context, sel Selector) ([]Container, error)

	// BuildImage builds an image, writing progress to out as it arrives.
	BuildImage(ctx context.Context, opts BuildOptions, out io.Writer) error
	RemoveImage(ctx context.Context, ref string) error

	CreateContainer(ctx context.Context, opts CreateOptions) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error

	Close() error
}
