package soma

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/PLUS-POSTECH/soma/container"
	"github.com/PLUS-POSTECH/soma/repository"
)

// Build builds the image of the problem matching query, replacing any image
// built before. Build progress is written to the environment output.
func (e *Environment) Build(ctx context.Context, query string) (repository.Problem, error) {
	prob, err := e.repos.SearchProb(query)
	if err != nil {
		return prob, err
	}
	id := e.identity(prob)

	containers, err := e.runtime.ListContainers(ctx, id.Selector())
	if err != nil {
		return prob, err
	}
	if len(containers) > 0 {
		return prob, fmt.Errorf("%s: %w", prob.QualifiedName(), ErrRepositoryInUse)
	}
	if err := e.pruneImages(ctx, id.Selector()); err != nil {
		return prob, err
	}

	e.printf("Loading manifest...")
	m, err := prob.LoadManifest()
	if err != nil {
		return prob, err
	}
	solid, err := m.Solidify()
	if err != nil {
		return prob, err
	}

	e.printf("Preparing build context...")
	dir, err := os.MkdirTemp("", "soma-build-")
	if err != nil {
		return prob, err
	}
	defer os.RemoveAll(dir)

	data := buildData{
		Owner:      e.owner,
		Version:    e.version,
		Repository: id.Repository,
		Problem:    id.Problem,
		User:       id.Problem,
		Port:       ServicePort,
		Manifest:   solid,
	}
	if err := materializeContext(dir, prob, solid, data); err != nil {
		return prob, err
	}

	buildCtx, err := archiveContext(dir)
	if err != nil {
		return prob, fmt.Errorf("encode build context: %w", err)
	}
	defer buildCtx.Close()

	e.printf("Building image...")
	err = e.runtime.BuildImage(ctx, container.BuildOptions{
		Tag:     prob.ImageName(e.owner),
		Labels:  id.Labels(),
		Context: buildCtx,
	}, e.out)
	if err != nil {
		return prob, err
	}

	e.printf("Built image for problem: '%s'", prob.QualifiedName())
	return prob, nil
}

func (e *Environment) pruneImages(ctx context.Context, sel container.Selector) error {
	images, err := e.runtime.ListImages(ctx, sel)
	if err != nil {
		return err
	}
	for _, img := range images {
		slog.Debug("pruning image", "image", img.ID, "tags", img.Tags)
		if err := e.runtime.RemoveImage(ctx, img.ID); err != nil {
			return err
		}
	}
	return nil
}

// Run starts a container of the problem matching query, publishing the
// problem's service on hostPort. It returns the container id.
func (e *Environment) Run(ctx context.Context, query string, hostPort int) (string, error) {
	if hostPort < 1 || hostPort > 65535 {
		return "", fmt.Errorf("%d: %w", hostPort, ErrInvalidPort)
	}

	prob, err := e.repos.SearchProb(query)
	if err != nil {
		return "", err
	}
	id := e.identity(prob)

	images, err := e.runtime.ListImages(ctx, id.Selector())
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("%s: %w", prob.QualifiedName(), ErrImageNotFound)
	}
	for _, img := range images {
		if v := img.Labels[container.LabelVersion]; v != e.version {
			slog.Warn("image was built by another soma version; rebuild it", "problem", prob.QualifiedName(), "image_version", v, "version", e.version)
		}
	}

	containers, err := e.runtime.ListContainers(ctx, id.Selector())
	if err != nil {
		return "", err
	}
	for _, c := range containers {
		if c.Running() {
			return "", fmt.Errorf("%s: %w", prob.QualifiedName(), ErrProblemAlreadyRunning)
		}
	}
	for _, c := range containers {
		slog.Debug("pruning container", "container", c.ID, "state", c.State)
		if err := e.runtime.RemoveContainer(ctx, c.ID); err != nil {
			return "", err
		}
	}

	e.printf("Creating container for problem: '%s'", prob.QualifiedName())
	containerID, err := e.runtime.CreateContainer(ctx, container.CreateOptions{
		Name:          containerName(prob),
		Image:         prob.ImageName(e.owner),
		Labels:        id.Labels(),
		ContainerPort: strconv.Itoa(ServicePort) + "/tcp",
		HostPort:      hostPort,
	})
	if err != nil {
		return "", err
	}

	e.printf("Starting container...")
	if err := e.runtime.StartContainer(ctx, containerID); err != nil {
		return containerID, err
	}

	e.printf("Container started: '%s'", containerID)
	return containerID, nil
}

func containerName(prob repository.Problem) string {
	return "soma-" + prob.QualifiedName() + "-" + uuid.NewString()[:8]
}

// Stop stops and removes every container of the problem matching query.
func (e *Environment) Stop(ctx context.Context, query string) error {
	prob, err := e.repos.SearchProb(query)
	if err != nil {
		return err
	}

	containers, err := e.runtime.ListContainers(ctx, e.identity(prob).Selector())
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return fmt.Errorf("%s: %w", prob.QualifiedName(), ErrProblemNotRunning)
	}

	for _, c := range containers {
		if c.Stoppable() {
			if err := e.runtime.StopContainer(ctx, c.ID); err != nil {
				return err
			}
		}
	}
	for _, c := range containers {
		if err := e.runtime.RemoveContainer(ctx, c.ID); err != nil {
			return err
		}
	}

	e.printf("Problem stopped: '%s'", prob.QualifiedName())
	return nil
}

// Clean removes the image of the problem matching query. It is refused while
// any container of the problem exists.
func (e *Environment) Clean(ctx context.Context, query string) error {
	prob, err := e.repos.SearchProb(query)
	if err != nil {
		return err
	}
	sel := e.identity(prob).Selector()

	containers, err := e.runtime.ListContainers(ctx, sel)
	if err != nil {
		return err
	}
	if len(containers) > 0 {
		return fmt.Errorf("%s: %w", prob.QualifiedName(), ErrRepositoryInUse)
	}

	images, err := e.runtime.ListImages(ctx, sel)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("%s: %w", prob.QualifiedName(), ErrImageNotFound)
	}
	if err := e.pruneImages(ctx, sel); err != nil {
		return err
	}

	e.printf("Problem image cleaned: '%s'", prob.QualifiedName())
	return nil
}
