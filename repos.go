package soma

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/otiai10/copy"

	"github.com/PLUS-POSTECH/soma/container"
	"github.com/PLUS-POSTECH/soma/manifest"
	"github.com/PLUS-POSTECH/soma/repository"
)

// Add registers the repository at location. If name is empty the name
// suggested by the location is used.
func (e *Environment) Add(ctx context.Context, location, name string) (repository.Name, error) {
	suggested, backend, err := ParseLocation(location)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = suggested
	}

	repoName, err := repository.NewName(name)
	if err != nil {
		return "", err
	}

	if err := e.repos.AddRepo(ctx, repoName, backend); err != nil {
		return "", err
	}
	e.printf("Repository added: '%s'", repoName)
	return repoName, nil
}

// Remove unregisters a repository. It is refused while any image built from
// the repository exists.
func (e *Environment) Remove(ctx context.Context, repo string) error {
	repoName, err := repository.NewName(repo)
	if err != nil {
		return err
	}
	if !e.repos.RepoExists(repoName) {
		return fmt.Errorf("%s: %w", repoName, repository.ErrRepositoryNotFound)
	}

	images, err := e.runtime.ListImages(ctx, container.Selector{Owner: e.owner, Repository: repoName.String()})
	if err != nil {
		return err
	}
	if len(images) > 0 {
		return fmt.Errorf("%s: %w", repoName, ErrRepositoryInUse)
	}

	if err := e.repos.RemoveRepo(repoName); err != nil {
		return err
	}
	e.printf("Repository removed: '%s'", repoName)
	return nil
}

// Update re-synchronizes a repository from its backend and rescans its problems.
// Problems that still have an image must survive the update.
func (e *Environment) Update(ctx context.Context, repo string) error {
	repoName, err := repository.NewName(repo)
	if err != nil {
		return err
	}
	if !e.repos.RepoExists(repoName) {
		return fmt.Errorf("%s: %w", repoName, repository.ErrRepositoryNotFound)
	}

	images, err := e.runtime.ListImages(ctx, container.Selector{Owner: e.owner, Repository: repoName.String()})
	if err != nil {
		return err
	}
	built := make(map[string]bool, len(images))
	for _, img := range images {
		built[img.Labels[container.LabelProblem]] = true
	}

	inUse := func(prob repository.Name) bool { return built[prob.String()] }
	if err := e.repos.UpdateRepo(ctx, repoName, inUse); err != nil {
		return err
	}
	e.printf("Repository updated: '%s'", repoName)
	return nil
}

// Fetch copies the public files of a problem into dst and returns their names.
func (e *Environment) Fetch(query, dst string) ([]string, error) {
	prob, err := e.repos.SearchProb(query)
	if err != nil {
		return nil, err
	}
	m, err := prob.LoadManifest()
	if err != nil {
		return nil, err
	}

	var fetched []string
	for _, entry := range m.PublicFiles() {
		name := filepath.Base(filepath.FromSlash(entry.Path))
		if name == "." || name == string(filepath.Separator) {
			return fetched, fmt.Errorf("%s: %w", entry.Path, manifest.ErrFileNameNotFound)
		}

		e.printf("Fetching '%s'...", name)
		src := filepath.Join(prob.Path, filepath.FromSlash(entry.Path))
		if err := copy.Copy(src, filepath.Join(dst, name), followLinks); err != nil {
			return fetched, fmt.Errorf("fetch %s: %w", entry.Path, err)
		}
		fetched = append(fetched, name)
	}
	return fetched, nil
}

// List writes a table of the registered repositories and their problems.
func (e *Environment) List() {
	repos := e.repos.ListRepo()
	if len(repos) == 0 {
		e.printf("No repositories registered")
		return
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("NAME", "BACKEND", "PROBLEMS")
	for _, repo := range repos {
		names := make([]string, 0, len(repo.Problems))
		for _, prob := range repo.Problems {
			names = append(names, prob.Name.String())
		}
		table.AddRow(repo.Name, repo.Backend, strings.Join(names, ", "))
	}
	fmt.Fprintln(e.out, table)
}
