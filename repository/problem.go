package repository

import (
	"path/filepath"
	"strings"

	"github.com/PLUS-POSTECH/soma/manifest"
)

// ProblemIndexEntry is the cached location of one problem inside a repository.
type ProblemIndexEntry struct {
	Name Name
	Path string // relative to the repository root, slash separated
}

// Problem is a resolved, addressable problem. It is rebuilt from the index on
// every query and never persisted.
type Problem struct {
	RepoName Name
	ProbName Name
	Path     string
}

// QualifiedName returns "<repository>.<problem>", which is unique across repositories.
func (p Problem) QualifiedName() string {
	return p.RepoName.String() + "." + p.ProbName.String()
}

// ImageName returns the docker image name built for this problem by owner.
func (p Problem) ImageName(owner string) string {
	return "soma." + strings.ToLower(owner) + "/" + p.QualifiedName()
}

// ManifestPath returns the location of the problem's manifest.
func (p Problem) ManifestPath() string {
	return filepath.Join(p.Path, manifest.FileName)
}

// LoadManifest reads the problem's manifest from its working copy.
func (p Problem) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Load(p.ManifestPath())
}

// Repository is a read-only view of one index entry.
type Repository struct {
	Name     Name
	Backend  Backend
	Problems []ProblemIndexEntry
	Path     string
}
