package container

import (
	"sort"

	"github.com/docker/docker/api/types/filters"
)

const (
	LabelVersion    = "soma.version"
	LabelOwner      = "soma.owner"
	LabelRepository = "soma.repository"
	LabelProblem    = "soma.problem"
)

// Identity is the metadata attached to every image and container soma creates.
type Identity struct {
	Version    string
	Owner      string
	Repository string
	Problem    string
}

// Labels returns the four identity labels.
func (id Identity) Labels() map[string]string {
	return map[string]string{
		LabelVersion:    id.Version,
		LabelOwner:      id.Owner,
		LabelRepository: id.Repository,
		LabelProblem:    id.Problem,
	}
}

// Selector picks artifacts by label. Empty fields match anything.
type Selector struct {
	Owner      string
	Repository string
	Problem    string
}

// Selector selects the artifacts of id's problem owned by id's owner.
func (id Identity) Selector() Selector {
	return Selector{Owner: id.Owner, Repository: id.Repository, Problem: id.Problem}
}

// Matches reports whether labels satisfy the selector.
func (s Selector) Matches(labels map[string]string) bool {
	if _, ok := labels[LabelOwner]; !ok {
		return false
	}
	for key, want := range s.pairs() {
		if labels[key] != want {
			return false
		}
	}
	return true
}

// Args converts the selector to docker list filters. Artifacts without an
// owner label never match, so unrelated images on a shared host are skipped.
func (s Selector) Args() filters.Args {
	args := filters.NewArgs(filters.Arg("label", LabelOwner))
	pairs := s.pairs()
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args.Add("label", key+"="+pairs[key])
	}
	return args
}

func (s Selector) pairs() map[string]string {
	pairs := make(map[string]string, 3)
	if s.Owner != "" {
		pairs[LabelOwner] = s.Owner
	}
	if s.Repository != "" {
		pairs[LabelRepository] = s.Repository
	}
	if s.Problem != "" {
		pairs[LabelProblem] = s.Problem
	}
	return pairs
}
