package soma

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PLUS-POSTECH/soma/manifest"
	"github.com/PLUS-POSTECH/soma/repository"
)

// scpLike matches git's "user@host:path" shorthand.
var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:([^/].*)$`)

// ParseLocation resolves an operator supplied repository location to a backend
// and the repository name it suggests. An existing directory is mirrored
// locally; a URL or scp-like address is cloned with git. The suggested name is
// lowercased but not validated.
func ParseLocation(location string) (string, repository.Backend, error) {
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", repository.Backend{}, err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		base := filepath.Base(abs)
		if base == string(filepath.Separator) || base == "." {
			return "", repository.Backend{}, fmt.Errorf("%s: %w", location, manifest.ErrFileNameNotFound)
		}
		return strings.ToLower(base), repository.LocalBackend(abs), nil
	}

	var repoPath string
	if m := scpLike.FindStringSubmatch(location); m != nil {
		repoPath = m[1]
	} else {
		u, err := url.Parse(location)
		if err != nil || u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
			return "", repository.Backend{}, fmt.Errorf("%s: %w", location, repository.ErrRepositoryNotFound)
		}
		repoPath = u.Path
	}

	last := path.Base(strings.TrimRight(repoPath, "/"))
	last = strings.TrimSuffix(last, ".git")
	if last == "" || last == "." || last == "/" {
		return "", repository.Backend{}, fmt.Errorf("%s: %w", location, manifest.ErrFileNameNotFound)
	}
	return strings.ToLower(last), repository.GitBackend(location), nil
}
