package repository

import (
	"fmt"
	"regexp"
)

// namePattern is the docker name-component grammar without '.', which is kept
// free to separate the repository and problem parts of a qualified name.
var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:(?:_|__|-+)[a-z0-9]+)*$`)

// Name identifies a repository or a problem.
type Name string

// NewName validates s and returns it as a Name.
func NewName(s string) (Name, error) {
	if !namePattern.MatchString(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidName)
	}
	return Name(s), nil
}

func (n Name) String() string {
	return string(n)
}
