package repository

import "errors"

// Standard errors
var (
	// ErrInvalidName is returned when a name breaks the docker name component rules.
	ErrInvalidName = errors.New("the name doesn't satisfy docker name component rules, which allows lower case alphanumerics with non-boundary '_', '__', or (multiple) '-'(s); '.' is reserved to separate <repository>.<problem>")

	// ErrDuplicateRepository is returned when adding a repository whose name is taken.
	ErrDuplicateRepository = errors.New("a repository with the same name already exists")

	// ErrRepositoryNotFound is returned when a repository is not registered.
	ErrRepositoryNotFound = errors.New("the specified repository is not found")

	// ErrInvalidRepository is returned when a problem directory has no manifest.
	ErrInvalidRepository = errors.New("the provided repository does not contain 'soma.toml' or 'soma-list.toml'")

	// ErrInvalidProblemList is returned when soma-list.toml has a duplicate or inaccessible entry.
	ErrInvalidProblemList = errors.New("soma-list.toml contains a duplicate or inaccessible entry")

	// ErrProblemNotFound is returned when no problem matches a query.
	ErrProblemNotFound = errors.New("the specified problem is not found")

	// ErrProblemQueryAmbiguous is returned when more than one problem matches a query.
	ErrProblemQueryAmbiguous = errors.New("the provided query returned multiple problems; use <repository>.<problem>")

	// ErrUnsupportedUpdate is returned when an update would drop a problem that is still in use.
	ErrUnsupportedUpdate = errors.New("the repository contains changes that cannot be handled by update command; please remove and add the repository manually")

	// ErrUnknownBackend is returned for a backend kind this build does not know.
	ErrUnknownBackend = errors.New("unknown repository backend")
)
