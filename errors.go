package soma

import "errors"

// Standard errors
var (
	// ErrDataDirectoryAccess is returned when the data directory cannot be created or opened.
	ErrDataDirectoryAccess = errors.New("failed to access the data directory")

	// ErrDataDirectoryLocked is returned when another soma process holds the data directory.
	ErrDataDirectoryLocked = errors.New("failed to lock the data directory")

	// ErrRepositoryInUse is returned when images or containers still depend on a repository.
	ErrRepositoryInUse = errors.New("the repository is used by some docker images or containers")

	// ErrProblemAlreadyRunning is returned by Run when a container of the problem is running.
	ErrProblemAlreadyRunning = errors.New("the specified problem is already running")

	// ErrProblemNotRunning is returned by Stop when the problem has no container.
	ErrProblemNotRunning = errors.New("the specified problem is not running")

	// ErrImageNotFound is returned when a problem has not been built.
	ErrImageNotFound = errors.New("the image of the problem is not built")

	// ErrInvalidPort is returned by Run for a host port outside 1-65535.
	ErrInvalidPort = errors.New("the host port must be between 1 and 65535")

	// ErrFileUnreachable is returned when a manifest entry is neither a file nor a directory.
	ErrFileUnreachable = errors.New("some file entry in the manifest is unreachable")
)
