package soma

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// DataDirectory is an exclusively locked soma data directory.
type DataDirectory struct {
	root string
	lock *flock.Flock
}

// OpenDataDirectory creates the directory layout under root if needed and
// takes the process lock. A relative root is resolved against the working
// directory. It fails with ErrDataDirectoryLocked when another process holds
// the lock.
func OpenDataDirectory(root string) (*DataDirectory, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDirectoryAccess, err)
	}
	if err := os.MkdirAll(filepath.Join(root, repositoriesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDirectoryAccess, err)
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDirectoryAccess, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", root, ErrDataDirectoryLocked)
	}

	return &DataDirectory{root: root, lock: lock}, nil
}

// Path returns the root of the data directory.
func (d *DataDirectory) Path() string {
	return d.root
}

// RepositoriesPath returns the directory holding the working copies.
func (d *DataDirectory) RepositoriesPath() string {
	return filepath.Join(d.root, repositoriesDirName)
}

// IndexPath returns the repository index database.
func (d *DataDirectory) IndexPath() string {
	return filepath.Join(d.RepositoriesPath(), indexFileName)
}

// ConfigPath returns the location of config.yaml.
func (d *DataDirectory) ConfigPath() string {
	return filepath.Join(d.root, ConfigFileName)
}

// Close releases the process lock.
func (d *DataDirectory) Close() error {
	return d.lock.Unlock()
}
