package soma

import (
	"os"
	"path/filepath"
)

const (
	// LockFileName is held exclusively while an Environment is open.
	LockFileName = "soma.lock"

	// ConfigFileName is the optional operator configuration in the data directory.
	ConfigFileName = "config.yaml"

	repositoriesDirName = "repositories"
	indexFileName       = "index.db"
)

// Home returns the soma data directory.
// It defaults to ~/.soma but can be overridden with the SOMA_DATA_DIR environment variable.
func Home() string {
	if v := os.Getenv("SOMA_DATA_DIR"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".soma")
}
