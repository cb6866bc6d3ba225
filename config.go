package soma

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the host port used by run when neither the flag nor the
// configuration names one.
const DefaultPort = 31337

// Config is the operator configuration read from config.yaml.
type Config struct {
	// Owner overrides the login name stamped on images and containers.
	Owner string `yaml:"owner"`

	// DockerHost is a daemon address such as unix:///var/run/docker.sock.
	DockerHost string `yaml:"docker_host"`

	LogLevel    string `yaml:"log_level"`
	StopTimeout int    `yaml:"stop_timeout"` // seconds
	DefaultPort int    `yaml:"default_port"`
}

// DefaultConfig returns the configuration used when no config.yaml exists.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		StopTimeout: 10,
		DefaultPort: DefaultPort,
	}
}

// LoadConfig reads the configuration at path. Unset fields keep their defaults
// and a missing file yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.StopTimeout < 0 {
		return cfg, fmt.Errorf("parse config %s: negative stop_timeout", path)
	}
	if cfg.DefaultPort < 1 || cfg.DefaultPort > 65535 {
		return cfg, fmt.Errorf("parse config %s: default_port %d out of range", path, cfg.DefaultPort)
	}
	return cfg, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
