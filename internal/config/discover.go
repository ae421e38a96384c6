// internal/config/discover.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the environment variable that overrides discovery.
const EnvConfigPath = "TUBEBOT_CONFIG"

// DefaultPath returns the per-user config path under XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tubebot", "config.toml")
}

// SearchPaths lists the locations Discover checks, in order, after the
// environment override.
func SearchPaths() []string {
	return []string{
		"./config.toml",
		"./tubebot.toml",
		DefaultPath(),
		"/etc/tubebot/config.toml",
	}
}

// Discover returns the config file to load. An explicit TUBEBOT_CONFIG must
// exist; otherwise the first existing entry of SearchPaths wins.
func Discover() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("config not found, checked: %s (run 'tubebot config init' to create one)",
		strings.Join(paths, ", "))
}
