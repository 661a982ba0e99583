package config

import (
	"os"
	"path/filepath"
)

// defaultOutputDir returns the default session record directory.
//
// Returns: ~/.config/mcpwatch/sessions.
func defaultOutputDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./sessions"
	}

	return filepath.Join(homeDir, ".config", "mcpwatch", "sessions")
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/mcpwatch/mcpwatch.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./mcpwatch.db"
	}

	return filepath.Join(homeDir, ".config", "mcpwatch", "mcpwatch.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/mcpwatch/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "mcpwatch", "config.yaml")
}
