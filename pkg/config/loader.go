package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for config file in:
// 1. ./mcpwatch.yaml (current directory)
// 2. ~/.config/mcpwatch/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly requested file must load; the implicit
			// search falls through to defaults.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./mcpwatch.yaml",
		defaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Platform != "" {
		result.Platform = override.Platform
	}
	if override.Project != "" {
		result.Project = override.Project
	}

	// Merge watch config
	if override.Watch.PollInterval > 0 {
		result.Watch.PollInterval = override.Watch.PollInterval
	}
	// FromStart is a bool, so we always take the override value
	result.Watch.FromStart = override.Watch.FromStart
	if override.Watch.FlushTimeout > 0 {
		result.Watch.FlushTimeout = override.Watch.FlushTimeout
	}

	// Merge tracking config
	if override.Tracking.DuplicateWindow > 0 {
		result.Tracking.DuplicateWindow = override.Tracking.DuplicateWindow
	}
	if override.Tracking.PricingPath != "" {
		result.Tracking.PricingPath = override.Tracking.PricingPath
	}

	// Merge display config
	if override.Display.DefaultMode != "" {
		result.Display.DefaultMode = override.Display.DefaultMode
	}
	if len(override.Display.PinnedServers) > 0 {
		result.Display.PinnedServers = override.Display.PinnedServers
	}
	if override.Display.RefreshRate > 0 {
		result.Display.RefreshRate = override.Display.RefreshRate
	}

	// Merge storage config
	result.Storage.Persist = override.Storage.Persist
	if override.Storage.OutputDir != "" {
		result.Storage.OutputDir = override.Storage.OutputDir
	}
	if override.Storage.DBPath != "" {
		result.Storage.DBPath = override.Storage.DBPath
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - MCPWATCH_PLATFORM: Platform to monitor
//   - MCPWATCH_PROJECT: Project name override
//   - MCPWATCH_POLL_INTERVAL: Poll interval (Go duration syntax)
//   - MCPWATCH_OUTPUT_DIR: Session record directory
//   - MCPWATCH_DB: Path to database file
//   - MCPWATCH_PRICING: Path to TOML rate table
//   - MCPWATCH_PINNED_SERVERS: Comma-separated pinned server names
//   - MCPWATCH_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if platform := os.Getenv("MCPWATCH_PLATFORM"); platform != "" {
		result.Platform = strings.ToLower(platform)
	}
	if project := os.Getenv("MCPWATCH_PROJECT"); project != "" {
		result.Project = project
	}
	if interval := os.Getenv("MCPWATCH_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d > 0 {
			result.Watch.PollInterval = d
		}
	}
	if dir := os.Getenv("MCPWATCH_OUTPUT_DIR"); dir != "" {
		result.Storage.OutputDir = dir
	}
	if dbPath := os.Getenv("MCPWATCH_DB"); dbPath != "" {
		result.Storage.DBPath = dbPath
	}
	if pricing := os.Getenv("MCPWATCH_PRICING"); pricing != "" {
		result.Tracking.PricingPath = pricing
	}
	if pinned := os.Getenv("MCPWATCH_PINNED_SERVERS"); pinned != "" {
		servers := strings.Split(pinned, ",")
		for i := range servers {
			servers[i] = strings.TrimSpace(servers[i])
		}
		result.Display.PinnedServers = servers
	}
	if logLevel := os.Getenv("MCPWATCH_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
