// Package config provides configuration management for mcpwatch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Platform: %s\n", cfg.Platform)
package config

import (
	"time"
)

// Platform identifiers accepted in configuration.
const (
	PlatformClaude = "claude"
	PlatformCodex  = "codex"
	PlatformGemini = "gemini"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Platform must be one of claude, codex, gemini
// - PollInterval must be > 0
// - FlushTimeout must be > 0
// - DuplicateWindow must be > 0.
type Config struct {
	// Platform to monitor (claude, codex, gemini)
	Platform string `yaml:"platform"`

	// Project name override; derived from the working directory when empty
	Project string `yaml:"project"`

	// Watching settings
	Watch WatchConfig `yaml:"watch"`

	// Tracking settings
	Tracking TrackingConfig `yaml:"tracking"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig contains log-file watching settings.
type WatchConfig struct {
	// How often to poll watched files for growth
	PollInterval time.Duration `yaml:"poll_interval"`

	// Read pre-existing files from the beginning instead of from
	// their size at discovery
	FromStart bool `yaml:"from_start"`

	// How long to wait for remaining lines to drain on shutdown
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// TrackingConfig contains attribution and anomaly settings.
type TrackingConfig struct {
	// Window within which identical tool calls count as duplicates
	DuplicateWindow time.Duration `yaml:"duplicate_window"`

	// Path to a TOML rate table; built-in rates when empty
	PricingPath string `yaml:"pricing_path"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default display mode (simple, table, json)
	DefaultMode string `yaml:"default_mode"`

	// MCP servers always sorted to the top of reports
	PinnedServers []string `yaml:"pinned_servers"`

	// How often to redraw the live report
	RefreshRate time.Duration `yaml:"refresh_rate"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Write a session record when a run ends
	Persist bool `yaml:"persist"`

	// Root directory for session record files
	OutputDir string `yaml:"output_dir"`

	// Path to the BoltDB index of watched files and saved runs
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformClaude, PlatformCodex, PlatformGemini:
	default:
		return ErrInvalidPlatform
	}

	if c.Watch.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Watch.FlushTimeout <= 0 {
		return ErrInvalidFlushTimeout
	}

	if c.Tracking.DuplicateWindow <= 0 {
		return ErrInvalidDuplicateWindow
	}

	validModes := map[string]bool{
		"simple": true,
		"table":  true,
		"json":   true,
	}
	if !validModes[c.Display.DefaultMode] {
		return ErrInvalidDisplayMode
	}
	if c.Display.RefreshRate <= 0 {
		return ErrInvalidRefreshRate
	}

	if c.Storage.Persist && c.Storage.OutputDir == "" {
		return ErrNoOutputDir
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Platform: PlatformClaude,
		Watch: WatchConfig{
			PollInterval: 500 * time.Millisecond,
			FlushTimeout: 2 * time.Second,
		},
		Tracking: TrackingConfig{
			DuplicateWindow: 5 * time.Minute,
		},
		Display: DisplayConfig{
			DefaultMode: "simple",
			RefreshRate: 1 * time.Second,
		},
		Storage: StorageConfig{
			Persist:   true,
			OutputDir: defaultOutputDir(),
			DBPath:    defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
