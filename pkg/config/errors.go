package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidPlatform is returned when the platform is not recognized.
	ErrInvalidPlatform = errors.New("invalid platform: must be claude, codex, or gemini")

	// ErrInvalidPollInterval is returned when poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be > 0")

	// ErrInvalidFlushTimeout is returned when flush timeout is <= 0.
	ErrInvalidFlushTimeout = errors.New("invalid flush timeout: must be > 0")

	// ErrInvalidDuplicateWindow is returned when the duplicate window is <= 0.
	ErrInvalidDuplicateWindow = errors.New("invalid duplicate window: must be > 0")

	// ErrInvalidDisplayMode is returned when display mode is not recognized.
	ErrInvalidDisplayMode = errors.New("invalid display mode: must be simple, table, or json")

	// ErrInvalidRefreshRate is returned when refresh rate is <= 0.
	ErrInvalidRefreshRate = errors.New("invalid refresh rate: must be > 0")

	// ErrNoOutputDir is returned when persistence is on without an output directory.
	ErrNoOutputDir = errors.New("no output directory specified for session records")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
