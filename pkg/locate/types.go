// Package locate finds the log files each monitored platform writes
// for the current project.
//
// Locators never create files and never open the logs they find; they
// only resolve paths. The tailer owns reading.
package locate

import (
	"context"
	"os"
	"time"
)

// Locator resolves the log files of one platform.
type Locator interface {
	// Platform returns the platform identifier (claude, codex, gemini).
	Platform() string

	// Candidates returns the log files that currently exist for the
	// project, in no particular order. An empty slice is not an
	// error; the platform may simply not have started yet.
	Candidates() ([]string, error)

	// Roots returns the directories to rescan for files that appear
	// after monitoring starts. Directories need not exist yet.
	Roots() []string
}

// Options configures a locator. Zero values fall back to the ambient
// environment, which tests override.
type Options struct {
	// Home overrides the user home directory.
	Home string

	// WorkDir overrides the working directory used to derive the
	// project identity.
	WorkDir string

	// Env overrides environment lookup.
	Env func(string) string
}

func (o Options) home() (string, error) {
	if o.Home != "" {
		return o.Home, nil
	}
	return os.UserHomeDir()
}

func (o Options) workDir() (string, error) {
	if o.WorkDir != "" {
		return o.WorkDir, nil
	}
	return os.Getwd()
}

func (o Options) getenv(key string) string {
	if o.Env != nil {
		return o.Env(key)
	}
	return os.Getenv(key)
}

// New returns the locator for a platform.
func New(platform string, opts Options) (Locator, error) {
	switch platform {
	case "claude":
		return &claudeLocator{opts: opts}, nil
	case "codex":
		return &codexLocator{opts: opts}, nil
	case "gemini":
		return &geminiLocator{opts: opts}, nil
	default:
		return nil, ErrUnknownPlatform
	}
}

// WaitForActivity polls a locator until it yields at least one file or
// the context ends. Returns ErrNoActivity when the context ends first.
func WaitForActivity(ctx context.Context, loc Locator, interval time.Duration) ([]string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		files, err := loc.Candidates()
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrNoActivity
		case <-ticker.C:
		}
	}
}
