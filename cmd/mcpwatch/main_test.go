package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestTrackCommandFlags tests track command flag parsing.
func TestTrackCommandFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCmd   trackCommand
		wantError bool
	}{
		{
			name: "default flags",
			args: []string{},
			wantCmd: trackCommand{
				wait:       time.Minute,
				configPath: "/test/config.yaml",
			},
		},
		{
			name: "platform override",
			args: []string{"-platform", "codex"},
			wantCmd: trackCommand{
				platform:   "codex",
				wait:       time.Minute,
				configPath: "/test/config.yaml",
			},
		},
		{
			name: "project and format",
			args: []string{"-project", "myapp", "-format", "table"},
			wantCmd: trackCommand{
				project:    "myapp",
				format:     "table",
				wait:       time.Minute,
				configPath: "/test/config.yaml",
			},
		},
		{
			name: "from start without persistence",
			args: []string{"-from-start", "-no-persist"},
			wantCmd: trackCommand{
				fromStart:  true,
				noPersist:  true,
				wait:       time.Minute,
				configPath: "/test/config.yaml",
			},
		},
		{
			name: "resume stored offsets",
			args: []string{"-resume"},
			wantCmd: trackCommand{
				resume:     true,
				wait:       time.Minute,
				configPath: "/test/config.yaml",
			},
		},
		{
			name: "custom wait",
			args: []string{"-wait", "30s"},
			wantCmd: trackCommand{
				wait:       30 * time.Second,
				configPath: "/test/config.yaml",
			},
		},
		{
			name:      "invalid wait",
			args:      []string{"-wait", "soon"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("track", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			platform := fs.String("platform", "", "platform to monitor")
			project := fs.String("project", "", "project name override")
			format := fs.String("format", "", "output format")
			fromStart := fs.Bool("from-start", false, "read existing logs from the beginning")
			resume := fs.Bool("resume", false, "continue from stored offsets")
			noPersist := fs.Bool("no-persist", false, "do not save the session record")
			wait := fs.Duration("wait", time.Minute, "how long to wait for platform activity")

			err := fs.Parse(tt.args)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := &trackCommand{
				platform:   *platform,
				project:    *project,
				format:     *format,
				fromStart:  *fromStart,
				resume:     *resume,
				noPersist:  *noPersist,
				wait:       *wait,
				configPath: "/test/config.yaml",
			}

			if got.platform != tt.wantCmd.platform {
				t.Errorf("platform = %q, want %q", got.platform, tt.wantCmd.platform)
			}
			if got.project != tt.wantCmd.project {
				t.Errorf("project = %q, want %q", got.project, tt.wantCmd.project)
			}
			if got.format != tt.wantCmd.format {
				t.Errorf("format = %q, want %q", got.format, tt.wantCmd.format)
			}
			if got.fromStart != tt.wantCmd.fromStart {
				t.Errorf("fromStart = %v, want %v", got.fromStart, tt.wantCmd.fromStart)
			}
			if got.resume != tt.wantCmd.resume {
				t.Errorf("resume = %v, want %v", got.resume, tt.wantCmd.resume)
			}
			if got.noPersist != tt.wantCmd.noPersist {
				t.Errorf("noPersist = %v, want %v", got.noPersist, tt.wantCmd.noPersist)
			}
			if got.wait != tt.wantCmd.wait {
				t.Errorf("wait = %v, want %v", got.wait, tt.wantCmd.wait)
			}
		})
	}
}

// TestTrackCommandLoadConfig tests that flags override the config file.
func TestTrackCommandLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	data := []byte(`platform: claude
display:
  default_mode: table
storage:
  persist: true
`)
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := &trackCommand{
		platform:   "gemini",
		format:     "json",
		noPersist:  true,
		configPath: configPath,
	}

	cfg, err := cmd.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Platform != "gemini" {
		t.Errorf("Platform = %q, want flag override %q", cfg.Platform, "gemini")
	}
	if cfg.Display.DefaultMode != "json" {
		t.Errorf("DefaultMode = %q, want flag override %q", cfg.Display.DefaultMode, "json")
	}
	if cfg.Storage.Persist {
		t.Error("Persist = true, want false after -no-persist")
	}
}

// TestTrackCommandLoadConfigInvalidPlatform tests validation of flag values.
func TestTrackCommandLoadConfigInvalidPlatform(t *testing.T) {
	cmd := &trackCommand{platform: "cursor"}

	if _, err := cmd.loadConfig(); err == nil {
		t.Fatal("expected validation error for unknown platform")
	}
}

// TestConfigCommandInit tests config file creation.
func TestConfigCommandInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	cmd := &configCommand{configPath: configPath}
	if err := cmd.Execute([]string{"init"}); err != nil {
		t.Fatalf("Execute(init) error: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// A second init must refuse to overwrite.
	if err := cmd.Execute([]string{"init"}); err == nil {
		t.Fatal("expected error when config file already exists")
	}
}

// TestConfigCommandUnknownAction tests the action dispatch.
func TestConfigCommandUnknownAction(t *testing.T) {
	cmd := &configCommand{}
	if err := cmd.Execute([]string{"delete"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
