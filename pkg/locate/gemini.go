package locate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// geminiTelemetryEnv points directly at the telemetry file when set,
// taking precedence over settings.json.
const geminiTelemetryEnv = "GEMINI_TELEMETRY_OUTFILE"

// geminiLocator finds the Gemini CLI telemetry file.
//
// Resolution order: the GEMINI_TELEMETRY_OUTFILE environment variable,
// then telemetry.outfile in ~/.gemini/settings.json, then the default
// ~/.gemini/telemetry.log.
type geminiLocator struct {
	opts Options
}

func (g *geminiLocator) Platform() string { return "gemini" }

func (g *geminiLocator) Roots() []string {
	path := g.resolve()
	if path == "" {
		return nil
	}
	return []string{filepath.Dir(path)}
}

func (g *geminiLocator) Candidates() ([]string, error) {
	path := g.resolve()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return []string{path}, nil
}

func (g *geminiLocator) resolve() string {
	if path := g.opts.getenv(geminiTelemetryEnv); path != "" {
		return g.expandHome(path)
	}

	home, err := g.opts.home()
	if err != nil {
		return ""
	}
	geminiDir := filepath.Join(home, ".gemini")

	if path := outfileFromSettings(filepath.Join(geminiDir, "settings.json")); path != "" {
		path = g.expandHome(path)
		// Gemini documents relative outfile paths as relative to its
		// own directory, not to whatever the process cwd happens to be.
		if !filepath.IsAbs(path) {
			path = filepath.Join(geminiDir, path)
		}
		return path
	}

	return filepath.Join(geminiDir, "telemetry.log")
}

// expandHome replaces a leading ~ with the user's home directory.
func (g *geminiLocator) expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := g.opts.home()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// outfileFromSettings reads telemetry.outfile from a Gemini CLI
// settings file. Returns empty on any failure; the caller falls back
// to the default location.
func outfileFromSettings(path string) string {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return ""
	}

	var settings struct {
		Telemetry struct {
			Outfile string `json:"outfile"`
		} `json:"telemetry"`
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return ""
	}
	return settings.Telemetry.Outfile
}
