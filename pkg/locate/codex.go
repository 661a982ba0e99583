package locate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// codexLocator finds Codex CLI rollout files.
//
// Codex writes one rollout-*.jsonl per session under date-sharded
// directories: ~/.codex/sessions/YYYY/MM/DD/rollout-<ts>-<uuid>.jsonl.
type codexLocator struct {
	opts Options
}

func (c *codexLocator) Platform() string { return "codex" }

func (c *codexLocator) Roots() []string {
	home, err := c.opts.home()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".codex", "sessions")}
}

func (c *codexLocator) Candidates() ([]string, error) {
	var files []string
	for _, root := range c.Roots() {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Shards can vanish mid-walk; skip rather than fail.
				return nil
			}
			if d.IsDir() {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
