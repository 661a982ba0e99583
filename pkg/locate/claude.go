package locate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// claudeLocator finds Claude Code session transcripts.
//
// Claude Code keeps one JSONL transcript per session under a
// per-project directory whose name is the working directory path with
// separators and dots flattened to dashes.
type claudeLocator struct {
	opts Options
}

func (c *claudeLocator) Platform() string { return "claude" }

func (c *claudeLocator) Roots() []string {
	home, err := c.opts.home()
	if err != nil {
		return nil
	}
	project, err := c.projectDirName()
	if err != nil {
		return nil
	}

	return []string{
		filepath.Join(home, ".claude", "projects", project),
		filepath.Join(home, ".config", "claude", "projects", project),
	}
}

func (c *claudeLocator) Candidates() ([]string, error) {
	var files []string
	for _, root := range c.Roots() {
		matches, err := filepath.Glob(filepath.Join(root, "*.jsonl"))
		if err != nil {
			return nil, fmt.Errorf("scanning claude projects: %w", err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func (c *claudeLocator) projectDirName() (string, error) {
	wd, err := c.opts.workDir()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return mungeProjectPath(wd), nil
}

// mungeProjectPath flattens an absolute path the way Claude Code names
// its per-project directories: path separators and dots become dashes,
// so /Users/dev/my.app becomes -Users-dev-my-app.
func mungeProjectPath(path string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", ".", "-", "_", "-")
	return r.Replace(path)
}
