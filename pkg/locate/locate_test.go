package locate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNew_UnknownPlatform(t *testing.T) {
	t.Parallel()

	_, err := New("cursor", Options{})
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("err = %v, want ErrUnknownPlatform", err)
	}
}

func TestMungeProjectPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/Users/dev/myproject", "-Users-dev-myproject"},
		{"/home/dev/my.app", "-home-dev-my-app"},
		{"/srv/data_pipe", "-srv-data-pipe"},
	}
	for _, tt := range tests {
		if got := mungeProjectPath(tt.in); got != tt.want {
			t.Errorf("mungeProjectPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClaude_Candidates(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	work := "/home/dev/myproject"
	session := filepath.Join(home, ".claude", "projects", "-home-dev-myproject", "abc123.jsonl")
	writeFile(t, session)
	// A different project's transcript must not match.
	writeFile(t, filepath.Join(home, ".claude", "projects", "-home-dev-other", "def456.jsonl"))

	loc, err := New("claude", Options{Home: home, WorkDir: work})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != session {
		t.Errorf("Candidates() = %v, want [%s]", files, session)
	}
}

func TestCodex_Candidates(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	rollout := filepath.Join(home, ".codex", "sessions", "2026", "08", "29", "rollout-2026-08-29T10-00-00-abc.jsonl")
	writeFile(t, rollout)
	// Non-rollout files in the shard are ignored.
	writeFile(t, filepath.Join(home, ".codex", "sessions", "2026", "08", "29", "history.json"))

	loc, err := New("codex", Options{Home: home})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != rollout {
		t.Errorf("Candidates() = %v, want [%s]", files, rollout)
	}
}

func TestGemini_EnvWins(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	outfile := filepath.Join(home, "custom-telemetry.jsonl")
	writeFile(t, outfile)
	// settings.json points elsewhere; the env var must win.
	writeFile(t, filepath.Join(home, ".gemini", "telemetry.log"))

	loc, err := New("gemini", Options{
		Home: home,
		Env: func(key string) string {
			if key == geminiTelemetryEnv {
				return outfile
			}
			return ""
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != outfile {
		t.Errorf("Candidates() = %v, want [%s]", files, outfile)
	}
}

func TestGemini_SettingsFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	outfile := filepath.Join(home, "telemetry", "out.jsonl")
	writeFile(t, outfile)

	settings := filepath.Join(home, ".gemini", "settings.json")
	writeFile(t, settings)
	content := `{"telemetry": {"enabled": true, "outfile": "` + outfile + `"}}`
	if err := os.WriteFile(settings, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	loc, err := New("gemini", Options{Home: home, Env: func(string) string { return "" }})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != outfile {
		t.Errorf("Candidates() = %v, want [%s]", files, outfile)
	}
}

func TestGemini_SettingsRelativePath(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	outfile := filepath.Join(home, ".gemini", "telemetry", "out.jsonl")
	writeFile(t, outfile)

	// Relative outfile paths resolve against ~/.gemini, never the
	// process working directory.
	settings := filepath.Join(home, ".gemini", "settings.json")
	content := `{"telemetry": {"outfile": "telemetry/out.jsonl"}}`
	writeFile(t, settings)
	if err := os.WriteFile(settings, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	loc, err := New("gemini", Options{Home: home, Env: func(string) string { return "" }})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != outfile {
		t.Errorf("Candidates() = %v, want [%s]", files, outfile)
	}
}

func TestGemini_EnvTildeExpanded(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	outfile := filepath.Join(home, "logs", "telemetry.jsonl")
	writeFile(t, outfile)

	loc, err := New("gemini", Options{
		Home: home,
		Env: func(key string) string {
			if key == geminiTelemetryEnv {
				return "~/logs/telemetry.jsonl"
			}
			return ""
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != outfile {
		t.Errorf("Candidates() = %v, want [%s]", files, outfile)
	}
}

func TestGemini_DefaultPath(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	def := filepath.Join(home, ".gemini", "telemetry.log")
	writeFile(t, def)

	loc, err := New("gemini", Options{Home: home, Env: func(string) string { return "" }})
	if err != nil {
		t.Fatal(err)
	}

	files, err := loc.Candidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != def {
		t.Errorf("Candidates() = %v, want [%s]", files, def)
	}
}

func TestWaitForActivity_FileAppears(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	loc, err := New("codex", Options{Home: home})
	if err != nil {
		t.Fatal(err)
	}

	rollout := filepath.Join(home, ".codex", "sessions", "2026", "08", "29", "rollout-x.jsonl")
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.MkdirAll(filepath.Dir(rollout), 0o750)
		_ = os.WriteFile(rollout, []byte("{}\n"), 0o600)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	files, err := WaitForActivity(ctx, loc, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForActivity: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("files = %v, want one rollout", files)
	}
}

func TestWaitForActivity_Timeout(t *testing.T) {
	t.Parallel()

	loc, err := New("codex", Options{Home: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = WaitForActivity(ctx, loc, 10*time.Millisecond)
	if !errors.Is(err, ErrNoActivity) {
		t.Errorf("err = %v, want ErrNoActivity", err)
	}
}
