package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
	"github.com/mcpwatch/mcpwatch/pkg/event"
)

var savedAt = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() *aggregator.DisplaySnapshot {
	return &aggregator.DisplaySnapshot{
		SessionID:   "0b1c2d3e-4f50-6172-8394-a5b6c7d8e9f0",
		Platform:    "claude",
		Project:     "myproject",
		Status:      aggregator.StatusClosed,
		StartedAt:   savedAt.Add(-10 * time.Minute),
		EndedAt:     savedAt,
		Totals:      event.TokenDelta{Input: 1200, Output: 300},
		TotalTokens: 1500,
		CostUSD:     0.0081,
		Models:      []string{"claude-sonnet-4"},
		MCPCalls:    1,
		ToolCalls: []aggregator.ToolCall{{
			Index:     0,
			Tool:      "mcp__zen__chat",
			Server:    "zen",
			Timestamp: savedAt.Add(-5 * time.Minute),
			Tokens:    event.TokenDelta{Input: 100, Output: 50},
		}},
	}
}

func newTestStore(t *testing.T, db *bolt.DB) Store {
	t.Helper()

	s, err := New(Config{
		Root:  t.TempDir(),
		DB:    db,
		Clock: func() time.Time { return savedAt },
	})
	require.NoError(t, err)
	return s
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	path, err := s.Save(sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, path, filepath.Join("claude", "2026-08-29"))
	assert.Contains(t, filepath.Base(path), "myproject-0b1c2d3e")

	rec, err := s.Load(path)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, rec.File.SchemaVersion)
	assert.Equal(t, RecordType, rec.File.Type)
	assert.Equal(t, "myproject", rec.Session.Project)
	assert.Equal(t, int64(1500), rec.Session.TotalTokens)

	require.Len(t, rec.ToolCalls, 1)
	assert.Equal(t, "mcp__zen__chat", rec.ToolCalls[0].Tool)
	// Tool calls live only at the top level of the record.
	assert.Empty(t, rec.Session.ToolCalls)
}

func TestSave_DistinctRunsDistinctFiles(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)

	first := sampleSnapshot()
	second := sampleSnapshot()
	second.SessionID = "ffffffff-0000-0000-0000-000000000000"

	p1, err := s.Save(first)
	require.NoError(t, err)
	p2, err := s.Save(second)
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2, "a run must never overwrite another run's record")
}

func TestLoad_OlderSchemaTolerated(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	path := filepath.Join(t.TempDir(), "old.json")

	// A 1.0.0 record lacking fields added since then.
	old := map[string]any{
		"_file":      map[string]any{"schema_version": "1.0.0", "type": RecordType},
		"session":    map[string]any{"session_id": "abc", "platform": "codex", "project": "p"},
		"tool_calls": []any{},
	}
	data, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	rec, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "codex", rec.Session.Platform)
	assert.Zero(t, rec.Session.TotalTokens, "missing fields default additively")
}

func TestLoad_NewerSchemaRefused(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	path := filepath.Join(t.TempDir(), "future.json")

	future := map[string]any{
		"_file":      map[string]any{"schema_version": "2.0.0", "type": RecordType},
		"session":    map[string]any{},
		"tool_calls": []any{},
	}
	data, err := json.Marshal(future)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = s.Load(path)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestLoad_NotARecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	path := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hello":"world"}`), 0o600))

	_, err := s.Load(path)
	assert.ErrorIs(t, err, ErrNotARecord)
}

func TestList_IndexedRuns(t *testing.T) {
	t.Parallel()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "index.db"), 0o600, nil)
	require.NoError(t, err)
	defer db.Close()

	s := newTestStore(t, db)

	snap := sampleSnapshot()
	path, err := s.Save(snap)
	require.NoError(t, err)

	runs, err := s.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, snap.SessionID, runs[0].SessionID)
	assert.Equal(t, path, runs[0].Path)
	assert.Equal(t, int64(1500), runs[0].TotalTokens)
}

func TestNewerSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"1.1.0", "1.1.0", false},
		{"1.0.0", "1.1.0", false},
		{"1.2.0", "1.1.0", true},
		{"2.0.0", "1.1.0", true},
		{"1.1.1", "1.1.0", true},
		{"", "1.1.0", false},
		{"garbage", "1.1.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newerSchema(tt.a, tt.b), "newerSchema(%q, %q)", tt.a, tt.b)
	}
}
