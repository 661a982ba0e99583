// Package store persists finished sessions as versioned JSON records
// and keeps a BoltDB index of saved runs for cross-session reporting.
//
// Records are append-only: each run writes its own file under
// <root>/<platform>/<date>/<project>-<runid>.json and never overwrites
// another run's record.
package store

import (
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
)

// SchemaVersion is the record format written by this build. Loads
// accept any same-or-older version additively and refuse newer ones.
const SchemaVersion = "1.1.0"

// RecordType identifies a session record file.
const RecordType = "mcpwatch_session"

// FileHeader is the self-describing header of every record.
type FileHeader struct {
	SchemaVersion string `json:"schema_version"`
	Type          string `json:"type"`
}

// Record is one saved session: a header, the session aggregate, and
// the flat tool call history in session order.
type Record struct {
	File      FileHeader                  `json:"_file"`
	Session   *aggregator.DisplaySnapshot `json:"session"`
	ToolCalls []aggregator.ToolCall       `json:"tool_calls"`
}

// RunInfo is the indexed summary of a saved run.
type RunInfo struct {
	SessionID   string    `json:"session_id"`
	Platform    string    `json:"platform"`
	Project     string    `json:"project"`
	Path        string    `json:"path"`
	SavedAt     time.Time `json:"saved_at"`
	TotalTokens int64     `json:"total_tokens"`
	CostUSD     float64   `json:"cost_usd"`
}

// Store saves and loads session records.
type Store interface {
	// Save writes a session record and indexes it. Returns the path
	// of the written file. Saving the same run again overwrites its
	// own record only.
	Save(snap *aggregator.DisplaySnapshot) (string, error)

	// Load reads a record, tolerating older schema versions. Returns
	// ErrSchemaTooNew for records written by a newer build.
	Load(path string) (*Record, error)

	// List returns the indexed runs, most recent first.
	List() ([]RunInfo, error)
}
