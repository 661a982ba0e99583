// Package aggregator folds canonical events into per-session MCP usage
// state and derives immutable snapshots for rendering and persistence.
//
// A session moves through exactly two states: Open, accepting events,
// and Closed after Finalize. The aggregator owns its SessionState
// exclusively; renderers and stores only ever see DisplaySnapshot
// copies taken atomically with respect to updates.
package aggregator

import (
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/event"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusOpen accepts events.
	StatusOpen Status = "open"

	// StatusClosed is terminal; events applied after Finalize are
	// rejected with ErrClosed.
	StatusClosed Status = "closed"
)

// AnomalyKind classifies a flagged observation.
type AnomalyKind string

const (
	// AnomalyDuplicate marks a tool call repeating the exact argument
	// fingerprint of a recent call to the same tool.
	AnomalyDuplicate AnomalyKind = "duplicate"

	// AnomalyHighVariance marks a call whose token cost exceeded the
	// tool's mean by more than two standard deviations.
	AnomalyHighVariance AnomalyKind = "high_variance"

	// AnomalyHighFrequency marks a tool called unusually often.
	AnomalyHighFrequency AnomalyKind = "high_frequency"

	// AnomalyHighAvgTokens marks a tool whose average call is
	// abnormally expensive.
	AnomalyHighAvgTokens AnomalyKind = "high_avg_tokens"

	// AnomalyCounterReset marks a cumulative platform counter that
	// went backwards, treated as a new session segment.
	AnomalyCounterReset AnomalyKind = "counter_reset"
)

// Anomaly detection thresholds.
const (
	highFrequencyCalls = 10
	highAvgTokens      = 500_000
	varianceMinCalls   = 3
)

// Anomaly is one flagged observation.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	Tool      string      `json:"tool,omitempty"`
	Server    string      `json:"server,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Detail    string      `json:"detail,omitempty"`
	Tokens    int64       `json:"tokens,omitempty"`
}

// ToolCall is one completed tool invocation, kept in session order.
type ToolCall struct {
	Index       int              `json:"index"`
	Tool        string           `json:"tool"`
	Server      string           `json:"server"`
	Timestamp   time.Time        `json:"timestamp"`
	Tokens      event.TokenDelta `json:"tokens"`
	Estimated   bool             `json:"estimated"`
	DurationMS  int64            `json:"duration_ms,omitempty"`
	ArgBytes    int              `json:"arg_bytes,omitempty"`
	ResultBytes int              `json:"result_bytes,omitempty"`
	Duplicate   bool             `json:"duplicate,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
}

// ToolSnapshot is the aggregate view of one tool.
type ToolSnapshot struct {
	Name       string           `json:"name"`
	Calls      int64            `json:"calls"`
	Tokens     event.TokenDelta `json:"tokens"`
	AvgTokens  float64          `json:"avg_tokens"`
	CostUSD    float64          `json:"cost_usd"`
	Estimated  bool             `json:"estimated"`
	Duplicates int64            `json:"duplicates"`
}

// ServerSnapshot is the aggregate view of one MCP server.
type ServerSnapshot struct {
	Server    string           `json:"server"`
	Calls     int64            `json:"calls"`
	Tokens    event.TokenDelta `json:"tokens"`
	CostUSD   float64          `json:"cost_usd"`
	Estimated bool             `json:"estimated"`
	Tools     []ToolSnapshot   `json:"tools"`
}

// DisplaySnapshot is an immutable point-in-time view of a session.
// Renderers and the session store consume only this, never the live
// aggregation state.
type DisplaySnapshot struct {
	SessionID  string    `json:"session_id"`
	Platform   string    `json:"platform"`
	Project    string    `json:"project"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitempty"`
	CapturedAt time.Time `json:"captured_at"`

	Totals          event.TokenDelta `json:"totals"`
	TotalTokens     int64            `json:"total_tokens"`
	CacheEfficiency float64          `json:"cache_efficiency"`
	CostUSD         float64          `json:"cost_usd"`
	PricingMissing  bool             `json:"pricing_missing,omitempty"`
	Estimated       bool             `json:"estimated"`

	Models     []string `json:"models"`
	MultiModel bool     `json:"multi_model"`

	MCPCalls  int64            `json:"mcp_calls"`
	Servers   []ServerSnapshot `json:"servers"`
	ToolCalls []ToolCall       `json:"tool_calls,omitempty"`
	Anomalies []Anomaly        `json:"anomalies,omitempty"`

	ParseErrors int64 `json:"parse_errors,omitempty"`
}

// Aggregator consumes events for one session.
type Aggregator interface {
	// Apply folds one event into the session. Returns ErrClosed after
	// Finalize.
	Apply(ev event.Event) error

	// Snapshot returns an independent copy of the current state,
	// safe to hold across further updates.
	Snapshot() *DisplaySnapshot

	// Anomalies recomputes and returns all current anomalies.
	Anomalies() []Anomaly

	// Finalize closes the session and returns the terminal snapshot.
	// Idempotent.
	Finalize() *DisplaySnapshot
}
