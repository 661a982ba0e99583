// Package adapter translates platform log records into canonical events.
//
// Each monitored platform logs token usage and tool calls in its own
// wire format; an Adapter is the only code that understands that
// format. Adapters are stateful per file (cumulative counter baselines,
// in-flight tool calls) and reset that state when a file's generation
// changes after truncation.
package adapter

import (
	"sync/atomic"
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

// Adapter converts platform records into canonical events.
//
// Parse never fails fatally: a malformed record yields no events, an
// error describing the problem, and a bumped parse-error counter. The
// caller logs and moves on.
type Adapter interface {
	// Platform returns the platform identifier.
	Platform() string

	// Parse converts one log line into zero or more events.
	Parse(rec tail.Record) ([]event.Event, error)

	// Flush emits events for any in-flight state at end of watch,
	// such as tool calls whose result record never arrived because
	// the session was killed mid-call. Idempotent.
	Flush() []event.Event

	// ParseErrors returns how many records failed to parse so far.
	ParseErrors() int64
}

// New returns the adapter for a platform.
func New(platform string) (Adapter, error) {
	switch platform {
	case "claude":
		return newClaudeAdapter(), nil
	case "codex":
		return newCodexAdapter(), nil
	case "gemini":
		return newGeminiAdapter(), nil
	default:
		return nil, ErrUnknownPlatform
	}
}

// parseErrorCounter is embedded by all adapters.
type parseErrorCounter struct {
	count atomic.Int64
}

func (c *parseErrorCounter) ParseErrors() int64 {
	return c.count.Load()
}

func (c *parseErrorCounter) bump() {
	c.count.Add(1)
}

// parseTimestamp parses an RFC 3339 timestamp, falling back to the
// observation time for records that carry none or a malformed one.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Now()
}
