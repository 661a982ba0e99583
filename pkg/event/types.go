// Package event defines the canonical event model shared by all platform
// adapters. Adapters translate heterogeneous platform records into Events;
// the aggregator consumes only Events and never sees platform wire formats.
//
// An Event is immutable once emitted. Ordering within a single source file
// is emission order; ordering across files is timestamp-based with ties
// broken by file then offset.
package event

import (
	"time"
)

// Kind identifies the category of an Event.
type Kind string

// Event kinds.
const (
	// KindTokenUsage carries a token delta or cumulative replacement.
	KindTokenUsage Kind = "token_usage"

	// KindToolCallStart marks the beginning of a tool invocation.
	KindToolCallStart Kind = "tool_call_start"

	// KindToolCallEnd carries the completed tool invocation with its
	// native or estimated token attribution.
	KindToolCallEnd Kind = "tool_call_end"

	// KindModelInfo reports the model identifier in use.
	KindModelInfo Kind = "model_info"
)

// TokenDelta is a token breakdown by category.
//
// Invariant: all counts are >= 0. Negative deltas are never emitted;
// a decreasing upstream counter is handled by the adapter as a baseline
// reset, not a negative delta.
type TokenDelta struct {
	Input        int64 `json:"input"`
	Output       int64 `json:"output"`
	CacheCreated int64 `json:"cache_created"`
	CacheRead    int64 `json:"cache_read"`
	Reasoning    int64 `json:"reasoning"`
}

// Total returns the sum of all token categories.
func (d TokenDelta) Total() int64 {
	return d.Input + d.Output + d.CacheCreated + d.CacheRead + d.Reasoning
}

// IsZero reports whether every category is zero.
func (d TokenDelta) IsZero() bool {
	return d.Total() == 0
}

// Add returns the category-wise sum of two deltas.
func (d TokenDelta) Add(other TokenDelta) TokenDelta {
	return TokenDelta{
		Input:        d.Input + other.Input,
		Output:       d.Output + other.Output,
		CacheCreated: d.CacheCreated + other.CacheCreated,
		CacheRead:    d.CacheRead + other.CacheRead,
		Reasoning:    d.Reasoning + other.Reasoning,
	}
}

// Event is the canonical unit produced by a platform adapter.
type Event struct {
	// Kind is the event category.
	Kind Kind

	// Timestamp is when the underlying platform record was produced.
	// Falls back to observation time when the record carries none.
	Timestamp time.Time

	// Source is the absolute path of the file the event was derived from.
	Source string

	// Raw is the original platform record, passed through opaquely for
	// verbose diagnostics. Never interpreted downstream.
	Raw string

	// Usage is the token breakdown for token_usage and tool_call_end events.
	Usage TokenDelta

	// Replace marks Usage as a cumulative session total that must
	// overwrite, never sum with, previously applied counters from the
	// same source. Only set by cumulative-counter adapters.
	Replace bool

	// CounterReset marks a cumulative source whose total decreased,
	// interpreted as a new session segment.
	CounterReset bool

	// Tool is the normalized tool name (tool_call_* events).
	Tool string

	// Server is the MCP server the tool belongs to (tool_call_* events).
	Server string

	// Fingerprint is a content hash of the call arguments, used for
	// duplicate detection. Empty when arguments were unavailable.
	Fingerprint string

	// ArgBytes and ResultBytes are the serialized payload sizes of the
	// call, recorded for diagnostics and estimation review.
	ArgBytes    int
	ResultBytes int

	// Estimated marks Usage as derived from content size rather than
	// native platform accounting. Must survive to the snapshot.
	Estimated bool

	// DurationMS is the tool call duration, 0 when unknown.
	DurationMS int64

	// Model is the model identifier (model_info events).
	Model string
}

// Validate checks basic invariants on the event.
func (e *Event) Validate() error {
	switch e.Kind {
	case KindTokenUsage, KindToolCallStart, KindToolCallEnd, KindModelInfo:
	default:
		return ErrUnknownKind
	}

	if e.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	if e.Usage.Input < 0 || e.Usage.Output < 0 || e.Usage.CacheCreated < 0 ||
		e.Usage.CacheRead < 0 || e.Usage.Reasoning < 0 {
		return ErrNegativeTokens
	}

	if (e.Kind == KindToolCallStart || e.Kind == KindToolCallEnd) && e.Tool == "" {
		return ErrNoToolName
	}

	if e.Kind == KindModelInfo && e.Model == "" {
		return ErrNoModel
	}

	return nil
}
