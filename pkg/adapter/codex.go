package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/estimate"
	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

// codexAdapter parses Codex CLI rollout files.
//
// Codex exposes token usage only as a session-wide running total,
// decoupled from individual tool calls, and repeats the same total on
// consecutive records. The adapter suppresses duplicates and emits the
// total as a replacement counter; the aggregator overwrites, never
// sums. Tool calls carry no native token figures, so their tokens are
// estimated from argument and result sizes.
type codexAdapter struct {
	parseErrorCounter

	files map[string]*codexFileState
}

type codexFileState struct {
	generation int
	lastModel  string

	seenTotal bool
	lastTotal event.TokenDelta

	// pending holds MCP calls whose output record has not arrived yet.
	pending map[string]codexPendingCall
}

type codexPendingCall struct {
	tool    string
	server  string
	args    string
	started time.Time
}

type codexLine struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

type codexTokenUsage struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens"`
}

func newCodexAdapter() *codexAdapter {
	return &codexAdapter{
		files: make(map[string]*codexFileState),
	}
}

func (a *codexAdapter) Platform() string { return "codex" }

func (a *codexAdapter) Parse(rec tail.Record) ([]event.Event, error) {
	st := a.fileState(rec)

	var line codexLine
	if err := json.Unmarshal([]byte(rec.Line), &line); err != nil {
		a.bump()
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	ts := parseTimestamp(line.Timestamp)

	switch line.Type {
	case "turn_context":
		return a.parseTurnContext(rec, st, ts, line.Payload), nil
	case "event_msg":
		return a.parseEventMsg(rec, st, ts, line.Payload), nil
	case "response_item":
		return a.parseResponseItem(rec, st, ts, line.Payload), nil
	default:
		return nil, nil
	}
}

func (a *codexAdapter) parseTurnContext(rec tail.Record, st *codexFileState, ts time.Time, payload json.RawMessage) []event.Event {
	var p struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.Model == "" || p.Model == st.lastModel {
		return nil
	}

	st.lastModel = p.Model
	return []event.Event{{
		Kind:      event.KindModelInfo,
		Timestamp: ts,
		Source:    rec.Path,
		Model:     p.Model,
	}}
}

func (a *codexAdapter) parseEventMsg(rec tail.Record, st *codexFileState, ts time.Time, payload json.RawMessage) []event.Event {
	var p struct {
		Type string `json:"type"`
		Info struct {
			TotalTokenUsage codexTokenUsage `json:"total_token_usage"`
		} `json:"info"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.Type != "token_count" {
		return nil
	}

	total := event.TokenDelta{
		Input:     p.Info.TotalTokenUsage.InputTokens,
		Output:    p.Info.TotalTokenUsage.OutputTokens,
		CacheRead: p.Info.TotalTokenUsage.CachedInputTokens,
		Reasoning: p.Info.TotalTokenUsage.ReasoningOutputTokens,
	}
	if total.IsZero() {
		return nil
	}

	// Codex re-emits the same cumulative total on idle ticks.
	if st.seenTotal && total == st.lastTotal {
		return nil
	}

	reset := st.seenTotal && total.Total() < st.lastTotal.Total()
	st.seenTotal = true
	st.lastTotal = total

	return []event.Event{{
		Kind:         event.KindTokenUsage,
		Timestamp:    ts,
		Source:       rec.Path,
		Usage:        total,
		Replace:      true,
		CounterReset: reset,
	}}
}

func (a *codexAdapter) parseResponseItem(rec tail.Record, st *codexFileState, ts time.Time, payload json.RawMessage) []event.Event {
	var p struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
		CallID    string `json:"call_id"`
		Output    string `json:"output"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}

	switch p.Type {
	case "function_call":
		if !event.IsMCPTool(p.Name) {
			return nil
		}

		tool := event.NormalizeToolName(p.Name)
		server := event.ServerName(p.Name)
		st.pending[p.CallID] = codexPendingCall{
			tool:    tool,
			server:  server,
			args:    p.Arguments,
			started: ts,
		}

		return []event.Event{{
			Kind:        event.KindToolCallStart,
			Timestamp:   ts,
			Source:      rec.Path,
			Tool:        tool,
			Server:      server,
			Fingerprint: event.Fingerprint(p.Arguments),
			ArgBytes:    len(p.Arguments),
		}}

	case "function_call_output":
		call, ok := st.pending[p.CallID]
		if !ok {
			return nil
		}
		delete(st.pending, p.CallID)

		in, out := estimate.ToolCall(call.args, p.Output)
		var duration int64
		if !call.started.IsZero() && ts.After(call.started) {
			duration = ts.Sub(call.started).Milliseconds()
		}

		return []event.Event{{
			Kind:        event.KindToolCallEnd,
			Timestamp:   ts,
			Source:      rec.Path,
			Raw:         rec.Line,
			Usage:       event.TokenDelta{Input: int64(in), Output: int64(out)},
			Tool:        call.tool,
			Server:      call.server,
			Fingerprint: event.Fingerprint(call.args),
			ArgBytes:    len(call.args),
			ResultBytes: len(p.Output),
			Estimated:   true,
			DurationMS:  duration,
		}}
	}

	return nil
}

// Flush closes out calls that never saw a function_call_output, so a
// session killed mid-call still counts the call with an argument-side
// estimate.
func (a *codexAdapter) Flush() []event.Event {
	var events []event.Event
	for path, st := range a.files {
		for _, call := range st.pending {
			in, _ := estimate.ToolCall(call.args, "")
			events = append(events, event.Event{
				Kind:        event.KindToolCallEnd,
				Timestamp:   call.started,
				Source:      path,
				Usage:       event.TokenDelta{Input: int64(in)},
				Tool:        call.tool,
				Server:      call.server,
				Fingerprint: event.Fingerprint(call.args),
				ArgBytes:    len(call.args),
				Estimated:   true,
			})
		}
		st.pending = make(map[string]codexPendingCall)
	}
	return events
}

func (a *codexAdapter) fileState(rec tail.Record) *codexFileState {
	st, ok := a.files[rec.Path]
	if !ok || st.generation != rec.Generation {
		st = &codexFileState{
			generation: rec.Generation,
			pending:    make(map[string]codexPendingCall),
		}
		a.files[rec.Path] = st
	}
	return st
}
