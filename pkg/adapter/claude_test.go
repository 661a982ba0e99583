package adapter

import (
	"testing"

	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

func rec(line string) tail.Record {
	return tail.Record{Path: "/logs/session.jsonl", Line: line}
}

func TestClaude_AssistantWithMCPTool(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	line := `{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{` +
		`"model":"claude-sonnet-4-20250514",` +
		`"usage":{"input_tokens":120,"output_tokens":45,"cache_creation_input_tokens":10,"cache_read_input_tokens":2000},` +
		`"content":[{"type":"text","text":"calling"},{"type":"tool_use","name":"mcp__zen__chat","input":{"prompt":"hi"}}]}}`

	events, err := a.Parse(rec(line))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (model_info + tool_call_end)", len(events))
	}

	if events[0].Kind != event.KindModelInfo || events[0].Model != "claude-sonnet-4-20250514" {
		t.Errorf("first event = %+v, want model_info", events[0])
	}

	end := events[1]
	if end.Kind != event.KindToolCallEnd {
		t.Fatalf("Kind = %s, want tool_call_end", end.Kind)
	}
	if end.Tool != "mcp__zen__chat" || end.Server != "zen" {
		t.Errorf("Tool/Server = %q/%q", end.Tool, end.Server)
	}
	if end.Estimated {
		t.Error("claude attribution is native, Estimated must be false")
	}
	want := event.TokenDelta{Input: 120, Output: 45, CacheCreated: 10, CacheRead: 2000}
	if end.Usage != want {
		t.Errorf("Usage = %+v, want %+v", end.Usage, want)
	}
	if end.Fingerprint == "" {
		t.Error("Fingerprint must be set when arguments are present")
	}
}

func TestClaude_AssistantWithoutTools(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	line := `{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{` +
		`"model":"claude-sonnet-4-20250514",` +
		`"usage":{"input_tokens":50,"output_tokens":20},` +
		`"content":[{"type":"text","text":"plain answer"}]}}`

	events, err := a.Parse(rec(line))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != event.KindTokenUsage {
		t.Errorf("Kind = %s, want token_usage", events[1].Kind)
	}
	if events[1].Replace {
		t.Error("claude deltas are additive, Replace must be false")
	}
}

func TestClaude_ModelInfoOnlyOnChange(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	line := `{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{` +
		`"model":"claude-sonnet-4","usage":{"input_tokens":1,"output_tokens":1},"content":[]}}`

	first, _ := a.Parse(rec(line))
	second, _ := a.Parse(rec(line))

	if countKind(first, event.KindModelInfo) != 1 {
		t.Error("first record must emit model_info")
	}
	if countKind(second, event.KindModelInfo) != 0 {
		t.Error("unchanged model must not re-emit model_info")
	}
}

func TestClaude_NonMCPToolBecomesSessionUsage(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	line := `{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{` +
		`"model":"m","usage":{"input_tokens":30,"output_tokens":5},` +
		`"content":[{"type":"tool_use","name":"Read","input":{"path":"/tmp/x"}}]}}`

	events, _ := a.Parse(rec(line))
	if countKind(events, event.KindToolCallEnd) != 0 {
		t.Error("built-in tools must not produce tool_call_end events")
	}
	if countKind(events, event.KindTokenUsage) != 1 {
		t.Error("usage must still be tracked at the session level")
	}
}

func TestClaude_UserRecordsSkipped(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	events, err := a.Parse(rec(`{"type":"user","message":{"content":"do the thing"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestClaude_MalformedRecordCounted(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	_, err := a.Parse(rec(`{"type":"assistant", busted`))
	if err == nil {
		t.Fatal("want error for malformed record")
	}
	if a.ParseErrors() != 1 {
		t.Errorf("ParseErrors = %d, want 1", a.ParseErrors())
	}

	// A bad line never stops subsequent parsing.
	events, err := a.Parse(rec(`{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{"model":"m","usage":{"input_tokens":1},"content":[]}}`))
	if err != nil || len(events) == 0 {
		t.Errorf("parsing must continue after a malformed record: %v", err)
	}
}

func TestClaude_TruncationResetsState(t *testing.T) {
	t.Parallel()

	a := newClaudeAdapter()
	line := `{"type":"assistant","timestamp":"2026-08-29T10:00:00Z","message":{"model":"m","usage":{"input_tokens":1},"content":[]}}`

	a.Parse(rec(line)) // nolint:errcheck

	// Same model after truncation must re-emit model_info because the
	// per-file state was reset.
	events, _ := a.Parse(tail.Record{Path: "/logs/session.jsonl", Line: line, Generation: 1})
	if countKind(events, event.KindModelInfo) != 1 {
		t.Error("generation bump must reset per-file state")
	}
}

func countKind(events []event.Event, kind event.Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
