package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
	"github.com/mcpwatch/mcpwatch/pkg/event"
)

func sampleSnapshot() *aggregator.DisplaySnapshot {
	started := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return &aggregator.DisplaySnapshot{
		SessionID:   "abc",
		Platform:    "claude",
		Project:     "myproject",
		Status:      aggregator.StatusOpen,
		StartedAt:   started,
		CapturedAt:  started.Add(5 * time.Minute),
		Totals:      event.TokenDelta{Input: 1_200_000, Output: 300_000, CacheRead: 800_000},
		TotalTokens: 2_300_000,
		CostUSD:     8.52,
		Models:      []string{"claude-sonnet-4"},
		MCPCalls:    7,
		Servers: []aggregator.ServerSnapshot{
			{
				Server: "filesystem",
				Calls:  5,
				Tokens: event.TokenDelta{Input: 40_000},
				Tools: []aggregator.ToolSnapshot{
					{Name: "mcp__filesystem__read", Calls: 5, Tokens: event.TokenDelta{Input: 40_000}, AvgTokens: 8000},
				},
			},
			{
				Server:    "zen",
				Calls:     2,
				Tokens:    event.TokenDelta{Input: 12_000},
				Estimated: true,
				Tools: []aggregator.ToolSnapshot{
					{Name: "mcp__zen__chat", Calls: 2, Tokens: event.TokenDelta{Input: 12_000}, AvgTokens: 6000, Estimated: true, Duplicates: 1},
				},
			},
		},
		Anomalies: []aggregator.Anomaly{
			{Kind: aggregator.AnomalyDuplicate, Tool: "mcp__zen__chat", Server: "zen"},
		},
	}
}

func TestNew_UnknownMode(t *testing.T) {
	t.Parallel()

	_, err := New("fancy", Options{})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("err = %v, want ErrUnknownMode", err)
	}
}

func TestSimple_Contents(t *testing.T) {
	t.Parallel()

	r, err := New("simple", Options{Width: 100})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"claude · myproject · open",
		"2.3M",
		"$8.52",
		"7 calls across 2 servers",
		"filesystem",
		"zen",
		"anomalies: 1 (1 duplicate)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimple_PinnedServersFirst(t *testing.T) {
	t.Parallel()

	r, err := New("simple", Options{PinnedServers: []string{"zen"}, Width: 100})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Index(out, "zen") > strings.Index(out, "filesystem") {
		t.Errorf("pinned server must render first:\n%s", out)
	}
}

func TestSimple_PricingMissing(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	snap.PricingMissing = true
	snap.CostUSD = 0

	r, _ := New("simple", Options{Width: 100})
	var buf bytes.Buffer
	if err := r.Render(&buf, snap); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "cost unknown") {
		t.Error("missing pricing must be surfaced, not shown as $0")
	}
}

func TestTable_Contents(t *testing.T) {
	t.Parallel()

	r, err := New("table", Options{Width: 120})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"SERVER", "TOOL", "mcp__zen__chat", "est", "1 dup", "total: 2.3M tokens"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestJSON_RoundTrips(t *testing.T) {
	t.Parallel()

	r, err := New("json", Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	var decoded aggregator.DisplaySnapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalTokens != 2_300_000 || decoded.Platform != "claude" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestHumanTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1_500, "1.5K"},
		{2_300_000, "2.3M"},
	}
	for _, tt := range tests {
		if got := humanTokens(tt.in); got != tt.want {
			t.Errorf("humanTokens(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
