package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

// Gemini CLI telemetry metric names.
const (
	geminiMetricTokenUsage  = "gemini_cli.token.usage"
	geminiMetricToolCalls   = "gemini_cli.tool.call.count"
	geminiMetricToolLatency = "gemini_cli.tool.call.latency"
)

// geminiAdapter parses Gemini CLI telemetry files.
//
// Gemini logs OpenTelemetry metric points: one token.usage point per
// token category per exchange, one tool.call.count point per tool
// invocation. Tokens are not sub-divided per tool call, so a tool call
// is attributed the tokens accumulated since the previous call and the
// result is marked estimated. Thought tokens are Gemini's reasoning
// output and tracked in their own category.
type geminiAdapter struct {
	parseErrorCounter

	files map[string]*geminiFileState
}

type geminiFileState struct {
	generation int
	lastModel  string

	// pending accumulates token.usage points for attribution to the
	// next tool call.
	pending event.TokenDelta

	// latencies holds tool.call.latency values keyed by function name.
	latencies map[string]int64
}

type geminiMetricLine struct {
	Name       string `json:"name"`
	MetricName string `json:"metric_name"`
	Value      int64  `json:"value"`
	Timestamp  string `json:"timestamp"`
	Attributes struct {
		Type         string `json:"type"`
		Model        string `json:"model"`
		ToolType     string `json:"tool_type"`
		FunctionName string `json:"function_name"`
		DurationMS   int64  `json:"duration_ms"`
	} `json:"attributes"`
}

func newGeminiAdapter() *geminiAdapter {
	return &geminiAdapter{
		files: make(map[string]*geminiFileState),
	}
}

func (a *geminiAdapter) Platform() string { return "gemini" }

// Flush has nothing to do: pending tokens were already counted at the
// session level when their metric points arrived.
func (a *geminiAdapter) Flush() []event.Event { return nil }

func (a *geminiAdapter) Parse(rec tail.Record) ([]event.Event, error) {
	st := a.fileState(rec)

	var line geminiMetricLine
	if err := json.Unmarshal([]byte(rec.Line), &line); err != nil {
		a.bump()
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	metric := line.Name
	if metric == "" {
		metric = line.MetricName
	}
	ts := parseTimestamp(line.Timestamp)

	switch {
	case strings.Contains(metric, geminiMetricTokenUsage):
		return a.parseTokenUsage(rec, st, ts, &line), nil
	case strings.Contains(metric, geminiMetricToolCalls):
		return a.parseToolCall(rec, st, ts, &line), nil
	case strings.Contains(metric, geminiMetricToolLatency):
		if name := line.Attributes.FunctionName; name != "" {
			st.latencies[name] = line.Value
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (a *geminiAdapter) parseTokenUsage(rec tail.Record, st *geminiFileState, ts time.Time, line *geminiMetricLine) []event.Event {
	var usage event.TokenDelta
	switch line.Attributes.Type {
	case "input":
		usage.Input = line.Value
	case "output":
		usage.Output = line.Value
	case "thought":
		usage.Reasoning = line.Value
	case "cache":
		usage.CacheRead = line.Value
	default:
		return nil
	}

	st.pending = st.pending.Add(usage)

	var events []event.Event

	if model := line.Attributes.Model; model != "" && model != st.lastModel {
		st.lastModel = model
		events = append(events, event.Event{
			Kind:      event.KindModelInfo,
			Timestamp: ts,
			Source:    rec.Path,
			Model:     model,
		})
	}

	if !usage.IsZero() {
		events = append(events, event.Event{
			Kind:      event.KindTokenUsage,
			Timestamp: ts,
			Source:    rec.Path,
			Usage:     usage,
		})
	}

	return events
}

func (a *geminiAdapter) parseToolCall(rec tail.Record, st *geminiFileState, ts time.Time, line *geminiMetricLine) []event.Event {
	// Native tools (file reads, shell) are not MCP traffic.
	if line.Attributes.ToolType != "mcp" {
		return nil
	}
	name := line.Attributes.FunctionName
	if !event.IsMCPTool(name) {
		return nil
	}

	duration := line.Attributes.DurationMS
	if duration == 0 {
		duration = st.latencies[name]
	}
	delete(st.latencies, name)

	// Attribute the tokens accumulated since the previous tool call.
	// Gemini does not sub-divide tokens per call, so this share is an
	// estimate by construction.
	usage := st.pending
	st.pending = event.TokenDelta{}

	return []event.Event{{
		Kind:       event.KindToolCallEnd,
		Timestamp:  ts,
		Source:     rec.Path,
		Raw:        rec.Line,
		Usage:      usage,
		Tool:       event.NormalizeToolName(name),
		Server:     event.ServerName(name),
		Estimated:  true,
		DurationMS: duration,
	}}
}

func (a *geminiAdapter) fileState(rec tail.Record) *geminiFileState {
	st, ok := a.files[rec.Path]
	if !ok || st.generation != rec.Generation {
		st = &geminiFileState{
			generation: rec.Generation,
			latencies:  make(map[string]int64),
		}
		a.files[rec.Path] = st
	}
	return st
}
