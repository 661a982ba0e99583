package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

// claudeAdapter parses Claude Code session transcripts.
//
// Claude Code attributes token usage natively: each assistant message
// carries its own usage block, so a message that invokes an MCP tool
// yields a tool_call_end with exact token figures and no estimation.
type claudeAdapter struct {
	parseErrorCounter

	files map[string]*claudeFileState
}

type claudeFileState struct {
	generation int
	lastModel  string
}

type claudeLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Model   string          `json:"model"`
		Usage   claudeUsage     `json:"usage"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type claudeUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func newClaudeAdapter() *claudeAdapter {
	return &claudeAdapter{
		files: make(map[string]*claudeFileState),
	}
}

func (a *claudeAdapter) Platform() string { return "claude" }

// Flush has nothing to do: every usage figure arrives attached to a
// complete message record.
func (a *claudeAdapter) Flush() []event.Event { return nil }

func (a *claudeAdapter) Parse(rec tail.Record) ([]event.Event, error) {
	st := a.fileState(rec)

	var line claudeLine
	if err := json.Unmarshal([]byte(rec.Line), &line); err != nil {
		a.bump()
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	// Only assistant messages carry usage and tool invocations.
	if line.Type != "assistant" {
		return nil, nil
	}

	ts := parseTimestamp(line.Timestamp)
	usage := event.TokenDelta{
		Input:        line.Message.Usage.InputTokens,
		Output:       line.Message.Usage.OutputTokens,
		CacheCreated: line.Message.Usage.CacheCreationInputTokens,
		CacheRead:    line.Message.Usage.CacheReadInputTokens,
	}

	var events []event.Event

	if model := line.Message.Model; model != "" && model != st.lastModel {
		st.lastModel = model
		events = append(events, event.Event{
			Kind:      event.KindModelInfo,
			Timestamp: ts,
			Source:    rec.Path,
			Model:     model,
		})
	}

	if tool := firstMCPToolUse(line.Message.Content); tool != nil {
		args := string(tool.Input)
		events = append(events, event.Event{
			Kind:        event.KindToolCallEnd,
			Timestamp:   ts,
			Source:      rec.Path,
			Raw:         rec.Line,
			Usage:       usage,
			Tool:        event.NormalizeToolName(tool.Name),
			Server:      event.ServerName(tool.Name),
			Fingerprint: event.Fingerprint(args),
			ArgBytes:    len(args),
		})
		return events, nil
	}

	if !usage.IsZero() {
		events = append(events, event.Event{
			Kind:      event.KindTokenUsage,
			Timestamp: ts,
			Source:    rec.Path,
			Usage:     usage,
		})
	}

	return events, nil
}

// firstMCPToolUse returns the first MCP tool_use block in a message's
// content, or nil. Content can be a plain string for user text, which
// never contains tool blocks.
func firstMCPToolUse(content json.RawMessage) *claudeContentBlock {
	if len(content) == 0 || content[0] != '[' {
		return nil
	}

	var blocks []claudeContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	for i := range blocks {
		if blocks[i].Type == "tool_use" && event.IsMCPTool(blocks[i].Name) {
			return &blocks[i]
		}
	}
	return nil
}

func (a *claudeAdapter) fileState(rec tail.Record) *claudeFileState {
	st, ok := a.files[rec.Path]
	if !ok || st.generation != rec.Generation {
		st = &claudeFileState{generation: rec.Generation}
		a.files[rec.Path] = st
	}
	return st
}
