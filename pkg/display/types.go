// Package display renders session snapshots for the terminal.
//
// Renderers consume only DisplaySnapshot values; none of them touch
// live aggregation state. Three modes: simple (compact summary lines),
// table (aligned per-server breakdown), and json (machine-readable).
package display

import (
	"io"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
)

// Renderer writes one snapshot to an output.
type Renderer interface {
	Render(w io.Writer, snap *aggregator.DisplaySnapshot) error
}

// Options configures rendering.
type Options struct {
	// PinnedServers sort before all others, in the order given.
	PinnedServers []string

	// Width overrides terminal width detection. 0 auto-detects,
	// falling back to 80 columns.
	Width int
}

// New returns the renderer for a display mode (simple, table, json).
func New(mode string, opts Options) (Renderer, error) {
	switch mode {
	case "simple":
		return &simpleRenderer{opts: opts}, nil
	case "table":
		return &tableRenderer{opts: opts}, nil
	case "json":
		return &jsonRenderer{}, nil
	default:
		return nil, ErrUnknownMode
	}
}
