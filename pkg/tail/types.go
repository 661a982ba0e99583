// Package tail incrementally reads growing log files.
//
// The tailer polls a set of files on a fixed interval, remembers a
// byte offset per file, and emits complete lines as they appear. A
// trailing partial line is held in memory until its newline arrives.
// Filesystem notifications, when available, only wake the poll loop
// early; the polling pass remains the source of truth.
package tail

import (
	"context"
	"time"
)

// Record is one complete line read from a watched file.
type Record struct {
	// Path is the file the line came from.
	Path string

	// Line is the line content without its trailing newline.
	Line string

	// Offset is the byte offset immediately after the line's newline.
	Offset int64

	// Generation increments each time the file is truncated and
	// re-read from the beginning.
	Generation int
}

// PositionStore persists per-file byte offsets across runs.
type PositionStore interface {
	// GetPosition returns the stored offset for a file, or 0 if none
	// is stored.
	GetPosition(path string) (int64, error)

	// SetPosition stores the offset for a file.
	SetPosition(path string, offset int64) error
}

// DiscoverFunc lists the files that should currently be watched. It
// runs once per poll tick; files it stops returning remain watched at
// their last offset.
type DiscoverFunc func() ([]string, error)

// Config configures a Tailer.
type Config struct {
	// Discover lists files to watch. Required.
	Discover DiscoverFunc

	// Roots are directories to register for filesystem notifications.
	// Optional; an empty list disables notifications entirely.
	Roots []string

	// PollInterval is the time between polling passes.
	// Defaults to 500ms.
	PollInterval time.Duration

	// FromStart reads files that exist at discovery from offset 0
	// instead of from their current size.
	FromStart bool

	// Positions persists offsets across runs. Defaults to an
	// in-memory store. Offsets are always recorded; they are only
	// read back when Resume is set.
	Positions PositionStore

	// Resume starts pre-existing files at their stored offsets
	// instead of their size at discovery. Without it a run never
	// accounts activity that happened before it started, even when
	// an earlier run left positions behind.
	Resume bool

	// BufferSize is the capacity of the records channel.
	// Defaults to 256.
	BufferSize int

	// FlushTimeout bounds the final drain pass after cancellation.
	// Defaults to 2s.
	FlushTimeout time.Duration
}

// Tailer watches files and emits their new lines.
type Tailer interface {
	// Run polls until the context is cancelled, then performs one
	// final pass to drain lines written before cancellation.
	// Returns the context's error.
	Run(ctx context.Context) error

	// Records returns the channel of emitted lines. Closed when Run
	// returns.
	Records() <-chan Record
}
