package tail

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mcpwatch/mcpwatch/pkg/logger"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultBufferSize   = 256
	defaultFlushTimeout = 2 * time.Second
)

// watchState tracks read progress for one file.
type watchState struct {
	offset     int64
	pending    []byte // trailing bytes with no newline yet
	generation int
}

// tailer implements the Tailer interface.
type tailer struct {
	cfg     Config
	flush   time.Duration
	log     logger.Logger
	records chan Record

	// kick wakes the poll loop early on filesystem notifications.
	kick chan struct{}

	// ready closes once the initial scan has sized pre-existing
	// files; anything appended afterwards counts as new activity.
	ready chan struct{}

	mu      sync.Mutex
	running bool
	states  map[string]*watchState
}

// New creates a tailer.
func New(cfg Config, log logger.Logger) (Tailer, error) {
	if cfg.Discover == nil {
		return nil, ErrNoDiscover
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Positions == nil {
		cfg.Positions = NewMemoryPositionStore()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	if log == nil {
		log = logger.Noop()
	}

	return &tailer{
		cfg:     cfg,
		flush:   cfg.FlushTimeout,
		log:     log,
		records: make(chan Record, cfg.BufferSize),
		kick:    make(chan struct{}, 1),
		ready:   make(chan struct{}),
		states:  make(map[string]*watchState),
	}, nil
}

// Records implements Tailer.Records.
func (t *tailer) Records() <-chan Record {
	return t.records
}

// Run implements Tailer.Run.
func (t *tailer) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	t.running = true
	t.mu.Unlock()

	defer close(t.records)

	// Seed states for files that already exist. These read from their
	// size at discovery so a long-running session's history is not
	// replayed, unless FromStart asks for it.
	if err := t.scan(true); err != nil {
		t.log.Warn("initial scan failed", "error", err)
	}
	close(t.ready)

	stopNotify := t.startNotify()
	defer stopNotify()

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last pass picks up lines written just before
			// cancellation.
			t.drainPass()
			return ctx.Err()
		case <-ticker.C:
		case <-t.kick:
		}

		if err := t.scan(false); err != nil {
			t.log.Warn("rescan failed", "error", err)
		}
		t.pollAll(ctx)
	}
}

// scan reconciles the watched set with what Discover reports.
// Newly appearing files read from offset 0; files present on the
// initial scan read from their current size unless FromStart is set or
// Resume honors a stored position.
func (t *tailer) scan(initial bool) error {
	paths, err := t.cfg.Discover()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, exists := t.states[path]; exists {
			continue
		}

		st := &watchState{}
		if initial && !t.cfg.FromStart {
			st.offset = t.startingOffset(path)
		}
		t.states[path] = st
		t.log.Debug("watching file", "path", path, "offset", st.offset)
	}

	return nil
}

// startingOffset returns where to begin reading a pre-existing file:
// the file's current size, or a still-valid stored position when the
// run explicitly resumes. Stored offsets from earlier runs are never
// consulted otherwise; that would replay activity from before this
// run started.
func (t *tailer) startingOffset(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	size := info.Size()

	if t.cfg.Resume {
		stored, err := t.cfg.Positions.GetPosition(path)
		if err == nil && stored > 0 && stored <= size {
			return stored
		}
	}
	return size
}

func (t *tailer) pollAll(ctx context.Context) {
	for path, st := range t.states {
		if err := t.pollFile(ctx, path, st); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("poll failed", "path", path, "error", err)
		}
	}
}

// pollFile reads whatever the file has grown by since the last poll
// and emits the complete lines.
func (t *tailer) pollFile(ctx context.Context, path string, st *watchState) error {
	info, err := os.Stat(path)
	if err != nil {
		// Deleted or rotated away; keep state in case it returns.
		return nil
	}
	size := info.Size()

	if size < st.offset {
		// Truncation. Start over and tag subsequent records with a
		// new generation.
		t.log.Warn("file truncated, restarting from beginning",
			"path", path, "old_offset", st.offset, "new_size", size)
		st.offset = 0
		st.pending = nil
		st.generation++
	}

	if size == st.offset {
		return nil
	}

	data, err := readRange(path, st.offset, size-st.offset)
	if err != nil {
		return err
	}

	st.offset += int64(len(data))
	st.pending = append(st.pending, data...)

	if err := t.emitLines(ctx, path, st); err != nil {
		return err
	}

	if err := t.cfg.Positions.SetPosition(path, st.offset); err != nil {
		t.log.Warn("failed to persist position", "path", path, "error", err)
	}

	return nil
}

// emitLines drains complete lines from the pending buffer. The final
// partial line stays buffered until its newline arrives.
func (t *tailer) emitLines(ctx context.Context, path string, st *watchState) error {
	base := st.offset - int64(len(st.pending))

	for {
		idx := bytes.IndexByte(st.pending, '\n')
		if idx < 0 {
			return nil
		}

		line := st.pending[:idx]
		base += int64(idx + 1)
		st.pending = st.pending[idx+1:]

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}

		rec := Record{
			Path:       path,
			Line:       string(line),
			Offset:     base,
			Generation: st.generation,
		}

		select {
		case t.records <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainPass runs one final bounded poll so lines written right before
// shutdown still reach the consumer.
func (t *tailer) drainPass() {
	ctx, cancel := context.WithTimeout(context.Background(), t.flush)
	defer cancel()

	_ = t.scan(false)
	t.pollAll(ctx)
}

// startNotify wires fsnotify as a wake-up for the poll loop. Polling
// stays authoritative; a failed watcher only costs latency.
func (t *tailer) startNotify() func() {
	if len(t.cfg.Roots) == 0 {
		return func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Debug("fsnotify unavailable, polling only", "error", err)
		return func() {}
	}

	for _, root := range t.cfg.Roots {
		if err := watcher.Add(root); err != nil {
			t.log.Debug("cannot watch directory", "path", root, "error", err)
		}
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case t.kick <- struct{}{}:
					default:
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() { _ = watcher.Close() }
}

func readRange(path string, offset, length int64) ([]byte, error) {
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint:errcheck

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	return io.ReadAll(io.LimitReader(f, length))
}
