// Package collector wires one monitoring run together: a tailer
// feeding platform records through an adapter into the aggregator,
// with periodic snapshots for the renderer and a final persisted
// session record on shutdown.
//
// Each run owns its whole pipeline. Two runs never share state, so two
// projects can be tracked by two independent collectors safely.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/mcpwatch/mcpwatch/pkg/adapter"
	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
	"github.com/mcpwatch/mcpwatch/pkg/logger"
	"github.com/mcpwatch/mcpwatch/pkg/store"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

const defaultSnapshotInterval = time.Second

// Config configures a collector.
type Config struct {
	// Tailer produces raw log records. Required.
	Tailer tail.Tailer

	// Adapter translates records into events. Required.
	Adapter adapter.Adapter

	// Aggregator folds events into session state. Required.
	Aggregator aggregator.Aggregator

	// Store persists the final session record. Optional.
	Store store.Store

	// SnapshotInterval is how often a fresh snapshot is published.
	// Defaults to one second.
	SnapshotInterval time.Duration

	// Logger defaults to a no-op logger.
	Logger logger.Logger
}

// Collector drives one monitoring run.
type Collector struct {
	cfg   Config
	snaps chan *aggregator.DisplaySnapshot
}

// New creates a collector.
func New(cfg Config) (*Collector, error) {
	if cfg.Tailer == nil || cfg.Adapter == nil || cfg.Aggregator == nil {
		return nil, ErrIncomplete
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = defaultSnapshotInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}

	return &Collector{
		cfg:   cfg,
		snaps: make(chan *aggregator.DisplaySnapshot, 1),
	}, nil
}

// Snapshots returns the stream of periodic snapshots. A slow consumer
// only ever misses intermediate snapshots, never the latest: stale
// unconsumed snapshots are replaced, not queued.
func (c *Collector) Snapshots() <-chan *aggregator.DisplaySnapshot {
	return c.snaps
}

// Run consumes records until the context is cancelled, then drains the
// remaining records, finalizes the session, persists it, and returns
// the terminal snapshot. No record read from disk is dropped.
func (c *Collector) Run(ctx context.Context) (*aggregator.DisplaySnapshot, error) {
	tailDone := make(chan error, 1)
	go func() {
		tailDone <- c.cfg.Tailer.Run(ctx)
	}()

	ticker := time.NewTicker(c.cfg.SnapshotInterval)
	defer ticker.Stop()
	defer close(c.snaps)

	records := c.cfg.Tailer.Records()
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				// Tailer finished its drain pass; everything read
				// from disk has been applied.
				return c.finish(<-tailDone)
			}
			c.apply(rec)

		case <-ticker.C:
			c.publish(c.cfg.Aggregator.Snapshot())
		}
	}
}

func (c *Collector) apply(rec tail.Record) {
	events, err := c.cfg.Adapter.Parse(rec)
	if err != nil {
		c.cfg.Logger.Debug("skipping unparseable record",
			"path", rec.Path, "offset", rec.Offset, "error", err)
		return
	}

	for _, ev := range events {
		if err := c.cfg.Aggregator.Apply(ev); err != nil {
			c.cfg.Logger.Warn("event rejected", "kind", ev.Kind, "error", err)
		}
	}
}

// publish replaces any unconsumed snapshot with the newer one.
func (c *Collector) publish(snap *aggregator.DisplaySnapshot) {
	for {
		select {
		case c.snaps <- snap:
			return
		default:
			select {
			case <-c.snaps:
			default:
			}
		}
	}
}

func (c *Collector) finish(tailErr error) (*aggregator.DisplaySnapshot, error) {
	// Calls still waiting for their result record are counted with
	// what is known about them before the session closes.
	for _, ev := range c.cfg.Adapter.Flush() {
		if err := c.cfg.Aggregator.Apply(ev); err != nil {
			c.cfg.Logger.Warn("flush event rejected", "kind", ev.Kind, "error", err)
		}
	}

	snap := c.cfg.Aggregator.Finalize()
	c.publish(snap)

	if c.cfg.Store != nil {
		path, err := c.cfg.Store.Save(snap)
		if err != nil {
			c.cfg.Logger.Error("failed to persist session", "error", err)
			return snap, err
		}
		c.cfg.Logger.Info("session saved", "path", path,
			"tokens", snap.TotalTokens, "mcp_calls", snap.MCPCalls)
	}

	if tailErr != nil && !errors.Is(tailErr, context.Canceled) &&
		!errors.Is(tailErr, context.DeadlineExceeded) {
		return snap, tailErr
	}
	return snap, nil
}
