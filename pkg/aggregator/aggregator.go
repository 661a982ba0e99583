package aggregator

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpwatch/mcpwatch/pkg/event"
	"github.com/mcpwatch/mcpwatch/pkg/pricing"
)

const defaultDuplicateWindow = 5 * time.Minute

// Config configures an Aggregator.
type Config struct {
	// Platform and Project identify the session.
	Platform string
	Project  string

	// DuplicateWindow is how far back an identical call counts as a
	// duplicate. Defaults to 5 minutes.
	DuplicateWindow time.Duration

	// Pricing resolves token totals to dollar cost. Optional; without
	// it snapshots carry zero cost.
	Pricing pricing.Calculator

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	// ParseErrors supplies the current parse-error count for
	// snapshots. Optional.
	ParseErrors func() int64
}

// toolAgg is the running aggregate for one tool.
type toolAgg struct {
	name       string
	server     string
	calls      int64
	tokens     event.TokenDelta
	estimated  bool
	duplicates int64

	// perCall keeps each call's token total for variance detection.
	perCall []int64
}

// aggregator implements the Aggregator interface.
type aggregator struct {
	mu  sync.Mutex
	cfg Config

	id        string
	status    Status
	startedAt time.Time
	endedAt   time.Time

	// additive sums per-message deltas, native tool attributions, and
	// carried-over counter segments.
	additive event.TokenDelta

	// replace holds the latest cumulative total per source file.
	// Cumulative counters overwrite these, never sum.
	replace map[string]event.TokenDelta

	models    []string
	estimated bool

	tools     map[string]*toolAgg
	calls     []ToolCall
	lastSeen  map[string]time.Time
	incidents []Anomaly
}

// New creates an open session aggregator.
func New(cfg Config) Aggregator {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = defaultDuplicateWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &aggregator{
		cfg:       cfg,
		id:        uuid.NewString(),
		status:    StatusOpen,
		startedAt: cfg.Clock(),
		replace:   make(map[string]event.TokenDelta),
		tools:     make(map[string]*toolAgg),
		lastSeen:  make(map[string]time.Time),
	}
}

// Apply implements Aggregator.Apply.
func (a *aggregator) Apply(ev event.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusClosed {
		return ErrClosed
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch ev.Kind {
	case event.KindTokenUsage:
		a.applyUsage(ev)
	case event.KindToolCallEnd:
		a.applyToolCall(ev)
	case event.KindModelInfo:
		a.applyModel(ev)
	case event.KindToolCallStart:
		// Start events only matter to adapters for duration tracking.
	}

	return nil
}

func (a *aggregator) applyUsage(ev event.Event) {
	if !ev.Replace {
		a.additive = a.additive.Add(ev.Usage)
		return
	}

	if ev.CounterReset {
		// The counter went backwards: fold the finished segment into
		// the additive ledger and start the source over.
		a.additive = a.additive.Add(a.replace[ev.Source])
		a.incidents = append(a.incidents, Anomaly{
			Kind:      AnomalyCounterReset,
			Timestamp: ev.Timestamp,
			Detail:    "cumulative counter decreased, counting as a new segment",
		})
	}

	a.replace[ev.Source] = ev.Usage
}

func (a *aggregator) applyToolCall(ev event.Event) {
	key := ev.Server + "/" + ev.Tool
	agg, ok := a.tools[key]
	if !ok {
		agg = &toolAgg{name: ev.Tool, server: ev.Server}
		a.tools[key] = agg
	}

	agg.calls++
	agg.tokens = agg.tokens.Add(ev.Usage)
	agg.perCall = append(agg.perCall, ev.Usage.Total())
	if ev.Estimated {
		agg.estimated = true
		a.estimated = true
	} else {
		// Native attribution is the only token accounting these
		// platforms provide, so it also feeds the session totals.
		// Estimated shares never do; their platforms report totals
		// separately through token_usage events.
		a.additive = a.additive.Add(ev.Usage)
	}

	duplicate := a.checkDuplicate(ev)
	if duplicate {
		agg.duplicates++
		a.incidents = append(a.incidents, Anomaly{
			Kind:      AnomalyDuplicate,
			Tool:      ev.Tool,
			Server:    ev.Server,
			Timestamp: ev.Timestamp,
			Tokens:    ev.Usage.Total(),
			Detail:    "identical arguments repeated within the duplicate window",
		})
	}

	a.calls = append(a.calls, ToolCall{
		Index:       len(a.calls),
		Tool:        ev.Tool,
		Server:      ev.Server,
		Timestamp:   ev.Timestamp,
		Tokens:      ev.Usage,
		Estimated:   ev.Estimated,
		DurationMS:  ev.DurationMS,
		ArgBytes:    ev.ArgBytes,
		ResultBytes: ev.ResultBytes,
		Duplicate:   duplicate,
		Fingerprint: ev.Fingerprint,
	})
}

func (a *aggregator) checkDuplicate(ev event.Event) bool {
	if ev.Fingerprint == "" {
		return false
	}

	key := ev.Tool + "|" + ev.Fingerprint
	last, seen := a.lastSeen[key]
	a.lastSeen[key] = ev.Timestamp

	if !seen {
		return false
	}
	gap := ev.Timestamp.Sub(last)
	return gap >= 0 && gap <= a.cfg.DuplicateWindow
}

func (a *aggregator) applyModel(ev event.Event) {
	for _, m := range a.models {
		if m == ev.Model {
			return
		}
	}
	a.models = append(a.models, ev.Model)
}

// totals merges the additive ledger with the latest cumulative total
// of every source.
func (a *aggregator) totals() event.TokenDelta {
	t := a.additive
	for _, r := range a.replace {
		t = t.Add(r)
	}
	return t
}

// Anomalies implements Aggregator.Anomalies.
//
// Duplicates and counter resets are recorded as they happen; the
// statistical anomalies are recomputed from scratch on every call to
// avoid incremental drift.
func (a *aggregator) Anomalies() []Anomaly {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.computeAnomalies()
}

func (a *aggregator) computeAnomalies() []Anomaly {
	anomalies := append([]Anomaly(nil), a.incidents...)

	for _, agg := range a.tools {
		if agg.calls >= highFrequencyCalls {
			anomalies = append(anomalies, Anomaly{
				Kind:   AnomalyHighFrequency,
				Tool:   agg.name,
				Server: agg.server,
				Detail: fmt.Sprintf("%d calls this session", agg.calls),
			})
		}

		avg := float64(agg.tokens.Total()) / float64(agg.calls)
		if avg >= highAvgTokens {
			anomalies = append(anomalies, Anomaly{
				Kind:   AnomalyHighAvgTokens,
				Tool:   agg.name,
				Server: agg.server,
				Tokens: int64(avg),
				Detail: fmt.Sprintf("average %.0f tokens per call", avg),
			})
		}

		if len(agg.perCall) >= varianceMinCalls {
			mean, stddev := meanStddev(agg.perCall)
			threshold := mean + 2*stddev
			if stddev > 0 {
				for _, tokens := range agg.perCall {
					if float64(tokens) > threshold {
						anomalies = append(anomalies, Anomaly{
							Kind:   AnomalyHighVariance,
							Tool:   agg.name,
							Server: agg.server,
							Tokens: tokens,
							Detail: fmt.Sprintf("call used %d tokens against a mean of %.0f", tokens, mean),
						})
					}
				}
			}
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Timestamp.Before(anomalies[j].Timestamp)
	})
	return anomalies
}

func meanStddev(values []int64) (mean, stddev float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean = sum / n

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// Snapshot implements Aggregator.Snapshot.
func (a *aggregator) Snapshot() *DisplaySnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.snapshotLocked()
}

func (a *aggregator) snapshotLocked() *DisplaySnapshot {
	totals := a.totals()
	primaryModel := ""
	if len(a.models) > 0 {
		primaryModel = a.models[0]
	}

	snap := &DisplaySnapshot{
		SessionID:   a.id,
		Platform:    a.cfg.Platform,
		Project:     a.cfg.Project,
		Status:      a.status,
		StartedAt:   a.startedAt,
		EndedAt:     a.endedAt,
		CapturedAt:  a.cfg.Clock(),
		Totals:      totals,
		TotalTokens: totals.Total(),
		Estimated:   a.estimated,
		Models:      append([]string(nil), a.models...),
		MultiModel:  len(a.models) > 1,
		MCPCalls:    int64(len(a.calls)),
		ToolCalls:   append([]ToolCall(nil), a.calls...),
		Anomalies:   a.computeAnomalies(),
	}

	if denom := totals.Input + totals.CacheCreated + totals.CacheRead; denom > 0 {
		snap.CacheEfficiency = float64(totals.CacheRead) / float64(denom)
	}

	if a.cfg.Pricing != nil {
		est := a.cfg.Pricing.Cost(primaryModel, totals)
		snap.CostUSD = est.USD
		snap.PricingMissing = est.PricingMissing && totals.Total() > 0
	}

	if a.cfg.ParseErrors != nil {
		snap.ParseErrors = a.cfg.ParseErrors()
	}

	snap.Servers = a.serverSnapshots(primaryModel)
	return snap
}

// serverSnapshots groups tool aggregates by server, most expensive
// first.
func (a *aggregator) serverSnapshots(model string) []ServerSnapshot {
	byServer := make(map[string]*ServerSnapshot)
	for _, agg := range a.tools {
		srv, ok := byServer[agg.server]
		if !ok {
			srv = &ServerSnapshot{Server: agg.server}
			byServer[agg.server] = srv
		}

		ts := ToolSnapshot{
			Name:       agg.name,
			Calls:      agg.calls,
			Tokens:     agg.tokens,
			AvgTokens:  float64(agg.tokens.Total()) / float64(agg.calls),
			Estimated:  agg.estimated,
			Duplicates: agg.duplicates,
		}
		if a.cfg.Pricing != nil {
			ts.CostUSD = a.cfg.Pricing.Cost(model, agg.tokens).USD
		}

		srv.Calls += agg.calls
		srv.Tokens = srv.Tokens.Add(agg.tokens)
		srv.CostUSD += ts.CostUSD
		srv.Estimated = srv.Estimated || agg.estimated
		srv.Tools = append(srv.Tools, ts)
	}

	servers := make([]ServerSnapshot, 0, len(byServer))
	for _, srv := range byServer {
		sort.Slice(srv.Tools, func(i, j int) bool {
			return srv.Tools[i].Tokens.Total() > srv.Tools[j].Tokens.Total()
		})
		servers = append(servers, *srv)
	}
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Tokens.Total() > servers[j].Tokens.Total()
	})
	return servers
}

// Finalize implements Aggregator.Finalize.
func (a *aggregator) Finalize() *DisplaySnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusOpen {
		a.status = StatusClosed
		a.endedAt = a.cfg.Clock()
	}
	return a.snapshotLocked()
}
