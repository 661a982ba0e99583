package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"golang.org/x/term"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
)

const fallbackWidth = 80

// simpleRenderer writes a compact multi-line summary.
type simpleRenderer struct {
	opts Options
}

func (r *simpleRenderer) Render(w io.Writer, snap *aggregator.DisplaySnapshot) error {
	var b strings.Builder

	elapsed := sessionElapsed(snap)
	fmt.Fprintf(&b, "%s · %s · %s · %s\n", snap.Platform, snap.Project, snap.Status, elapsed)

	mark := ""
	if snap.Estimated {
		mark = "~"
	}
	fmt.Fprintf(&b, "tokens: %s%s (in %s, out %s, cache %s read / %s created)",
		mark,
		humanTokens(snap.TotalTokens),
		humanTokens(snap.Totals.Input),
		humanTokens(snap.Totals.Output+snap.Totals.Reasoning),
		humanTokens(snap.Totals.CacheRead),
		humanTokens(snap.Totals.CacheCreated))
	if snap.CacheEfficiency > 0 {
		fmt.Fprintf(&b, " · cache %.1f%%", snap.CacheEfficiency*100)
	}
	if snap.PricingMissing {
		b.WriteString(" · cost unknown (no pricing for model)")
	} else {
		fmt.Fprintf(&b, " · $%.4f", snap.CostUSD)
	}
	b.WriteByte('\n')

	if len(snap.Models) > 0 {
		fmt.Fprintf(&b, "models: %s", strings.Join(snap.Models, ", "))
		if snap.MultiModel {
			b.WriteString(" (multi-model)")
		}
		b.WriteByte('\n')
	}

	servers := orderServers(snap.Servers, r.opts.PinnedServers)
	fmt.Fprintf(&b, "mcp: %d calls across %d servers\n", snap.MCPCalls, len(servers))
	for _, srv := range servers {
		srvMark := ""
		if srv.Estimated {
			srvMark = "~"
		}
		fmt.Fprintf(&b, "  %-20s %4d calls  %s%s tok  $%.4f\n",
			srv.Server, srv.Calls, srvMark, humanTokens(srv.Tokens.Total()), srv.CostUSD)
	}

	if n := len(snap.Anomalies); n > 0 {
		fmt.Fprintf(&b, "anomalies: %d (%s)\n", n, anomalySummary(snap.Anomalies))
	}
	if snap.ParseErrors > 0 {
		fmt.Fprintf(&b, "parse errors: %d\n", snap.ParseErrors)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// tableRenderer writes an aligned per-tool breakdown.
type tableRenderer struct {
	opts Options
}

func (r *tableRenderer) Render(w io.Writer, snap *aggregator.DisplaySnapshot) error {
	cols := renderWidth(r.opts, w)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SERVER\tTOOL\tCALLS\tTOKENS\tAVG\tCOST\tFLAGS\n")

	for _, srv := range orderServers(snap.Servers, r.opts.PinnedServers) {
		for _, tool := range srv.Tools {
			var flags []string
			if tool.Estimated {
				flags = append(flags, "est")
			}
			if tool.Duplicates > 0 {
				flags = append(flags, fmt.Sprintf("%d dup", tool.Duplicates))
			}

			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.0f\t$%.4f\t%s\n",
				srv.Server,
				truncate(tool.Name, cols/3),
				tool.Calls,
				humanTokens(tool.Tokens.Total()),
				tool.AvgTokens,
				tool.CostUSD,
				strings.Join(flags, ","))
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\ntotal: %s tokens · $%.4f · %d mcp calls\n",
		humanTokens(snap.TotalTokens), snap.CostUSD, snap.MCPCalls)
	return err
}

// jsonRenderer writes the snapshot as indented JSON.
type jsonRenderer struct{}

func (r *jsonRenderer) Render(w io.Writer, snap *aggregator.DisplaySnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// orderServers sorts pinned servers first, in pinned order, keeping
// the existing most-expensive-first order within each group.
func orderServers(servers []aggregator.ServerSnapshot, pinned []string) []aggregator.ServerSnapshot {
	if len(pinned) == 0 {
		return servers
	}

	pinnedSet, rest := lo.FilterReject(servers, func(s aggregator.ServerSnapshot, _ int) bool {
		return lo.IndexOf(pinned, s.Server) >= 0
	})

	sort.SliceStable(pinnedSet, func(i, j int) bool {
		return lo.IndexOf(pinned, pinnedSet[i].Server) < lo.IndexOf(pinned, pinnedSet[j].Server)
	})

	return append(pinnedSet, rest...)
}

func renderWidth(opts Options, w io.Writer) int {
	if opts.Width > 0 {
		return opts.Width
	}
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			return cols
		}
	}
	return fallbackWidth
}

func sessionElapsed(snap *aggregator.DisplaySnapshot) string {
	end := snap.EndedAt
	if end.IsZero() {
		end = snap.CapturedAt
	}
	d := end.Sub(snap.StartedAt).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func humanTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func truncate(s string, max int) string {
	if max < 8 {
		max = 8
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func anomalySummary(anomalies []aggregator.Anomaly) string {
	counts := lo.CountValuesBy(anomalies, func(a aggregator.Anomaly) string {
		return string(a.Kind)
	})

	kinds := lo.Keys(counts)
	sort.Strings(kinds)

	parts := make([]string, 0, len(counts))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", counts[kind], kind))
	}
	return strings.Join(parts, ", ")
}
