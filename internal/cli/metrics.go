package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
)

const sparklineWidth = 48

// MetricsOptions holds options for the metrics command.
type MetricsOptions struct {
	Start string
	End   string
	Limit int
	Rows  int
	JSON  bool
}

func newMetricsCmd(e *env) *cobra.Command {
	var opts MetricsOptions
	cmd := &cobra.Command{
		Use:   "metrics <host>",
		Short: "Show stored samples for a host",
		Long: `Show a host's stored samples: load and memory sparklines over the selected
range, current memory usage, and a table of the most recent samples.

--start and --end accept RFC 3339 timestamps, dates, or a duration meaning
"that long ago".

Examples:
  loadwatch metrics web-1
  loadwatch metrics web-1 --start 6h
  loadwatch metrics 3 --start 2026-10-01 --end 2026-10-02 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.metrics(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Start, "start", "", "oldest sample to include")
	f.StringVar(&opts.End, "end", "", "newest sample to include")
	f.IntVar(&opts.Limit, "limit", 0, "most recent samples to load (default api.default_limit)")
	f.IntVar(&opts.Rows, "rows", 12, "table rows to print")
	f.BoolVar(&opts.JSON, "json", false, "output samples as JSON")
	return cmd
}

func (e *env) metrics(cmd *cobra.Command, ref string, opts MetricsOptions) error {
	s, err := e.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	now := time.Now()
	q := store.RangeQuery{Limit: opts.Limit}
	if q.Limit <= 0 {
		q.Limit = s.cfg.API.DefaultLimit
	}
	if q.Start, err = parseTimeFlag("start", opts.Start, now); err != nil {
		return err
	}
	if q.End, err = parseTimeFlag("end", opts.End, now); err != nil {
		return err
	}
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		return errors.New(errors.ErrConfig, "--start is after --end", "Swap the two values")
	}

	h, err := s.resolveHost(cmd.Context(), ref)
	if err != nil {
		return err
	}
	q.HostID = h.ID

	samples, err := s.store.QueryRange(cmd.Context(), q)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to read samples for "+h.Name, "")
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)
	}
	renderMetrics(out, h, samples, opts.Rows)
	return nil
}

// parseTimeFlag accepts RFC 3339, "2006-01-02T15:04:05", a date, or a
// duration counted back from now. Empty means unbounded.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d.Abs())
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New(errors.ErrConfig,
		fmt.Sprintf("Invalid --%s %q", name, value),
		"Use an RFC 3339 time (2026-10-18T09:00:00Z), a date (2026-10-18), or a duration (6h)")
}

func renderMetrics(w io.Writer, h *store.Host, samples []store.Sample, rows int) {
	title := lipgloss.NewStyle().Foreground(ui.ColorNeonPink).Bold(true)
	fmt.Fprintf(w, "%s %s\n", title.Render(h.Name), ui.MutedStyle().Render(hostAddress(*h)))

	if len(samples) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("No samples in range"))
		return
	}

	first, last := samples[0], samples[len(samples)-1]
	fmt.Fprintln(w, ui.MutedStyle().Render(fmt.Sprintf("%d samples, %s to %s",
		len(samples), first.Timestamp.Local().Format(time.DateTime), last.Timestamp.Local().Format(time.DateTime))))
	fmt.Fprintln(w)

	var loads, memPct []float64
	for _, s := range samples {
		if s.Load1 != nil {
			loads = append(loads, *s.Load1)
		}
		if pct, ok := s.MemoryPercent(); ok {
			memPct = append(memPct, pct)
		}
	}

	label := lipgloss.NewStyle().Foreground(ui.ColorSecondary).Width(10)
	fmt.Fprintf(w, "%s%s %s\n", label.Render("load 1m"), ui.RenderLoadSparkline(loads, sparklineWidth), fmtFloat(last.Load1))
	if len(memPct) > 0 {
		fmt.Fprintf(w, "%s%s %.0f%%\n", label.Render("memory"), ui.RenderSparkline(memPct, sparklineWidth), memPct[len(memPct)-1])
	}
	used, total := 0, 0
	if last.UsedMemoryMB != nil && last.TotalMemoryMB != nil {
		used, total = int(*last.UsedMemoryMB), int(*last.TotalMemoryMB)
	}
	fmt.Fprintf(w, "%s%s\n\n", label.Render("now"), ui.RenderMemoryBar(used, total, sparklineWidth))

	if rows <= 0 {
		return
	}
	recent := samples
	if len(recent) > rows {
		recent = recent[len(recent)-rows:]
	}
	tableRows := make([][]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		s := recent[i]
		tableRows = append(tableRows, []string{
			s.Timestamp.Local().Format(time.DateTime),
			fmtFloat(s.Load1),
			fmtFloat(s.Load5),
			fmtFloat(s.Load15),
			formatMemory(s),
		})
	}
	fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "Time", Width: 20},
		{Title: "Load 1m", Width: 8},
		{Title: "5m", Width: 8},
		{Title: "15m", Width: 8},
		{Title: "Memory", Width: 20},
	}, tableRows))
}

func formatMemory(s store.Sample) string {
	if s.UsedMemoryMB == nil || s.TotalMemoryMB == nil {
		return "unknown"
	}
	return strings.TrimSpace(fmt.Sprintf("%.0f/%.0f MB", *s.UsedMemoryMB, *s.TotalMemoryMB))
}
