package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/scheduler"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
)

// exitPartialFailure is returned by collect when at least one host failed.
const exitPartialFailure = 2

func newCollectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run one collection cycle now",
		Long: `Collect from every registered host once, apply retention, and print the
outcome per host. Uses the same worker pool, timeouts and retention window
as serve.

Exits 2 when any host failed, so it can drive cron or CI checks.

Examples:
  loadwatch collect
  loadwatch collect --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.collect(cmd)
		},
	}
}

func (e *env) collect(cmd *cobra.Command) error {
	s, err := e.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	sched := scheduler.New(s.store, e.newCollector(s.cfg), scheduler.Options{
		RetentionWindow: s.cfg.Retention.Window,
		Concurrency:     s.cfg.Collection.Concurrency,
		Logger:          s.log,
	})

	out := cmd.OutOrStdout()
	var spin *ui.Spinner
	if e.interactive() {
		spin = ui.NewSpinner("Collecting")
		spin.SetOutput(out)
		spin.Start()
	}

	report, err := sched.RunCycle(cmd.Context())
	if err != nil {
		if spin != nil {
			spin.Fail()
		}
		return err
	}

	summary := cycleSummary(report)
	if spin != nil {
		spin.Finish(report.ListErr == nil && report.Failed() == 0, "")
	}
	fmt.Fprint(out, ui.RenderCycleReport(cycleRows(report), summary))

	if report.ListErr != nil {
		return report.ListErr
	}
	if report.PruneErr != nil {
		ui.PrintWarning("retention failed: " + errors.Summary(report.PruneErr))
	}
	if report.Failed() > 0 {
		return errors.NewExitError(exitPartialFailure)
	}
	return nil
}

func cycleRows(report *scheduler.CycleReport) []ui.CycleRow {
	rows := make([]ui.CycleRow, 0, len(report.Hosts))
	for _, h := range report.Hosts {
		row := ui.CycleRow{OK: h.OK(), Host: h.Host, Took: h.Took.Round(time.Millisecond).String()}
		if h.OK() {
			row.Detail = formatReading(h.Sample)
		} else {
			row.Detail = h.Result + ": " + errors.Summary(h.Err)
		}
		rows = append(rows, row)
	}
	return rows
}

func cycleSummary(report *scheduler.CycleReport) string {
	return fmt.Sprintf("%d/%d hosts ok, %d samples pruned in %s",
		report.Succeeded(), len(report.Hosts), report.Pruned, report.Duration().Round(time.Millisecond))
}

// formatReading renders a sample on one line, e.g.
// "load 0.10 0.25 0.30, mem 8000/16000 MB".
func formatReading(s *store.Sample) string {
	if s == nil {
		return ""
	}
	line := fmt.Sprintf("load %s %s %s", fmtFloat(s.Load1), fmtFloat(s.Load5), fmtFloat(s.Load15))
	if s.UsedMemoryMB == nil || s.TotalMemoryMB == nil {
		return line + ", mem unknown"
	}
	return line + fmt.Sprintf(", mem %.0f/%.0f MB", *s.UsedMemoryMB, *s.TotalMemoryMB)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
