package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/rileyhilliard/loadwatch/internal/doctor"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	JSON      bool
	Fix       bool
	SkipHosts bool
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

func newDoctorCmd(e *env) *cobra.Command {
	var opts DoctorOptions
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose config, database, SSH and host problems",
		Long: `Run diagnostic checks and report what is wrong and how to fix it:

  CONFIG     config file found and valid
  DATABASE   database opens, hosts registered
  SSH        known_hosts and SSH agent
  HOSTS      every registered host answers both metric commands

Nothing is stored. Exits 1 when any check fails.

Examples:
  loadwatch doctor
  loadwatch doctor --skip-hosts
  loadwatch doctor --fix
  loadwatch doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.doctor(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.JSON, "json", false, "output in JSON format")
	f.BoolVar(&opts.Fix, "fix", false, "attempt automatic fixes where possible")
	f.BoolVar(&opts.SkipHosts, "skip-hosts", false, "don't connect to registered hosts")
	return cmd
}

func (e *env) doctor(ctx context.Context, out io.Writer, opts DoctorOptions) error {
	// A fixed config file has to be in place before it is validated.
	checks := []doctor.Check{&doctor.ConfigFileCheck{Path: e.configPath}}
	results := doctor.RunAll(ctx, checks)
	if opts.Fix {
		results = doctor.Fix(ctx, checks, results)
	}
	valid := &doctor.ConfigValidCheck{Path: e.configPath}
	checks = append(checks, valid)
	results = append(results, valid.Run(ctx))

	// Everything past CONFIG needs a usable config.
	if cfg, err := e.loadConfig(); err == nil {
		local := []doctor.Check{
			&doctor.DatabaseCheck{Path: cfg.Database.Path},
			&doctor.KnownHostsCheck{Strict: cfg.SSH.StrictHostKeyChecking, Path: cfg.SSH.KnownHosts},
			&doctor.SSHAgentCheck{Enabled: cfg.SSH.UseAgent},
		}
		registry, hosts := e.registryChecks(ctx, cfg, opts.SkipHosts)
		if registry != nil {
			local = append(local, registry)
		}

		checks = append(checks, local...)
		results = append(results, doctor.RunAll(ctx, local)...)
		checks = append(checks, hosts...)
		results = append(results, doctor.RunAllParallel(ctx, hosts, cfg.Collection.Concurrency)...)
	}

	if opts.JSON {
		if err := writeDoctorJSON(out, checks, results); err != nil {
			return err
		}
	} else {
		writeDoctorText(out, checks, results, opts.Fix)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// registryChecks returns the registry check plus one check per host. Both
// are nil when the database doesn't exist yet.
func (e *env) registryChecks(ctx context.Context, cfg *config.Config, skipHosts bool) (doctor.Check, []doctor.Check) {
	if cfg.Database.Path != ":memory:" {
		if _, err := os.Stat(cfg.Database.Path); err != nil {
			return nil, nil
		}
	}
	st, err := e.openStore(cfg)
	if err != nil {
		return nil, nil
	}
	// The store is closed before the checks run, so read everything now.
	sums, sumErr := st.Summaries(ctx)
	st.Close()

	registry := &doctor.RegistryCheck{Store: staticRegistry{sums: sums, err: sumErr}}
	if sumErr != nil || skipHosts {
		return registry, nil
	}
	hosts := make([]store.Host, len(sums))
	for i, s := range sums {
		hosts[i] = s.Host
	}
	return registry, doctor.NewHostChecks(hosts, e.newCollector(cfg))
}

// staticRegistry replays one Summaries read.
type staticRegistry struct {
	sums []store.HostSummary
	err  error
}

func (r staticRegistry) Summaries(context.Context) ([]store.HostSummary, error) {
	return r.sums, r.err
}

func groupResults(checks []doctor.Check, results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for i, c := range checks {
		grouped[c.Category()] = append(grouped[c.Category()], results[i])
	}
	return grouped
}

func writeDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	grouped := groupResults(checks, results)
	output := DoctorOutput{Categories: []CategoryOutput{}}
	for _, cat := range doctor.Categories {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func writeDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult, fixed bool) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("loadwatch diagnostic report"))
	fmt.Fprintln(w)

	grouped := groupResults(checks, results)
	for _, cat := range doctor.Categories {
		rs, ok := grouped[cat]
		if !ok {
			continue
		}
		fmt.Fprintln(w, headerStyle.Render(cat))
		for _, r := range rs {
			writeCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	if doctor.FixableCount(results) > 0 && !fixed {
		fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n",
			ui.MutedStyle().Render("--fix"))
	}
}

func writeCheckResult(w io.Writer, r doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style
	switch r.Status {
	case doctor.StatusPass:
		symbol, style = ui.SymbolComplete, ui.SuccessStyle()
	case doctor.StatusWarn:
		symbol, style = ui.SymbolWarning, ui.WarningStyle()
	default:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), r.Message)
	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
