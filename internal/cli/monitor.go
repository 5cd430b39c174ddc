package cli

import (
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/monitor"
	"github.com/spf13/cobra"
)

func newMonitorCmd(e *env) *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live dashboard of the latest samples",
		Long: `Open a full-screen dashboard with one card per host: freshness, load
sparkline, current load averages and memory usage.

The dashboard only reads the database, so run it next to 'loadwatch serve'.
A host turns stale when its newest sample is older than two collection
intervals.

Examples:
  loadwatch monitor
  loadwatch monitor --refresh 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh <= 0 {
				return errors.New(errors.ErrConfig, "--refresh must be positive", "Use a duration like 5s")
			}
			if !e.interactive() {
				return errors.New(errors.ErrConfig,
					"monitor needs an interactive terminal",
					"Use 'loadwatch host list' or 'loadwatch metrics <host>' in scripts")
			}

			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			model := monitor.NewModel(s.store, monitor.Options{
				Refresh:    refresh,
				StaleAfter: 2 * s.cfg.Collection.Interval,
			})
			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err = p.Run()
			if err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Second, "how often to re-read the database")
	return cmd
}
