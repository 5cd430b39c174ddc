package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
)

func newPruneCmd(e *env) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete samples older than the retention window",
		Long: `Apply retention once: delete every sample older than --older-than,
which defaults to retention.window. serve does this after every cycle;
prune is for shrinking the database by hand or after lowering the window.

Examples:
  loadwatch prune
  loadwatch prune --older-than 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			window := s.cfg.Retention.Window
			if cmd.Flags().Changed("older-than") {
				if olderThan <= 0 {
					return errors.New(errors.ErrConfig,
						fmt.Sprintf("--older-than must be positive, got %s", olderThan),
						"Use a duration like 720h")
				}
				window = olderThan
			}

			cutoff := time.Now().Add(-window)
			n, err := s.store.DeleteOlderThan(cmd.Context(), cutoff)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrStore, "Failed to prune samples", "")
			}
			s.log.Info("pruned %d samples older than %s", n, cutoff.Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "%s Pruned %d samples older than %s\n",
				ui.SuccessStyle().Render(ui.SymbolSuccess), n, cutoff.Local().Format(time.DateTime))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff (default retention.window)")
	return cmd
}
