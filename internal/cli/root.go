package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/scheduler"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Deps are the seams of the command tree. Zero values use the real
// implementations.
type Deps struct {
	// Dialer opens SSH connections. Nil means sshutil.DefaultDialer.
	Dialer sshutil.Dialer

	// Interactive reports whether prompts may be shown. Nil means stdin
	// is a terminal.
	Interactive func() bool

	// OnCycle observes every cycle serve runs.
	OnCycle func(scheduler.CycleReport)
}

// env carries global flag values and deps to every command.
type env struct {
	deps       Deps
	configPath string
	noColor    bool
	logLevel   string
}

// NewRootCmd builds the full command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	e := &env{deps: deps}

	root := &cobra.Command{
		Use:   "loadwatch",
		Short: "Collect load and memory from a fleet of hosts over SSH",
		Long: `loadwatch connects to every registered host on a fixed interval, records
its load averages and memory usage, and prunes samples older than the
retention window. Stored samples are served over HTTP and from the CLI.

Get started:
  loadwatch config init
  loadwatch host add --name web-1 --address 10.0.0.5 --user monitor
  loadwatch serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if e.noColor || os.Getenv("NO_COLOR") != "" {
				ui.DisableColors()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default ./loadwatch.yaml, then ~/.config/loadwatch/config.yaml)")
	pf.BoolVar(&e.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&e.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(e),
		newCollectCmd(e),
		newHostCmd(e),
		newMetricsCmd(e),
		newMonitorCmd(e),
		newPruneCmd(e),
		newConfigCmd(e),
		newDoctorCmd(e),
		newVersionCmd(),
		newCompletionCmd(root),
	)
	return root
}

// Execute runs the CLI and exits the process on error.
func Execute() {
	root := NewRootCmd(Deps{})
	err := root.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}
	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s\n\nRun 'loadwatch --help' for usage.\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, ui.ErrorStyle().Render(strings.TrimRight(err.Error(), "\n")))
	os.Exit(1)
}

// isUnknownCommandError reports cobra's usage errors, which get a usage
// hint instead of the structured error rendering.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion scripts for loadwatch.

Examples:
  loadwatch completion bash > /etc/bash_completion.d/loadwatch
  loadwatch completion zsh > "${fpath[1]}/_loadwatch"
  loadwatch completion fish > ~/.config/fish/completions/loadwatch.fish`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletion(out)
			}
		},
	}
}
