package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/loadwatch/internal/doctor"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/hostfile"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
	"github.com/spf13/cobra"
)

func newHostCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Manage registered hosts",
		Long: `Add, list, remove, import and export the hosts loadwatch collects from.

Hosts added here are picked up by a running serve at its next cycle.`,
	}
	cmd.AddCommand(
		newHostAddCmd(e),
		newHostListCmd(e),
		newHostRemoveCmd(e),
		newHostImportCmd(e),
		newHostExportCmd(e),
	)
	return cmd
}

// HostAddOptions holds options for the host add command.
type HostAddOptions struct {
	Name          string
	Address       string
	Port          int
	Username      string
	Password      string
	PasswordStdin bool
	Check         bool // collect once before saving
}

func newHostAddCmd(e *env) *cobra.Command {
	var opts HostAddOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a host",
		Long: `Register a host to collect from.

On a terminal, missing fields are prompted for; the address prompt offers
the aliases in ~/.ssh/config. Otherwise every field must be passed as a
flag, with the password read from --password-stdin.

Examples:
  loadwatch host add
  loadwatch host add --name web-1 --address 10.0.0.5 --user monitor --check
  echo "$PW" | loadwatch host add --name db-1 --address db.internal --port 2222 --user ops --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.hostAdd(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Name, "name", "", "unique host name")
	f.StringVar(&opts.Address, "address", "", "hostname, IP, or ~/.ssh/config alias")
	f.IntVar(&opts.Port, "port", 0, "SSH port (default 22)")
	f.StringVar(&opts.Username, "user", "", "SSH login")
	f.StringVar(&opts.Password, "password", "", "SSH password (visible in shell history; prefer --password-stdin)")
	f.BoolVar(&opts.PasswordStdin, "password-stdin", false, "read the SSH password from stdin")
	f.BoolVar(&opts.Check, "check", false, "collect from the host once before saving it")
	return cmd
}

func (e *env) hostAdd(cmd *cobra.Command, opts HostAddOptions) error {
	if opts.PasswordStdin {
		pw, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		opts.Password = pw
	}

	h := &store.Host{
		Name:     opts.Name,
		Address:  opts.Address,
		Port:     opts.Port,
		Username: opts.Username,
		Password: opts.Password,
	}

	if needsPrompt(h) {
		if !e.interactive() {
			return errors.New(errors.ErrConfig,
				"Missing host details",
				"Pass --name, --address, --user and --password-stdin when not on a terminal")
		}
		aliases, err := sshutil.LoadAliases("")
		if err != nil {
			aliases = nil
		}
		if err := promptHost(h, aliases); err != nil {
			return err
		}
	}
	if h.Password == "" {
		return errors.New(errors.ErrConfig,
			"A password is required",
			"Pass --password-stdin, or run on a terminal to be prompted")
	}
	if err := h.Validate(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid host", "")
	}

	s, err := e.open(true)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if opts.Check {
		reading, err := doctor.Probe(cmd.Context(), e.newCollector(s.cfg), *h)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s reachable: %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), h.Name, reading)
	}

	if err := s.store.AddHost(cmd.Context(), h); err != nil {
		if stderrors.Is(err, store.ErrAlreadyExists) {
			return errors.New(errors.ErrConflict,
				fmt.Sprintf("Host '%s' already exists", h.Name),
				"Choose a different name, or remove the existing host first")
		}
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to add host "+h.Name, "")
	}

	fmt.Fprintf(out, "%s Added host '%s' (id %d)\n", ui.SuccessStyle().Render(ui.SymbolSuccess), h.Name, h.ID)
	return nil
}

func needsPrompt(h *store.Host) bool {
	return strings.TrimSpace(h.Name) == "" ||
		strings.TrimSpace(h.Address) == "" ||
		strings.TrimSpace(h.Username) == "" ||
		h.Password == ""
}

func readPassword(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig, "Cannot read password from stdin", "")
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// promptHost asks for whatever h is missing.
func promptHost(h *store.Host, aliases []sshutil.Alias) error {
	var groups []*huh.Group

	if h.Name == "" {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Name").Description("Unique name for this host").Value(&h.Name).Validate(required("name")),
		))
	}

	var alias string
	if h.Address == "" && len(aliases) > 0 {
		options := make([]huh.Option[string], 0, len(aliases)+1)
		for _, a := range aliases {
			options = append(options, huh.NewOption(a.Label(), a.Name))
		}
		options = append(options, huh.NewOption("Enter an address", ""))
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().Title("SSH host").Options(options...).Value(&alias),
		))
	}
	if h.Address == "" {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Address").Description("Hostname or IP").Value(&h.Address).Validate(required("address")),
		).WithHideFunc(func() bool { return alias != "" }))
	}
	if h.Username == "" {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Username").Description("Leave empty to use the SSH config or $USER").Value(&h.Username),
		))
	}
	if h.Password == "" {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&h.Password).Validate(required("password")),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't get your input",
			"Try again, or pass the details as flags")
	}

	applyAlias(h, aliases, alias)
	return nil
}

// applyAlias points h at the chosen ~/.ssh/config alias and takes the
// alias's user and port where h has none.
func applyAlias(h *store.Host, aliases []sshutil.Alias, name string) {
	if a, ok := sshutil.FindAlias(aliases, name); ok {
		h.Address = a.Name
		h.Username, h.Port = a.Defaults(h.Username, h.Port)
	}
	if h.Username == "" {
		h.Username = os.Getenv("USER")
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// hostJSON is the --json shape of host list.
type hostJSON struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Port       int        `json:"port"`
	Username   string     `json:"username"`
	Samples    int64      `json:"samples"`
	LastSample *time.Time `json:"last_sample,omitempty"`
}

func newHostListCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered hosts with their newest sample",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			summaries, err := s.store.Summaries(cmd.Context())
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrStore, "Failed to list hosts", "")
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeHostsJSON(out, summaries)
			}
			fmt.Fprintln(out, ui.RenderHostTable(hostRows(summaries, s.cfg.Collection.Interval, time.Now())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func writeHostsJSON(w io.Writer, summaries []store.HostSummary) error {
	hosts := make([]hostJSON, 0, len(summaries))
	for _, sum := range summaries {
		h := hostJSON{
			ID:       sum.Host.ID,
			Name:     sum.Host.Name,
			Address:  sum.Host.Address,
			Port:     sum.Host.Port,
			Username: sum.Host.Username,
			Samples:  sum.SampleCount,
		}
		if sum.Latest != nil {
			ts := sum.Latest.Timestamp
			h.LastSample = &ts
		}
		hosts = append(hosts, h)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(hosts)
}

// hostRows marks a host fresh when its newest sample is within two
// collection intervals of now.
func hostRows(summaries []store.HostSummary, interval time.Duration, now time.Time) []ui.HostRow {
	rows := make([]ui.HostRow, 0, len(summaries))
	for _, sum := range summaries {
		row := ui.HostRow{
			Status:  ui.HostNever,
			ID:      strconv.FormatInt(sum.Host.ID, 10),
			Name:    sum.Host.Name,
			Address: hostAddress(sum.Host),
			Samples: strconv.FormatInt(sum.SampleCount, 10),
		}
		if sum.Latest != nil {
			age := now.Sub(sum.Latest.Timestamp)
			row.LastSeen = ui.FormatAge(age)
			row.Status = ui.HostStale
			if age <= 2*interval {
				row.Status = ui.HostFresh
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func hostAddress(h store.Host) string {
	addr := h.Username + "@" + h.Address
	if h.Port != store.DefaultPort {
		addr += ":" + strconv.Itoa(h.Port)
	}
	return addr
}

func newHostRemoveCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <name|id>",
		Aliases: []string{"rm"},
		Short:   "Remove a host and all of its samples",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			h, err := s.resolveHost(ctx, args[0])
			if err != nil {
				return err
			}

			if !yes {
				if !e.interactive() {
					return errors.New(errors.ErrConfig,
						fmt.Sprintf("Refusing to remove '%s' without confirmation", h.Name),
						"Pass --yes to confirm")
				}
				confirmed, err := confirm(fmt.Sprintf("Remove host '%s'?", h.Name), "Its samples are deleted too. This cannot be undone.")
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if err := s.store.RemoveHost(ctx, h.ID); err != nil {
				return errors.WrapWithCode(err, errors.ErrStore, "Failed to remove host "+h.Name, "")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed host '%s'\n", ui.SuccessStyle().Render(ui.SymbolSuccess), h.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Description(description).Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig, "Couldn't get your input", "Pass --yes to skip the prompt")
	}
	return ok, nil
}

func newHostImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Register hosts from a YAML file",
		Long: `Register every host listed in a YAML file:

  hosts:
    - name: web-1
      address: 10.0.0.5
      port: 22
      username: monitor
      password: secret

All entries are validated before anything is written. Names that are
already registered are skipped, not overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hostfile.ReadFile(args[0])
			if err != nil {
				return err
			}

			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := hostfile.Import(cmd.Context(), s.store, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range res.Added {
				fmt.Fprintf(out, "%s added %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), name)
			}
			for _, name := range res.Skipped {
				fmt.Fprintf(out, "%s skipped %s (already registered)\n", ui.MutedStyle().Render(ui.SymbolSkipped), name)
			}
			fmt.Fprintf(out, "%d added, %d skipped\n", len(res.Added), len(res.Skipped))
			return nil
		},
	}
}

func newHostExportCmd(e *env) *cobra.Command {
	var (
		withSecrets bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write registered hosts as YAML",
		Long: `Write the host registry in the format host import reads.

Passwords are left out unless --with-secrets is given.

Examples:
  loadwatch host export > hosts.yaml
  loadwatch host export --with-secrets -o backup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(true)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := hostfile.Export(cmd.Context(), s.store, withSecrets)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return hostfile.Write(cmd.OutOrStdout(), f)
			}
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig, "Cannot write "+output, "Check the directory exists and is writable")
			}
			if err := hostfile.Write(file, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d hosts to %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), len(f.Hosts), output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSecrets, "with-secrets", false, "include passwords")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
