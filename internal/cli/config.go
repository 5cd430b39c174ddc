package cli

import (
	"fmt"

	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, edit and inspect loadwatch.yaml",
	}
	cmd.AddCommand(newConfigInitCmd(e), newConfigSetCmd(e), newConfigShowCmd(e))
	return cmd
}

func newConfigInitCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented default config",
		Long: `Write a default loadwatch.yaml with every setting and its default value.

The path defaults to --config, then ./loadwatch.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileName
			if e.configPath != "" {
				path = e.configPath
			}
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Cannot write "+path,
					"Pass --force to overwrite an existing file")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigSetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the config file",
		Long: `Set one dotted key, keeping the rest of the file and its comments intact.
The file must still be valid afterwards, otherwise nothing is written.

Examples:
  loadwatch config set collection.interval 60s
  loadwatch config set retention.window 168h
  loadwatch config set api.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Find(e.configPath)
			if err != nil {
				return err
			}
			if path == "" {
				return errors.New(errors.ErrConfig,
					"No config file found",
					"Run 'loadwatch config init' first")
			}
			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Cannot set %s", args[0]),
					"Check the key name and value; run 'loadwatch config show' for valid keys")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s in %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), args[0], args[1], path)
			return nil
		},
	}
}

func newConfigShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Long:  `Print the config after defaults, the config file and LOADWATCH_ environment overrides are merged.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
