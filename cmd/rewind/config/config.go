// Package configcmder provides the config command for managing persistent
// rewind configuration stored in the .rewind/ directory.
package configcmder

import (
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rewind/pkg/cliui"
	"github.com/papercomputeco/rewind/pkg/config"
)

const configLongDesc string = `Manage persistent rewind configuration.

Configuration is stored as config.toml in the .rewind/ directory and provides
default values for command flags. CLI flags and REWIND_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  history.delay_ms, history.max_length, history.use_chunks, history.seed,
  log.debug, log.json, log.pretty

Use subcommands to get, set, or list configuration values:
  rewind config set <key> <value>    Set a configuration value
  rewind config get <key>            Get a configuration value
  rewind config list                 List all configuration values

Examples:
  rewind config set history.max_length 500
  rewind config set log.pretty true
  rewind config get history.delay_ms
  rewind config list`

const configShortDesc string = "Manage persistent rewind configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// completeKeys completes the first argument with config key names.
func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func validKeysHint() string {
	return "\n\nValid keys: " + strings.Join(config.ValidConfigKeys(), ", ")
}

func printTarget(out io.Writer, target string) {
	if target != "" {
		lipgloss.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	lipgloss.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
