// Package rewindcmder
package rewindcmder

import (
	"github.com/spf13/cobra"

	benchcmder "github.com/papercomputeco/rewind/cmd/rewind/bench"
	configcmder "github.com/papercomputeco/rewind/cmd/rewind/config"
	watchcmder "github.com/papercomputeco/rewind/cmd/rewind/watch"
	versioncmder "github.com/papercomputeco/rewind/cmd/version"
	"github.com/papercomputeco/rewind/pkg/config"
)

const rewindLongDesc string = `Rewind keeps an undo/redo history of JSON state.

Unchanged parts of each entry are stored once in a content addressed chunk
pool, so long histories of large documents stay small.

Commands:
  rewind watch <file>   Record every change to a JSON file
  rewind bench          Benchmark digests and history throughput
  rewind config         Manage persistent configuration`

const rewindShortDesc string = "Rewind - chunked undo/redo history"

func NewRewindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rewind",
		Short:        rewindShortDesc,
		Long:         rewindLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	config.AddPersistentBoolFlag(cmd, config.GlobalFlags, config.FlagDebug)
	cmd.PersistentFlags().String("config-dir", "", "Override path to .rewind/ config directory")

	// Add subcommands
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(benchcmder.NewBenchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
