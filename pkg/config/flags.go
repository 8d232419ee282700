package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --delay
// on both "rewind watch" and "rewind bench").
type Flag struct {
	// Name is the long flag name (e.g. "delay").
	Name string

	// Shorthand is the one-letter short flag (e.g. "d"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "history.delay_ms").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddUintFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagDelay     = "delay"
	FlagMaxLength = "max-length"
	FlagUseChunks = "chunks"
	FlagSeed      = "seed"

	// FlagDebug is the root persistent --debug flag.
	FlagDebug = "debug"
)

// GlobalFlags is the registry of persistent flags declared on the root command.
var GlobalFlags = FlagSet{
	FlagDebug: {
		Name:        "debug",
		Shorthand:   "d",
		ViperKey:    KeyLogDebug,
		Description: "Enable debug logging",
	},
}

// HistoryFlags is the registry of flags that shape a history.History.
var HistoryFlags = FlagSet{
	FlagDelay: {
		Name:        "delay",
		ViperKey:    KeyHistoryDelayMS,
		Description: "Debounce window for pushes, in milliseconds",
	},
	FlagMaxLength: {
		Name:        "max-length",
		Shorthand:   "n",
		ViperKey:    KeyHistoryMaxLength,
		Description: "Number of history entries to retain",
	},
	FlagUseChunks: {
		Name:        "chunks",
		ViperKey:    KeyHistoryUseChunks,
		Description: "Store states as deduplicated chunks",
	},
	FlagSeed: {
		Name:        "seed",
		ViperKey:    KeyHistorySeed,
		Description: "Seed for chunk digests",
	},
}

// HistoryFlagKeys lists every key in HistoryFlags.
var HistoryFlagKeys = []string{FlagDelay, FlagMaxLength, FlagUseChunks, FlagSeed}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUint64Flag registers a uint64 flag on cmd from the given FlagSet.
func AddUint64Flag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Uint64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Uint64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddPersistentBoolFlag registers a persistent bool flag on cmd from the
// given FlagSet, inherited by every subcommand.
func AddPersistentBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	cmd.PersistentFlags().BoolP(def.Name, def.Shorthand, defaultVal, def.Description)
}

// AddHistoryFlags registers every HistoryFlags entry on cmd.
func AddHistoryFlags(cmd *cobra.Command, cfg *HistoryConfig) {
	AddUintFlag(cmd, HistoryFlags, FlagDelay, &cfg.DelayMS)
	AddUintFlag(cmd, HistoryFlags, FlagMaxLength, &cfg.MaxLength)
	AddBoolFlag(cmd, HistoryFlags, FlagUseChunks, &cfg.UseChunks)
	AddUint64Flag(cmd, HistoryFlags, FlagSeed, &cfg.Seed)
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
