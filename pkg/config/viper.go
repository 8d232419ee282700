package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/rewind/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the REWIND_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (REWIND_HISTORY_DELAY_MS, REWIND_LOG_DEBUG, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("REWIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// History
	v.SetDefault(KeyHistoryDelayMS, d.History.DelayMS)
	v.SetDefault(KeyHistoryMaxLength, d.History.MaxLength)
	v.SetDefault(KeyHistoryUseChunks, d.History.UseChunks)
	v.SetDefault(KeyHistorySeed, d.History.Seed)

	// Log
	v.SetDefault(KeyLogDebug, d.Log.Debug)
	v.SetDefault(KeyLogJSON, d.Log.JSON)
	v.SetDefault(KeyLogPretty, d.Log.Pretty)
}

// FromViper resolves a Config from v, honoring its precedence chain.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		History: HistoryConfig{
			DelayMS:   v.GetUint(KeyHistoryDelayMS),
			MaxLength: v.GetUint(KeyHistoryMaxLength),
			UseChunks: v.GetBool(KeyHistoryUseChunks),
			Seed:      v.GetUint64(KeyHistorySeed),
		},
		Log: LogConfig{
			Debug:  v.GetBool(KeyLogDebug),
			JSON:   v.GetBool(KeyLogJSON),
			Pretty: v.GetBool(KeyLogPretty),
		},
	}

	applyDefaults(cfg)

	return cfg
}

// Resolve returns the effective Config for cmd: defaults, config.toml from the
// --config-dir (or discovered) directory, REWIND_ environment variables and
// any registered flags cmd defines.
func Resolve(cmd *cobra.Command) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, HistoryFlags, HistoryFlagKeys)
	BindRegisteredFlags(v, cmd, GlobalFlags, []string{FlagDebug})

	return FromViper(v), nil
}
