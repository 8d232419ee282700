package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent rewind configuration stored as config.toml
// in the .rewind/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

// HistoryConfig holds the settings used to build a history.History.
type HistoryConfig struct {
	DelayMS   uint   `toml:"delay_ms,omitempty"`
	MaxLength uint   `toml:"max_length,omitempty"`
	UseChunks bool   `toml:"use_chunks"`
	Seed      uint64 `toml:"seed,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug  bool `toml:"debug,omitempty"`
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	KeyHistoryDelayMS: {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.History.DelayMS), 10) },
		set: func(c *Config, v string) error {
			n, err := parseUint(KeyHistoryDelayMS, v)
			if err != nil {
				return err
			}
			c.History.DelayMS = uint(n)
			return nil
		},
	},
	KeyHistoryMaxLength: {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.History.MaxLength), 10) },
		set: func(c *Config, v string) error {
			n, err := parseUint(KeyHistoryMaxLength, v)
			if err != nil {
				return err
			}
			c.History.MaxLength = uint(n)
			return nil
		},
	},
	KeyHistoryUseChunks: {
		get: func(c *Config) string { return strconv.FormatBool(c.History.UseChunks) },
		set: func(c *Config, v string) error {
			b, err := parseBool(KeyHistoryUseChunks, v)
			if err != nil {
				return err
			}
			c.History.UseChunks = b
			return nil
		},
	},
	KeyHistorySeed: {
		get: func(c *Config) string { return strconv.FormatUint(c.History.Seed, 10) },
		set: func(c *Config, v string) error {
			n, err := parseUint(KeyHistorySeed, v)
			if err != nil {
				return err
			}
			c.History.Seed = n
			return nil
		},
	},
	KeyLogDebug: {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := parseBool(KeyLogDebug, v)
			if err != nil {
				return err
			}
			c.Log.Debug = b
			return nil
		},
	},
	KeyLogJSON: {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := parseBool(KeyLogJSON, v)
			if err != nil {
				return err
			}
			c.Log.JSON = b
			return nil
		},
	},
	KeyLogPretty: {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Pretty) },
		set: func(c *Config, v string) error {
			b, err := parseBool(KeyLogPretty, v)
			if err != nil {
				return err
			}
			c.Log.Pretty = b
			return nil
		},
	},
}

// Config key names.
const (
	KeyHistoryDelayMS   = "history.delay_ms"
	KeyHistoryMaxLength = "history.max_length"
	KeyHistoryUseChunks = "history.use_chunks"
	KeyHistorySeed      = "history.seed"
	KeyLogDebug         = "log.debug"
	KeyLogJSON          = "log.json"
	KeyLogPretty        = "log.pretty"
)

func parseUint(key, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b, nil
}
