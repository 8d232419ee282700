package config

const (
	defaultDelayMS   = 50
	defaultMaxLength = 100
	defaultUseChunks = true
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		History: HistoryConfig{
			DelayMS:   defaultDelayMS,
			MaxLength: defaultMaxLength,
			UseChunks: defaultUseChunks,
		},
	}
}
