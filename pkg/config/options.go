package config

import (
	"io"
	"time"

	"github.com/papercomputeco/rewind/pkg/history"
	"github.com/papercomputeco/rewind/pkg/logger"
)

// HistoryOptions converts the history section into history.New options.
func (c *Config) HistoryOptions() []history.Option {
	return []history.Option{
		history.WithDelay(time.Duration(c.History.DelayMS) * time.Millisecond),
		history.WithMaxLength(int(c.History.MaxLength)),
		history.WithUseChunks(c.History.UseChunks),
		history.WithSeed(c.History.Seed),
	}
}

// LoggerOptions converts the log section into logger.New options writing to w.
func (c *Config) LoggerOptions(w io.Writer) []logger.Option {
	return []logger.Option{
		logger.WithWriter(w),
		logger.WithDebug(c.Log.Debug),
		logger.WithJSON(c.Log.JSON),
		logger.WithPretty(c.Log.Pretty),
	}
}
