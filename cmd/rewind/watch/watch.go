// Package watchcmder provides the watch command, which records every change
// to a JSON file into a debounced history and lets the user step through it.
package watchcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"charm.land/lipgloss/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rewind/pkg/cliui"
	"github.com/papercomputeco/rewind/pkg/config"
	"github.com/papercomputeco/rewind/pkg/history"
	"github.com/papercomputeco/rewind/pkg/logger"
	"github.com/papercomputeco/rewind/pkg/serialize"
	"github.com/papercomputeco/rewind/pkg/utils"
)

const (
	statsKeyColumns = 12
	previewLen      = 120
)

type WatchCommander struct {
	path    string
	logFile string

	cfg     *config.Config
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
	history *history.History

	// lastDoc is the most recently pushed file content
	lastDoc string
}

const watchLongDesc string = `Watch a JSON state file and record its history.

Every write to the file is parsed and pushed into a debounced history, so a
burst of writes becomes a single entry. Unchanged parts of the document are
stored once across entries.

Commands are read from stdin, one per line:
  undo, u     Step back one entry and print it
  redo, r     Step forward one entry and print it
  get, g      Print the current entry
  stats, s    Print history and chunk pool statistics
  reset       Drop the history and the chunk pool

Examples:
  rewind watch state.json
  rewind watch --delay 250 --max-length 1000 state.json
  rewind watch --log-file history.log state.json`

const watchShortDesc string = "Record the history of a JSON state file"

func NewWatchCmd() *cobra.Command {
	cmder := &WatchCommander{}
	var hc config.HistoryConfig

	cmd := &cobra.Command{
		Use:   "watch <state.json>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving state file: %w", err)
			}
			cmder.path = path

			cfg, err := config.Resolve(cmd)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.logger = logger.New(cmder.cfg.LoggerOptions(cmd.ErrOrStderr())...)

			if cmder.logFile != "" {
				f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()

				cmder.logger = logger.Multi(cmder.logger, logger.New(
					logger.WithWriter(f),
					logger.WithJSON(true),
					logger.WithDebug(cmder.cfg.Log.Debug),
				))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	config.AddHistoryFlags(cmd, &hc)

	return cmd
}

func (c *WatchCommander) run(ctx context.Context) error {
	h, err := history.New(append(c.cfg.HistoryOptions(), history.WithLogger(c.logger))...)
	if err != nil {
		return fmt.Errorf("creating history: %w", err)
	}
	c.history = h

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating state watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("watching state dir: %w", err)
	}

	if state, doc, err := c.readState(); err == nil {
		if err := h.PushSync(state); err != nil {
			return fmt.Errorf("pushing initial state: %w", err)
		}
		c.lastDoc = doc
	} else if !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("skipping initial state", "path", c.path, "error", err)
	}

	c.logger.Info("watching state file",
		"path", c.path,
		"history_id", h.ID(),
	)

	lines := scanLines(ctx, c.in)

	for {
		select {
		case <-ctx.Done():
			c.printStats()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != c.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c.push(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("state watcher error: %w", err)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			c.handle(strings.TrimSpace(line))
		}
	}
}

// push reads the state file and schedules it for the next debounced commit.
// Content identical to the last pushed document is skipped.
func (c *WatchCommander) push(ctx context.Context) {
	state, doc, err := c.readState()
	if err != nil {
		// truncated mid-write; a later event carries the full document
		c.logger.Debug("skipping unreadable state", "error", err)
		return
	}
	if doc == c.lastDoc {
		return
	}

	future := c.history.Push(state)
	if errors.Is(future.Err(), history.ErrInvalidPush) {
		// the pending commit is due but has not run; record this document now
		if err := c.history.PushSync(state); err != nil {
			c.logger.Error("commit failed", "error", err)
			return
		}
		c.lastDoc = doc
		c.logger.Debug("commit due, pushed synchronously", "cursor", c.history.Cursor())
		return
	}

	c.lastDoc = doc
	go c.awaitCommit(ctx, future)
}

func (c *WatchCommander) awaitCommit(ctx context.Context, future *history.Future) {
	h, err := future.Wait(ctx)
	switch {
	case err == nil:
		stats := h.Stats()
		c.logger.Info("committed",
			"cursor", stats.Cursor,
			"entries", stats.Length,
			"chunks", stats.Chunks,
		)
	case errors.Is(err, history.ErrReset), errors.Is(err, context.Canceled):
		c.logger.Debug("pending change discarded", "error", err)
	default:
		c.logger.Error("commit failed", "error", err)
	}
}

func (c *WatchCommander) handle(cmd string) {
	switch cmd {
	case "":
		return
	case "undo", "u":
		c.history.Undo()
		c.printCurrent()
	case "redo", "r":
		c.history.Redo()
		c.printCurrent()
	case "get", "g":
		c.printCurrent()
	case "stats", "s":
		c.printStats()
	case "reset":
		c.history.Reset()
		c.lastDoc = ""
		lipgloss.Fprintf(c.out, "  %s history reset\n", cliui.SuccessMark)
	default:
		lipgloss.Fprintf(c.out, "  %s unknown command %q (undo, redo, get, stats, reset)\n",
			cliui.FailMark, cmd)
	}
}

func (c *WatchCommander) printCurrent() {
	state, err := c.history.Get()
	if err != nil {
		lipgloss.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
		return
	}

	cursor := cliui.DimStyle.Render(fmt.Sprintf("[%d]", c.history.Cursor()))
	if state == nil {
		lipgloss.Fprintf(c.out, "  %s %s\n", cursor, cliui.DimStyle.Render("<empty>"))
		return
	}

	doc, err := serialize.Marshal(state)
	if err != nil {
		lipgloss.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
		return
	}
	lipgloss.Fprintf(c.out, "  %s %s\n", cursor, utils.Truncate(doc, previewLen))
}

func (c *WatchCommander) printStats() {
	stats := c.history.Stats()
	cliui.KeyValue(c.out, statsKeyColumns, "cursor", stats.Cursor)
	cliui.KeyValue(c.out, statsKeyColumns, "entries", stats.Length)
	cliui.KeyValue(c.out, statsKeyColumns, "retained", stats.Retained)
	cliui.KeyValue(c.out, statsKeyColumns, "chunks", stats.Chunks)
	cliui.KeyValue(c.out, statsKeyColumns, "chunk bytes", cliui.FormatBytes(stats.ChunkBytes))
	cliui.KeyValue(c.out, statsKeyColumns, "undo/redo", fmt.Sprintf("%t/%t", c.history.HasUndo(), c.history.HasRedo()))
}

func (c *WatchCommander) readState() (any, string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, "", err
	}

	doc := string(data)
	state, err := serialize.Unmarshal(doc)
	if err != nil {
		return nil, "", err
	}
	return state, doc, nil
}

// scanLines delivers lines from r until EOF or ctx is done.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines
}
