// Package benchcmder provides the bench command, which measures digest speed
// and history push/get throughput.
package benchcmder

import (
	"crypto/sha1" //nolint:gosec // baseline for comparison only
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rewind/pkg/cliui"
	"github.com/papercomputeco/rewind/pkg/config"
	"github.com/papercomputeco/rewind/pkg/hash"
	"github.com/papercomputeco/rewind/pkg/history"
	"github.com/papercomputeco/rewind/pkg/logger"
	"github.com/papercomputeco/rewind/pkg/serialize"
)

const (
	defaultSize     = 2_000_000
	defaultFanout   = 8
	defaultDepth    = 3
	statsKeyColumns = 14
)

type BenchCommander struct {
	size   int
	file   string
	fanout int
	depth  int

	cfg    *config.Config
	out    io.Writer
	logger *slog.Logger
}

const benchLongDesc string = `Benchmark digests and history throughput.

Hashes an N byte string with the chunk digest (xxhash) and with sha1 for
comparison, then pushes a JSON document into a fresh history, reads it back,
and pushes it again to show chunk reuse.

Without --file a synthetic tree of --fanout children per node, --depth
levels deep is used.

Examples:
  rewind bench
  rewind bench --size 10000000
  rewind bench --file state.json --max-length 10`

const benchShortDesc string = "Benchmark digests and history throughput"

func NewBenchCmd() *cobra.Command {
	cmder := &BenchCommander{}
	var hc config.HistoryConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: benchShortDesc,
		Long:  benchLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.size < 0 {
				return errors.New("--size must not be negative")
			}
			if cmder.fanout < 0 || cmder.depth < 0 {
				return errors.New("--fanout and --depth must not be negative")
			}

			cfg, err := config.Resolve(cmd)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.logger = logger.New(cmder.cfg.LoggerOptions(cmd.ErrOrStderr())...)
			return cmder.run()
		},
	}

	cmd.Flags().IntVar(&cmder.size, "size", defaultSize, "Length of the hashed string in bytes")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "JSON document to push (default: synthetic tree)")
	cmd.Flags().IntVar(&cmder.fanout, "fanout", defaultFanout, "Children per node of the synthetic tree")
	cmd.Flags().IntVar(&cmder.depth, "depth", defaultDepth, "Depth of the synthetic tree")
	config.AddHistoryFlags(cmd, &hc)

	return cmd
}

func (c *BenchCommander) run() error {
	payload := digits(c.size)
	size := cliui.FormatBytes(len(payload))

	lipgloss.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("Hash time"))

	var digest hash.Digest
	seed := c.cfg.History.Seed
	if err := cliui.Step(c.out, "xxhash "+size, func() error {
		digest = hash.New(seed).Sum(payload)
		return nil
	}); err != nil {
		return err
	}

	if err := cliui.Step(c.out, "sha1   "+size, func() error {
		_ = sha1.Sum([]byte(payload)) //nolint:gosec // baseline for comparison only
		return nil
	}); err != nil {
		return err
	}

	c.logger.Debug("hashed payload", "digest", digest.String(), "bytes", len(payload))

	state, doc, err := c.loadState()
	if err != nil {
		return err
	}

	h, err := history.New(append(c.cfg.HistoryOptions(), history.WithLogger(c.logger))...)
	if err != nil {
		return fmt.Errorf("creating history: %w", err)
	}

	lipgloss.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("Throughput"))

	docSize := cliui.FormatBytes(len(doc))
	if err := cliui.Step(c.out, "push "+docSize+" JSON", func() error {
		return h.PushSync(state)
	}); err != nil {
		return err
	}

	if err := cliui.Step(c.out, "get from chunks", func() error {
		_, err := h.Get()
		return err
	}); err != nil {
		return err
	}

	if err := cliui.Step(c.out, "push unchanged", func() error {
		return h.PushSync(state)
	}); err != nil {
		return err
	}

	stats := h.Stats()
	lipgloss.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("History"))
	cliui.KeyValue(c.out, statsKeyColumns, "entries", stats.Length)
	cliui.KeyValue(c.out, statsKeyColumns, "chunks", stats.Chunks)
	cliui.KeyValue(c.out, statsKeyColumns, "chunk bytes", cliui.FormatBytes(stats.ChunkBytes))
	cliui.KeyValue(c.out, statsKeyColumns, "digest", cliui.HashStyle.Render(digest.Short()))
	fmt.Fprintln(c.out)

	return nil
}

// loadState returns the state to push and its serialized form.
func (c *BenchCommander) loadState() (any, string, error) {
	if c.file == "" {
		state := syntheticTree(c.fanout, c.depth)
		doc, err := serialize.Marshal(state)
		if err != nil {
			return nil, "", err
		}
		return state, doc, nil
	}

	data, err := os.ReadFile(c.file)
	if err != nil {
		return nil, "", fmt.Errorf("reading state file: %w", err)
	}

	state, err := serialize.Unmarshal(string(data))
	if err != nil {
		return nil, "", fmt.Errorf("parsing state file %s: %w", c.file, err)
	}
	return state, string(data), nil
}

// digits returns "0123456789..." repeated to n bytes.
func digits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := range n {
		b.WriteByte(byte('0' + i%10))
	}
	return b.String()
}

// syntheticTree builds a tree with fanout children per node, depth levels
// below the root.
func syntheticTree(fanout, depth int) map[string]any {
	next := 0
	var build func(level int) map[string]any
	build = func(level int) map[string]any {
		id := next
		next++

		children := []any{}
		if level < depth {
			for range fanout {
				children = append(children, build(level+1))
			}
		}

		return map[string]any{
			"id":       float64(id),
			"name":     "node-" + strconv.Itoa(id),
			"level":    float64(level),
			"children": children,
		}
	}
	return build(0)
}
