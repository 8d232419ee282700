package history

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/rewind/pkg/transform"
)

const (
	// DefaultDelay is the debounce window used by Push.
	DefaultDelay = 50 * time.Millisecond

	// DefaultMaxLength is the number of retained history entries.
	DefaultMaxLength = 100
)

type options struct {
	rules        []transform.Rule
	delay        time.Duration
	maxLength    int
	useChunks    bool
	initialState any
	hasInitial   bool
	onChange     func(state any)
	seed         uint64
	logger       *slog.Logger
	metrics      *Metrics
	now          func() time.Time
}

// Option configures a History created with New.
type Option func(*options)

// WithRules registers decomposition rules, tried in the given order.
func WithRules(rules ...transform.Rule) Option {
	return func(o *options) {
		o.rules = append(o.rules, rules...)
	}
}

// WithDelay sets the Push debounce window. Non-positive values keep
// DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithMaxLength sets how many entries are retained. Non-positive values keep
// DefaultMaxLength.
func WithMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithUseChunks controls whether states are decomposed into the chunk pool
// (the default) or stored as they are.
func WithUseChunks(use bool) Option {
	return func(o *options) {
		o.useChunks = use
	}
}

// WithInitialState seeds the history with state. The change hook is not
// fired for it.
func WithInitialState(state any) Option {
	return func(o *options) {
		o.initialState = state
		o.hasInitial = true
	}
}

// WithOnChange sets a hook called with the resulting state after every
// successful push and every Get. It runs without the history lock held, one
// call at a time, in the order the states were produced. While another
// goroutine is running the hook, a push or Get may return before the hook
// has seen its state.
func WithOnChange(fn func(state any)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// WithSeed sets the chunk hash seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics reports history activity to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock replaces time.Now for debounce window bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type pushOptions struct {
	pickIndex int
}

// PushOption configures a single Push or PushSync call.
type PushOption func(*pushOptions)

// WithPickIndex restricts re-serialization to the child at index i of the
// pushed state; the other children are reused from the current entry. The
// caller must name the child that actually changed.
func WithPickIndex(i int) PushOption {
	return func(o *pushOptions) {
		o.pickIndex = i
	}
}

func newPushOptions(opts []PushOption) pushOptions {
	po := pushOptions{pickIndex: -1}
	for _, opt := range opts {
		opt(&po)
	}
	return po
}
