// Package history is an undo/redo log of application state.
//
// Each pushed state is decomposed into a record tree whose chunks live in a
// content-addressed pool, so unchanged parts of consecutive states are stored
// once. Pushes can be committed immediately with PushSync or debounced with
// Push, which collapses bursts of pushes into a single entry.
package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/rewind/pkg/chunk"
	"github.com/papercomputeco/rewind/pkg/hash"
	"github.com/papercomputeco/rewind/pkg/logger"
	"github.com/papercomputeco/rewind/pkg/transform"
)

// entry is one slot of the log. A nil *entry is a cleared slot.
type entry struct {
	record *transform.Record
	raw    any
}

// pending is the armed debounce cycle.
type pending struct {
	state     any
	pickIndex int
	futures   []*Future
	timer     *time.Timer
	gen       uint64
	armedAt   time.Time
}

// Stats is a point-in-time view of a History.
type Stats struct {
	// Length is the number of addressable entries, capped at the max length.
	Length int

	// Cursor is the index of the current entry, -1 when empty.
	Cursor int

	// Chunks is the number of chunks in the pool.
	Chunks int

	// ChunkBytes is the total payload size of the pool.
	ChunkBytes int

	// Retained is the number of non-cleared entries.
	Retained int
}

// History is a bounded undo/redo log. All methods are safe for concurrent use.
type History struct {
	id        string
	delay     time.Duration
	maxLength int
	useChunks bool
	onChange  func(state any)
	now       func() time.Time

	engine  *transform.Engine
	logger  *slog.Logger
	metrics *Metrics

	mu             sync.Mutex
	cursor         int
	log            []*entry
	pending        pending
	seenCollisions uint64

	// notices holds states for onChange in the order they were produced;
	// draining is set while a goroutine delivers them
	notices  []any
	draining bool
}

// New creates a History. It fails only when the rules are invalid or the
// initial state cannot be decomposed.
func New(opts ...Option) (*History, error) {
	o := options{
		delay:     DefaultDelay,
		maxLength: DefaultMaxLength,
		useChunks: true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rules, err := transform.NewRuleSet(o.rules...)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	l := o.logger
	if l == nil {
		l = logger.Nop()
	}
	l = l.With("history_id", id)

	engine := transform.NewEngine(chunk.NewPool(), rules,
		transform.WithHasher(hash.New(o.seed)),
		transform.WithLogger(l),
	)

	h := &History{
		id:        id,
		delay:     o.delay,
		maxLength: o.maxLength,
		useChunks: o.useChunks,
		onChange:  o.onChange,
		now:       o.now,
		engine:    engine,
		logger:    l,
		metrics:   o.metrics,
		cursor:    -1,
	}

	if o.hasInitial {
		h.mu.Lock()
		err := h.commitLocked(o.initialState, -1, modeSync)
		h.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
	}

	return h, nil
}

// ID returns the identifier of this history, used as the history_id log
// attribute.
func (h *History) ID() string {
	return h.id
}

// PushSync commits state as a new entry after the cursor, discarding any
// redo entries. A pending debounced push is cancelled and its futures are
// resolved. On error the history is left unchanged, including a pending
// debounced push, which still commits when its delay expires.
func (h *History) PushSync(state any, opts ...PushOption) error {
	po := newPushOptions(opts)

	h.mu.Lock()
	err := h.commitLocked(state, po.pickIndex, modeSync)
	if err == nil {
		h.settlePendingLocked(nil)
		h.enqueueLocked(state)
	}
	h.mu.Unlock()

	if err != nil {
		return err
	}

	h.drain()
	return nil
}

// Push schedules state to be committed after the debounce delay. A Push
// within the delay of the previous one replaces its state and restarts the
// delay; all of their futures settle with the single resulting commit.
//
// A Push made after the delay has elapsed but before the commit ran is a
// protocol violation and returns a future rejected with ErrInvalidPush.
func (h *History) Push(state any, opts ...PushOption) *Future {
	po := newPushOptions(opts)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	p := &h.pending

	if p.timer != nil {
		if now.Sub(p.armedAt) >= h.delay {
			h.metrics.recordRejection(reasonInvalidPush, 1)
			h.logger.Debug("push rejected, commit already due",
				"cursor", h.cursor,
			)
			return rejectedFuture(h, ErrInvalidPush)
		}
		p.timer.Stop()
		p.timer = nil
	}

	f := newFuture(h)
	p.state = state
	p.pickIndex = po.pickIndex
	p.futures = append(p.futures, f)
	p.armedAt = now
	p.gen++

	gen := p.gen
	p.timer = time.AfterFunc(h.delay, func() {
		h.fire(gen)
	})

	return f
}

// fire commits the pending state of debounce cycle gen.
func (h *History) fire(gen uint64) {
	h.mu.Lock()

	p := &h.pending
	if p.timer == nil || p.gen != gen {
		h.mu.Unlock()
		return
	}

	state := p.state
	err := h.commitLocked(state, p.pickIndex, modeDebounced)
	if err != nil {
		h.logger.Error("debounced push failed",
			"cursor", h.cursor,
			"error", err,
		)
		h.metrics.recordRejection(reasonFailed, len(p.futures))
	} else {
		h.enqueueLocked(state)
	}
	h.settlePendingLocked(err)
	h.mu.Unlock()

	h.drain()
}

// commitLocked decomposes state and writes it at cursor+1.
func (h *History) commitLocked(state any, pickIndex int, mode string) error {
	start := time.Now()

	e := &entry{raw: state}
	if h.useChunks {
		var prev *transform.Record
		if cur := h.currentLocked(); cur != nil {
			prev = cur.record
		}

		record, err := h.engine.Decompose(state, prev, pickIndex)
		if err != nil {
			h.syncPoolMetricsLocked()
			return fmt.Errorf("decompose state: %w", err)
		}
		e = &entry{record: record}
	}

	h.cursor++
	if h.cursor < len(h.log) {
		h.log[h.cursor] = e
		for i := h.cursor + 1; i < len(h.log); i++ {
			h.log[i] = nil
		}
	} else {
		h.log = append(h.log, e)
	}

	if h.cursor >= h.maxLength {
		evicted := h.cursor - h.maxLength
		if h.log[evicted] != nil {
			h.log[evicted] = nil
			h.metrics.recordEviction()
			h.logger.Debug("evicted entry", "slot", evicted)
		}
	}

	h.syncPoolMetricsLocked()
	h.metrics.recordPush(mode, time.Since(start))
	h.logger.Debug("pushed state",
		"cursor", h.cursor,
		"mode", mode,
	)

	return nil
}

func (h *History) syncPoolMetricsLocked() {
	collisions := h.engine.Collisions()
	h.metrics.recordCollisions(collisions - h.seenCollisions)
	h.seenCollisions = collisions
	h.metrics.setPoolEntries(h.engine.Pool().Len())
}

// settlePendingLocked stops the debounce timer and settles every waiting
// future with err.
func (h *History) settlePendingLocked(err error) {
	p := &h.pending
	if p.timer != nil {
		p.timer.Stop()
	}

	futures := p.futures
	*p = pending{gen: p.gen + 1}

	for _, f := range futures {
		f.settle(err)
	}
}

func (h *History) currentLocked() *entry {
	if h.cursor < 0 || h.cursor >= len(h.log) {
		return nil
	}
	return h.log[h.cursor]
}

// Get reconstructs the state at the cursor. It returns nil when the history
// is empty or the current entry was evicted. The change hook is called with
// the result.
func (h *History) Get() (any, error) {
	h.mu.Lock()
	state, err := h.getLocked()
	if err == nil {
		h.enqueueLocked(state)
	}
	h.mu.Unlock()

	if err != nil {
		return nil, err
	}

	h.drain()
	return state, nil
}

func (h *History) getLocked() (any, error) {
	e := h.currentLocked()
	if e == nil {
		return nil, nil
	}
	if !h.useChunks {
		return e.raw, nil
	}

	state, err := h.engine.Reconstruct(e.record)
	if err != nil {
		return nil, fmt.Errorf("reconstruct entry %d: %w", h.cursor, err)
	}
	return state, nil
}

// Undo moves the cursor back one entry when HasUndo is true.
func (h *History) Undo() *History {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hasUndoLocked() {
		h.cursor--
		h.logger.Debug("undo", "cursor", h.cursor)
	}
	return h
}

// Redo moves the cursor forward one entry when HasRedo is true.
func (h *History) Redo() *History {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hasRedoLocked() {
		h.cursor++
		h.logger.Debug("redo", "cursor", h.cursor)
	}
	return h
}

// Reset empties the history and the chunk pool. Pending debounced pushes are
// cancelled and their futures are rejected with ErrReset.
func (h *History) Reset() *History {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.metrics.recordRejection(reasonReset, len(h.pending.futures))
	h.settlePendingLocked(ErrReset)

	h.cursor = -1
	h.log = nil
	h.engine.Pool().Clear()
	h.syncPoolMetricsLocked()

	h.logger.Debug("reset")
	return h
}

// HasUndo reports whether Undo would move the cursor.
func (h *History) HasUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasUndoLocked()
}

func (h *History) hasUndoLocked() bool {
	return h.cursor > max(len(h.log)-h.maxLength, 0)
}

// HasRedo reports whether Redo would move the cursor.
func (h *History) HasRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasRedoLocked()
}

func (h *History) hasRedoLocked() bool {
	for i := h.cursor + 1; i < len(h.log); i++ {
		if h.log[i] != nil {
			return true
		}
	}
	return false
}

// Len returns the number of addressable entries, capped at the max length.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return min(len(h.log), h.maxLength)
}

// Cursor returns the index of the current entry, -1 when empty.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Retained reports whether the entry at slot i is still held. Evicted and
// discarded redo slots are not.
func (h *History) Retained(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return i >= 0 && i < len(h.log) && h.log[i] != nil
}

// Stats returns a snapshot of the history and its pool.
func (h *History) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	retained := 0
	for _, e := range h.log {
		if e != nil {
			retained++
		}
	}

	pool := h.engine.Pool()
	return Stats{
		Length:     min(len(h.log), h.maxLength),
		Cursor:     h.cursor,
		Chunks:     pool.Len(),
		ChunkBytes: pool.Bytes(),
		Retained:   retained,
	}
}

func (h *History) enqueueLocked(state any) {
	if h.onChange != nil {
		h.notices = append(h.notices, state)
	}
}

// drain delivers queued states to onChange without holding the lock. Only
// one goroutine drains at a time, so the hook sees states in commit order; a
// caller that finds a drain running leaves its state to that goroutine.
func (h *History) drain() {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true

	for len(h.notices) > 0 {
		state := h.notices[0]
		h.notices[0] = nil
		h.notices = h.notices[1:]

		h.mu.Unlock()
		h.deliver(state)
		h.mu.Lock()
	}

	h.draining = false
	h.mu.Unlock()
}

// deliver calls onChange. A panicking hook drops the remaining queue so later
// calls can drain again.
func (h *History) deliver(state any) {
	defer func() {
		if r := recover(); r != nil {
			h.mu.Lock()
			h.draining = false
			h.notices = nil
			h.mu.Unlock()
			panic(r)
		}
	}()
	h.onChange(state)
}
