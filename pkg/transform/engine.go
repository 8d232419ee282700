// Package transform converts tree-shaped state into content-addressed record
// trees backed by a chunk pool, and rebuilds state from records.
//
// Decomposition walks the state tree, picks a Rule per node, serializes each
// chunk the rule produces, hashes it and stores it in the pool. The resulting
// Record holds only digests, the rule name and child records, so unchanged
// subtrees across history entries share pool entries.
package transform

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/papercomputeco/rewind/pkg/chunk"
	"github.com/papercomputeco/rewind/pkg/hash"
	"github.com/papercomputeco/rewind/pkg/logger"
	"github.com/papercomputeco/rewind/pkg/serialize"
)

var (
	// ErrMissingChunk is returned when a record references a digest that is
	// not in the pool. Records and the pool share one lifecycle, so this
	// indicates a broken invariant and is never papered over.
	ErrMissingChunk = errors.New("missing chunk")

	// ErrUnknownRule is returned when a record names a rule the rule set
	// does not contain.
	ErrUnknownRule = errors.New("unknown rule")
)

// Hasher computes the digest of a serialized chunk.
type Hasher interface {
	Sum(payload string) hash.Digest
}

// Engine decomposes state into records and reconstructs it, using one pool
// and one rule set.
type Engine struct {
	pool   *chunk.Pool
	rules  *RuleSet
	hasher Hasher
	logger *slog.Logger

	// collisions counts Puts that overwrote a different payload
	collisions atomic.Uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHasher overrides the seed 0 xxhash hasher.
func WithHasher(h Hasher) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.hasher = h
		}
	}
}

// WithLogger sets the logger used to report digest collisions.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine over pool. A nil rules applies the default rule
// to every node.
func NewEngine(pool *chunk.Pool, rules *RuleSet, opts ...EngineOption) *Engine {
	e := &Engine{
		pool:   pool,
		rules:  rules,
		hasher: hash.New(0),
		logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Pool returns the pool the engine reads and writes.
func (e *Engine) Pool() *chunk.Pool {
	return e.pool
}

// Collisions returns how many chunk writes replaced a different payload
// stored under the same digest.
func (e *Engine) Collisions() uint64 {
	return e.collisions.Load()
}

// Decompose converts node into a record tree, storing every chunk in the pool.
//
// With pickIndex < 0 every child is decomposed. With pickIndex >= 0 and a
// prev record that has children, the children of prev are reused as they are
// and only the child at pickIndex is decomposed again. The caller must pick
// the child that actually changed; a wrong index yields a record that
// disagrees with node. An index outside the children of either prev or node
// falls back to full decomposition.
//
// A child that is one of its own ancestors is decomposed as nil, which keeps
// cyclic state from recursing forever.
func (e *Engine) Decompose(node any, prev *Record, pickIndex int) (*Record, error) {
	return e.decompose(node, prev, pickIndex, make(map[uintptr]struct{}))
}

func (e *Engine) decompose(node any, prev *Record, pickIndex int, ancestors map[uintptr]struct{}) (*Record, error) {
	rule := e.rules.Select(node)

	parts, err := rule.ToRecord(node)
	if err != nil {
		return nil, fmt.Errorf("rule %q: to record: %w", rule.Name, err)
	}

	record := &Record{
		Hashes: make([]hash.Digest, 0, len(parts.Chunks)),
		Rule:   rule.Name,
	}

	for i, c := range parts.Chunks {
		digest, err := e.store(c)
		if err != nil {
			return nil, fmt.Errorf("rule %q: chunk %d: %w", rule.Name, i, err)
		}
		record.Hashes = append(record.Hashes, digest)
	}

	if parts.Children == nil {
		return record, nil
	}

	if id, ok := identity(node); ok {
		ancestors[id] = struct{}{}
		defer delete(ancestors, id)
	}

	if pickIndex >= 0 && prev != nil && prev.Children != nil &&
		pickIndex < len(prev.Children) && pickIndex < len(parts.Children) {
		children := slices.Clone(prev.Children)

		child, err := e.decomposeChild(parts.Children[pickIndex], ancestors)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", pickIndex, err)
		}

		children[pickIndex] = child
		record.Children = children
		return record, nil
	}

	record.Children = make([]*Record, len(parts.Children))
	for i, c := range parts.Children {
		child, err := e.decomposeChild(c, ancestors)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		record.Children[i] = child
	}

	return record, nil
}

func (e *Engine) decomposeChild(node any, ancestors map[uintptr]struct{}) (*Record, error) {
	if id, ok := identity(node); ok {
		if _, cyclic := ancestors[id]; cyclic {
			node = nil
		}
	}
	return e.decompose(node, nil, -1, ancestors)
}

// store serializes, hashes and pools one chunk.
func (e *Engine) store(c any) (hash.Digest, error) {
	payload, err := serialize.Marshal(c)
	if err != nil {
		return "", err
	}

	digest := e.hasher.Sum(payload)
	if res := e.pool.Put(digest, payload); res.Collided {
		e.collisions.Add(1)
		e.logger.Warn("digest collision, chunk overwritten",
			"digest", digest.String(),
			"bytes", len(payload),
		)
	}

	return digest, nil
}

// Reconstruct rebuilds the state node described by r from the pool.
func (e *Engine) Reconstruct(r *Record) (any, error) {
	if r == nil {
		return nil, errors.New("cannot reconstruct nil record")
	}

	rule, ok := e.rules.Lookup(r.Rule)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, r.Rule)
	}

	chunks := make([]any, len(r.Hashes))
	for i, d := range r.Hashes {
		payload, err := e.pool.Get(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingChunk, err)
		}

		v, err := serialize.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Short(), err)
		}
		chunks[i] = v
	}

	var children []any
	if r.Children != nil {
		children = make([]any, len(r.Children))
		for i, c := range r.Children {
			v, err := e.Reconstruct(c)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children[i] = v
		}
	}

	node, err := rule.FromRecord(Parts{Chunks: chunks, Children: children})
	if err != nil {
		return nil, fmt.Errorf("rule %q: from record: %w", rule.Name, err)
	}

	return node, nil
}

// Decompose converts node into a record using pool and rules with the seed 0
// hasher. See Engine.Decompose.
func Decompose(node any, pool *chunk.Pool, rules *RuleSet, prev *Record, pickIndex int) (*Record, error) {
	return NewEngine(pool, rules).Decompose(node, prev, pickIndex)
}

// Reconstruct rebuilds the node described by record. See Engine.Reconstruct.
func Reconstruct(record *Record, pool *chunk.Pool, rules *RuleSet) (any, error) {
	return NewEngine(pool, rules).Reconstruct(record)
}

// identity returns the address of reference-typed nodes.
func identity(node any) (uintptr, bool) {
	v := reflect.ValueOf(node)
	switch v.Kind() {
	case reflect.Map, reflect.Pointer:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	default:
		return 0, false
	}
}
