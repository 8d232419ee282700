package transform

import (
	"errors"
	"fmt"
)

const (
	// DefaultRuleName identifies the rule applied when no registered rule
	// matches a node.
	DefaultRuleName = "default"

	// ChildrenKey is the map key the default rule reads child nodes from.
	ChildrenKey = "children"
)

// ErrInvalidRule is returned when a rule set cannot be built from the
// provided rules.
var ErrInvalidRule = errors.New("invalid rule")

// Parts is the decomposed form of one state node.
type Parts struct {
	// Chunks are serialized, hashed and pooled one by one, in order.
	Chunks []any

	// Children are the child state nodes. A nil slice marks a leaf; an empty
	// non-nil slice marks a node whose children list is currently empty.
	Children []any
}

// Rule describes how to split a class of state nodes into chunks and back.
//
// FromRecord(ToRecord(node)) must rebuild a node equivalent to node for every
// node Match accepts. The engine does not check this.
type Rule struct {
	// Name is stored in records in place of the rule itself, so it must be
	// unique within a RuleSet and stable across rule set instances.
	Name string

	Match      func(node any) bool
	ToRecord   func(node any) (Parts, error)
	FromRecord func(parts Parts) (any, error)
}

// RuleSet is an ordered list of rules. The first rule whose Match accepts a
// node wins; the default rule applies when none does. A nil *RuleSet holds
// only the default rule.
type RuleSet struct {
	rules  []Rule
	byName map[string]int
}

// NewRuleSet validates rules and returns them as a RuleSet in the given order.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	s := &RuleSet{
		rules:  make([]Rule, 0, len(rules)),
		byName: make(map[string]int, len(rules)),
	}

	for i, r := range rules {
		switch {
		case r.Name == "":
			return nil, fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i)
		case r.Name == DefaultRuleName:
			return nil, fmt.Errorf("%w: rule name %q is reserved", ErrInvalidRule, r.Name)
		case r.Match == nil || r.ToRecord == nil || r.FromRecord == nil:
			return nil, fmt.Errorf("%w: rule %q is missing a function", ErrInvalidRule, r.Name)
		}

		if _, ok := s.byName[r.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRule, r.Name)
		}

		s.byName[r.Name] = len(s.rules)
		s.rules = append(s.rules, r)
	}

	return s, nil
}

// Len returns the number of registered rules, not counting the default rule.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Select returns the rule that applies to node.
func (s *RuleSet) Select(node any) Rule {
	if s != nil {
		for _, r := range s.rules {
			if r.Match(node) {
				return r
			}
		}
	}
	return defaultRule
}

// Lookup returns the rule registered under name. The default rule is always
// found under DefaultRuleName.
func (s *RuleSet) Lookup(name string) (Rule, bool) {
	if name == DefaultRuleName {
		return defaultRule, true
	}
	if s == nil {
		return Rule{}, false
	}

	i, ok := s.byName[name]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

var defaultRule = Rule{
	Name:       DefaultRuleName,
	Match:      func(any) bool { return true },
	ToRecord:   defaultToRecord,
	FromRecord: defaultFromRecord,
}

// defaultToRecord stores a map minus its children list as one chunk and uses
// the children list as child nodes. Anything else is a single-chunk leaf.
func defaultToRecord(node any) (Parts, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return Parts{Chunks: []any{node}}, nil
	}

	children, ok := m[ChildrenKey].([]any)
	if !ok {
		return Parts{Chunks: []any{m}}, nil
	}

	body := make(map[string]any, len(m))
	for k, v := range m {
		if k != ChildrenKey {
			body[k] = v
		}
	}

	return Parts{Chunks: []any{body}, Children: children}, nil
}

func defaultFromRecord(parts Parts) (any, error) {
	if len(parts.Chunks) != 1 {
		return nil, fmt.Errorf("default rule expects 1 chunk, got %d", len(parts.Chunks))
	}

	m, ok := parts.Chunks[0].(map[string]any)
	if !ok {
		return parts.Chunks[0], nil
	}

	if parts.Children != nil {
		m[ChildrenKey] = parts.Children
	}

	return m, nil
}
