// Package pipeline defines the audit process expression language: event
// symbols, OR-groups, ordered pipelines, and sets of alternative pipelines.
// Values are immutable once built; builders return copies, never mutate.
package pipeline

import "strings"

// Symbol names one domain event kind, e.g. "auth.attempt". Symbols are
// value-equal identifiers; the engine never interprets their contents.
type Symbol string

func (s Symbol) String() string { return string(s) }

// Step is one position in a Pipeline: either a single Symbol or a Group.
// The two shapes are sealed here so the validator can match exhaustively.
type Step interface {
	// Accepts reports whether an emitted symbol satisfies this step.
	Accepts(sym Symbol) bool

	step()
}

func (s Symbol) Accepts(sym Symbol) bool { return s == sym }
func (Symbol) step()                     {}

// Group is an OR-set of Symbols occupying a single pipeline position: the
// step is satisfied by any one member, never by requiring all of them.
// Members are deduplicated at construction; build via OneOfEvents.
type Group struct {
	members []Symbol
}

// OneOfEvents builds a Group from one or more symbols. Duplicates are
// dropped, keeping first occurrence; the signature guarantees non-emptiness.
func OneOfEvents(first Symbol, rest ...Symbol) Group {
	members := make([]Symbol, 0, 1+len(rest))
	seen := make(map[Symbol]struct{}, 1+len(rest))
	for _, sym := range append([]Symbol{first}, rest...) {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		members = append(members, sym)
	}
	return Group{members: members}
}

func (g Group) Accepts(sym Symbol) bool {
	for _, m := range g.members {
		if m == sym {
			return true
		}
	}
	return false
}

func (Group) step() {}

// Members returns a copy of the group's symbols.
func (g Group) Members() []Symbol {
	return append([]Symbol(nil), g.members...)
}

func (g Group) String() string {
	parts := make([]string, len(g.members))
	for i, m := range g.members {
		parts[i] = string(m)
	}
	return "one_of(" + strings.Join(parts, "|") + ")"
}

// stepsEqual compares two steps structurally. Symbols compare by value;
// groups compare by membership, ignoring declaration order since a Group is
// a set.
func stepsEqual(a, b Step) bool {
	switch sa := a.(type) {
	case Symbol:
		sb, ok := b.(Symbol)
		return ok && sa == sb
	case Group:
		gb, ok := b.(Group)
		if !ok || len(sa.members) != len(gb.members) {
			return false
		}
		for _, m := range sa.members {
			if !gb.Accepts(m) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
