package pipeline

import "strings"

// Pipeline is a non-empty ordered sequence of required steps: "step1 then
// step2 ... then stepN". Unrelated events may occur between steps in a real
// log; order among the required steps is what matters. Steps are never
// reordered or deduplicated after construction.
type Pipeline struct {
	steps []Step
}

// Begin starts a Pipeline at its first step.
func Begin(first Step) Pipeline {
	return Pipeline{steps: []Step{first}}
}

// Seq builds a Pipeline from steps in order. Shorthand for chained Then.
func Seq(first Step, rest ...Step) Pipeline {
	p := Begin(first)
	for _, s := range rest {
		p = p.Then(s)
	}
	return p
}

// Then appends a step, returning a new flattened Pipeline. The receiver is
// unchanged. A Set cannot appear as a step: alternatives between whole
// sequences are expressed with OneOfPipelines, never nested inside one
// sequence, and the type system rejects the attempt at compile time.
func (p Pipeline) Then(next Step) Pipeline {
	steps := make([]Step, 0, len(p.steps)+1)
	steps = append(steps, p.steps...)
	steps = append(steps, next)
	return Pipeline{steps: steps}
}

// Steps returns a copy of the pipeline's steps in order.
func (p Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

func (p Pipeline) Len() int { return len(p.steps) }

// Equal reports structural identity: same steps, same order.
func (p Pipeline) Equal(other Pipeline) bool {
	if len(p.steps) != len(other.steps) {
		return false
	}
	for i := range p.steps {
		if !stepsEqual(p.steps[i], other.steps[i]) {
			return false
		}
	}
	return true
}

func (p Pipeline) String() string {
	parts := make([]string, len(p.steps))
	for i, s := range p.steps {
		switch v := s.(type) {
		case Symbol:
			parts[i] = string(v)
		case Group:
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, " -> ")
}

// Set is a non-empty set of alternative Pipelines. A log satisfies the Set
// when it satisfies any one member.
type Set struct {
	alts []Pipeline
}

// OneOfPipelines builds a Set from whole alternative Pipelines. This is
// alternation between complete sequences; alternation between events at a
// single position is OneOfEvents. The two are deliberately separate calls.
func OneOfPipelines(first Pipeline, rest ...Pipeline) Set {
	alts := make([]Pipeline, 0, 1+len(rest))
	alts = append(alts, first)
	alts = append(alts, rest...)
	return Set{alts: alts}
}

// SetOf wraps a single Pipeline as a one-alternative Set.
func SetOf(p Pipeline) Set {
	return Set{alts: []Pipeline{p}}
}

// Or returns a new Set with an additional alternative appended.
func (s Set) Or(p Pipeline) Set {
	alts := make([]Pipeline, 0, len(s.alts)+1)
	alts = append(alts, s.alts...)
	alts = append(alts, p)
	return Set{alts: alts}
}

// Merge returns a new Set combining the alternatives of both sets, in order.
func (s Set) Merge(other Set) Set {
	alts := make([]Pipeline, 0, len(s.alts)+len(other.alts))
	alts = append(alts, s.alts...)
	alts = append(alts, other.alts...)
	return Set{alts: alts}
}

// Alternatives returns a copy of the member pipelines.
func (s Set) Alternatives() []Pipeline {
	return append([]Pipeline(nil), s.alts...)
}

// IsZero reports whether the Set was never built. Zero Sets are how a
// missing specification shows up; the registry rejects them at startup.
func (s Set) IsZero() bool { return len(s.alts) == 0 }

// Equal reports structural identity: same pipelines, same steps, same
// groups, in the same order. The definition-time checker relies on this to
// reject overrides that alter an inherited specification.
func (s Set) Equal(other Set) bool {
	if len(s.alts) != len(other.alts) {
		return false
	}
	for i := range s.alts {
		if !s.alts[i].Equal(other.alts[i]) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	parts := make([]string, len(s.alts))
	for i, p := range s.alts {
		parts[i] = p.String()
	}
	return strings.Join(parts, " | ")
}
