package pipeline

// Satisfied reports whether an ordered sequence of emitted symbols contains
// the pipeline's steps as a subsequence. Matching is greedy leftmost: each
// step consumes the first acceptable event at or after the cursor, and later
// steps never reconsider an earlier assignment. Greedy is exact here, not a
// heuristic: taking the earliest acceptable event always leaves the longest
// possible suffix for the remaining steps, so no backtracking is needed even
// when groups at different positions overlap. O(steps * len(log)).
func (p Pipeline) Satisfied(log []Symbol) bool {
	cursor := 0
	for _, step := range p.steps {
		matched := false
		for ; cursor < len(log); cursor++ {
			if step.Accepts(log[cursor]) {
				cursor++
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Satisfied reports whether the log satisfies at least one alternative.
// Each alternative is evaluated independently from the start of the log.
func (s Set) Satisfied(log []Symbol) bool {
	for _, p := range s.alts {
		if p.Satisfied(log) {
			return true
		}
	}
	return false
}
