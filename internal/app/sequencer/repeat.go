package sequencer

import "fmt"

// RepeatPolicy is the configured number of plays per verse before advancing.
//
// Count has a dual meaning:
//   - single-verse range: the verse plays Count times, 0 loops it forever
//   - multi-verse range: each verse plays Count times (0 and 1 both mean once),
//     and 0 additionally loops the whole range forever
type RepeatPolicy struct {
	Count int
}

// NewRepeatPolicy creates a policy. Negative counts are rejected.
func NewRepeatPolicy(count int) (RepeatPolicy, error) {
	if count < 0 {
		return RepeatPolicy{}, ErrInvalidRepeat
	}
	return RepeatPolicy{Count: count}, nil
}

// Unbounded returns true if playback never terminates on its own.
func (p RepeatPolicy) Unbounded() bool {
	return p.Count == 0
}

// PlaysPerItem returns how many times each verse plays before advancing.
// 0 means forever (only reachable for single-verse ranges).
func (p RepeatPolicy) PlaysPerItem(single bool) int {
	if single {
		return p.Count
	}
	if p.Count <= 1 {
		return 1
	}
	return p.Count
}

// LoopsItem reports whether a verse is replayed indefinitely.
func (p RepeatPolicy) LoopsItem(single bool) bool {
	return single && p.Count == 0
}

// LoopsRange reports whether the range wraps back to its start indefinitely.
func (p RepeatPolicy) LoopsRange(single bool) bool {
	return !single && p.Count == 0
}

// Describe returns a human readable summary of the policy for the given range shape.
func (p RepeatPolicy) Describe(single bool) string {
	if single {
		switch p.Count {
		case 0:
			return "Will repeat this verse infinitely."
		case 1:
			return "Will repeat this verse once."
		default:
			return fmt.Sprintf("Will repeat this verse %d times.", p.Count)
		}
	}
	switch p.Count {
	case 0:
		return "Will play each verse once and loop the range infinitely."
	case 1:
		return "Will play each verse once and stop at the end of the range."
	default:
		return fmt.Sprintf("Will repeat each verse %d times before moving to the next verse.", p.Count)
	}
}
