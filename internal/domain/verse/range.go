package verse

import "github.com/cockroachdb/errors"

// ErrInvalidRange is returned when a range is inverted or out of bounds.
var ErrInvalidRange = errors.New("invalid verse range")

// Range is a contiguous, 1-based, inclusive selection of verses.
type Range struct {
	Start int
	End   int
}

// NewRange creates a range and validates start <= end.
func NewRange(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(0); err != nil {
		return Range{}, err
	}
	return r, nil
}

// DefaultRange returns the range selected when a chapter is opened:
// the first span verses, or fewer if the chapter is shorter.
func DefaultRange(itemCount, span int) Range {
	if span < 1 {
		span = 1
	}
	end := span
	if itemCount > 0 && itemCount < end {
		end = itemCount
	}
	return Range{Start: 1, End: end}
}

// Validate checks the range invariants. itemCount <= 0 skips the upper bound check.
func (r Range) Validate(itemCount int) error {
	if r.Start < 1 {
		return errors.Wrapf(ErrInvalidRange, "start %d must be >= 1", r.Start)
	}
	if r.Start > r.End {
		return errors.Wrapf(ErrInvalidRange, "start %d must be <= end %d", r.Start, r.End)
	}
	if itemCount > 0 && r.End > itemCount {
		return errors.Wrapf(ErrInvalidRange, "end %d exceeds item count %d", r.End, itemCount)
	}
	return nil
}

// IsSingle returns true if the range selects exactly one verse.
func (r Range) IsSingle() bool {
	return r.Start == r.End
}

// Len returns the number of verses in the range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Contains reports whether n lies inside the range.
func (r Range) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// Clamp returns n forced into [Start, End].
func (r Range) Clamp(n int) int {
	if n < r.Start {
		return r.Start
	}
	if n > r.End {
		return r.End
	}
	return n
}
