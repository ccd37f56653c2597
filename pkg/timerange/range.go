package timerange

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Range is the half-open span [start, end) over an integer time coordinate.
// start == end is the empty range.
type Range[T constraints.Integer] struct {
	start T
	end   T
}

func New[T constraints.Integer](start, end T) Range[T] {
	return Range[T]{start: start, end: end}
}

// Start returns the first position in r.
func (r Range[T]) Start() T { return r.start }

// End returns the first position after r.
func (r Range[T]) End() T { return r.end }

// SetStart returns a copy of r that starts at start.
func (r Range[T]) SetStart(start T) Range[T] {
	r.start = start
	return r
}

// SetEnd returns a copy of r that ends at end.
func (r Range[T]) SetEnd(end T) Range[T] {
	r.end = end
	return r
}

func (r Range[T]) Length() T {
	if r.end < r.start {
		return 0
	}
	return r.end - r.start
}

func (r Range[T]) Empty() bool { return r.end <= r.start }

// IsValid reports whether r has a non-negative length.
func (r Range[T]) IsValid() bool { return !(r.end < r.start) }

func (r Range[T]) Contains(pos T) bool { return r.start <= pos && pos < r.end }

func (r Range[T]) String() string {
	return fmt.Sprintf("%d-%d", r.start, r.end)
}

// Coverage classifies how [start, end) overlaps r.
func (r Range[T]) Coverage(start, end T) OverlapType {
	return CoverageExclusiveEnds(r.start, r.end, start, end)
}

// Less orders ranges by start; on equal starts the longer range sorts first.
func (r Range[T]) Less(other Range[T]) bool {
	if r.start != other.start {
		return r.start < other.start
	}
	return other.end < r.end
}

// EntirelyBefore returns whether r ends at or before the start of other.
func (r Range[T]) EntirelyBefore(other Range[T]) bool {
	return r.end <= other.start
}

// CoveredBy returns whether r is entirely contained within other.
func (r Range[T]) CoveredBy(other Range[T]) bool {
	return other.start <= r.start && r.end <= other.end
}

// InMiddleOf returns whether r is inside other, but not touching the
// edges of other.
func (r Range[T]) InMiddleOf(other Range[T]) bool {
	return other.start < r.start && r.end < other.end
}

// OverlapsStartOf returns whether r overlaps the start of other, but not
// all of other.
func (r Range[T]) OverlapsStartOf(other Range[T]) bool {
	return r.start <= other.start && r.end < other.end
}

// OverlapsEndOf returns whether r overlaps the end of other, but not all
// of other.
func (r Range[T]) OverlapsEndOf(other Range[T]) bool {
	return other.start < r.start && other.end <= r.end
}

// Subtract returns r minus the union of sub.
func (r Range[T]) Subtract(sub *RangeList[T]) *RangeList[T] {
	result := &RangeList[T]{}
	if r.Empty() {
		return result
	}
	result.Add(r)
	if sub == nil || sub.Empty() {
		return result
	}

	for _, i := range sub.Get() {
		next := &RangeList[T]{}
		for _, j := range result.ranges {
			switch CoverageExclusiveEnds(j.start, j.end, i.start, i.end) {
			case OverlapNone:
				next.Add(j)
			case OverlapInternal:
				//        j
				// f-------------t
				//    f------t
				//       i
				next.Add(New(j.start, i.start))
				next.Add(New(i.end, j.end))
			case OverlapStart:
				next.Add(New(i.end, j.end))
			case OverlapEnd:
				next.Add(New(j.start, i.start))
			case OverlapExternal:
				// i consumes j
			}
		}
		next.Coalesce()
		result = next
	}
	return result
}

// ParseRange parses a "from-to" string such as "0-48000".
func ParseRange[T constraints.Integer](s string) (Range[T], error) {
	var r Range[T]
	// skip a leading sign on from
	h := strings.IndexByte(s[min(1, len(s)):], '-')
	if h == -1 {
		return r, fmt.Errorf("no hyphen in range %q", s)
	}
	h += min(1, len(s))
	from, to := s[:h], s[h+1:]
	f, err := strconv.ParseInt(from, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid from %q in range %q", from, s)
	}
	t, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid to %q in range %q", to, s)
	}
	r = New(T(f), T(t))
	if !r.IsValid() {
		return r, fmt.Errorf("range %q has negative length", s)
	}
	return r, nil
}
