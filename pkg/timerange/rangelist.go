package timerange

import (
	"strings"

	"golang.org/x/exp/constraints"
)

// coalesceSortThreshold is the list length above which Coalesce switches
// from the pairwise restart loop to a sort-and-merge pass.
const coalesceSortThreshold = 64

// RangeList is an insertion-ordered collection of ranges that is coalesced
// lazily: Add only appends, reads merge overlapping ranges first.
//
// After coalescing no two ranges in the list overlap. Ranges that merely
// abut ([a,b) and [b,c)) do not overlap and are kept apart. The list is not
// kept sorted.
type RangeList[T constraints.Integer] struct {
	ranges []Range[T]
	dirty  bool
}

func NewRangeList[T constraints.Integer](rr ...Range[T]) *RangeList[T] {
	l := &RangeList[T]{}
	for _, r := range rr {
		l.Add(r)
	}
	return l
}

// Add appends r to the list.
func (r *RangeList[T]) Add(rng Range[T]) {
	r.ranges = append(r.ranges, rng)
	r.dirty = true
}

// Get coalesces the list and returns a copy of its ranges.
func (r *RangeList[T]) Get() []Range[T] {
	r.Coalesce()
	return append([]Range[T]{}, r.ranges...)
}

func (r *RangeList[T]) Empty() bool { return len(r.ranges) == 0 }

// Len returns the number of ranges currently held, without coalescing.
func (r *RangeList[T]) Len() int { return len(r.ranges) }

// Coalesce merges every pair of overlapping ranges into their union until no
// overlapping pair is left. It is a no-op when nothing was added since the
// previous call.
func (r *RangeList[T]) Coalesce() {
	if !r.dirty {
		return
	}
	r.dirty = false

	if len(r.ranges) > coalesceSortThreshold {
		if out, ok := Merge(r.ranges); ok {
			r.ranges = out
			return
		}
	}

restart:
	for i := range r.ranges {
		for j := range r.ranges {
			if i == j {
				continue
			}
			a, b := r.ranges[i], r.ranges[j]
			if CoverageExclusiveEnds(a.start, a.end, b.start, b.end) == OverlapNone {
				continue
			}
			r.ranges[i] = New(min(a.start, b.start), max(a.end, b.end))
			r.ranges = append(r.ranges[:j], r.ranges[j+1:]...)
			goto restart
		}
	}
}

func (r *RangeList[T]) String() string {
	parts := make([]string, 0, len(r.ranges))
	for _, rng := range r.ranges {
		parts = append(parts, rng.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}
