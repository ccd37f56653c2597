package timerange

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/constraints"
)

// SetBuilder accumulates ranges to include and exclude, and produces the
// normalized Set they describe.
type SetBuilder[T constraints.Integer] struct {
	in   []Range[T]
	out  []Range[T]
	errs error
}

// AddRange adds all positions in r to s.
func (s *SetBuilder[T]) AddRange(r Range[T]) {
	if !r.IsValid() {
		s.errs = errors.Join(s.errs, fmt.Errorf("addRange(%v)", r))
		return
	}
	// removals apply to what was added before them
	if len(s.out) > 0 {
		s.normalize()
	}
	s.in = append(s.in, r)
}

// RemoveRange removes all positions in r from s.
func (s *SetBuilder[T]) RemoveRange(r Range[T]) {
	if !r.IsValid() {
		s.errs = errors.Join(s.errs, fmt.Errorf("removeRange(%v)", r))
		return
	}
	s.out = append(s.out, r)
}

// AddSet adds all positions in b to s.
func (s *SetBuilder[T]) AddSet(b *Set[T]) {
	if b == nil {
		return
	}
	for _, r := range b.rr {
		s.AddRange(r)
	}
}

// RemoveSet removes all positions in b from s.
func (s *SetBuilder[T]) RemoveSet(b *Set[T]) {
	if b == nil {
		return
	}
	for _, r := range b.rr {
		s.RemoveRange(r)
	}
}

// normalize normalizes s: s.in becomes the minimal sorted list of
// ranges required to describe s, and s.out becomes empty.
func (s *SetBuilder[T]) normalize() {
	in := minimal(s.in)
	out := minimal(s.out)

	// in and out are sorted in ascending range order, and have no
	// overlaps within each other. We can run a merge of the two lists
	// in one pass.
	min := make([]Range[T], 0, len(in))
	for len(in) > 0 && len(out) > 0 {
		rin, rout := in[0], out[0]

		switch {
		case rout.EntirelyBefore(rin):
			//    out         in
			// f-------t   f-------t
			out = out[1:]
		case rin.EntirelyBefore(rout):
			//    in         out
			// f------t   f-------t
			min = append(min, rin)
			in = in[1:]
		case rin.CoveredBy(rout):
			//       out
			// f-------------t
			//    f------t
			//       in
			in = in[1:]
		case rout.InMiddleOf(rin):
			//       in
			// f-------------t
			//    f------t
			//       out
			min = append(min, New(rin.start, rout.start))
			// Adjust in[0], not rin, because we want to consider the
			// mutated range on the next iteration.
			in[0] = in[0].SetStart(rout.end)
			out = out[1:]
		case rout.OverlapsStartOf(rin):
			//   out
			// f------t
			//    f------t
			//       in
			in[0] = in[0].SetStart(rout.end)
			// Can't move in[0] onto min yet, another later out might
			// trim it further.
			out = out[1:]
		case rout.OverlapsEndOf(rin):
			//           out
			//        f------t
			//    f------t
			//       in
			min = append(min, New(rin.start, rout.start))
			in = in[1:]
		default:
			// The above accounts for all combinations of in and out
			// overlapping.
			panic("unexpected additional overlap scenario")
		}
	}
	min = append(min, in...)

	s.in = min
	s.out = nil
}

// minimal returns the sorted list of non-empty ranges covering rr with
// overlapping and abutting ranges joined.
func minimal[T constraints.Integer](rr []Range[T]) []Range[T] {
	merged, ok := Merge(rr)
	if !ok {
		// builders never store invalid ranges
		panic("invalid range during set normalization")
	}
	out := make([]Range[T], 0, len(merged))
	for _, r := range merged {
		if r.Empty() {
			continue
		}
		if n := len(out); n > 0 && out[n-1].end == r.start {
			out[n-1] = out[n-1].SetEnd(r.end)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Set returns the normalized set. Errors for ranges that were rejected while
// building are returned together with the set of the valid ones.
func (s *SetBuilder[T]) Set() (*Set[T], error) {
	s.normalize()
	set := &Set[T]{rr: append([]Range[T]{}, s.in...)}
	errs := s.errs
	s.errs = nil
	return set, errs
}

// Set is an immutable set of positions stored as a sorted, minimal list of
// ranges (no overlapping and no abutting ranges).
type Set[T constraints.Integer] struct {
	rr []Range[T]
}

// Ranges returns the sorted, minimal list of ranges covering s.
func (s *Set[T]) Ranges() []Range[T] {
	return append([]Range[T]{}, s.rr...)
}

func (s *Set[T]) Empty() bool { return len(s.rr) == 0 }

// Contains reports whether pos is in s.
func (s *Set[T]) Contains(pos T) bool {
	i := sort.Search(len(s.rr), func(i int) bool { return s.rr[i].end > pos })
	return i < len(s.rr) && s.rr[i].Contains(pos)
}

// Length returns the number of positions in s.
func (s *Set[T]) Length() T {
	var total T
	for _, r := range s.rr {
		total += r.Length()
	}
	return total
}

func (s *Set[T]) String() string {
	parts := make([]string, 0, len(s.rr))
	for _, r := range s.rr {
		parts = append(parts, r.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}
