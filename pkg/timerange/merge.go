package timerange

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// Merge returns the sorted, minimal set of ranges covering rr, merging the
// ranges that overlap. Abutting ranges stay separate and empty ranges are
// returned untouched after the merged ones, matching RangeList.Coalesce.
// Merge refuses to work on negative-length ranges and reports false.
//
// The input slice is not modified.
func Merge[T constraints.Integer](rr []Range[T]) (out []Range[T], valid bool) {
	switch len(rr) {
	case 0:
		return nil, true
	case 1:
		if !rr[0].IsValid() {
			return nil, false
		}
		return append(out, rr[0]), true
	}

	sorted := make([]Range[T], 0, len(rr))
	var empty []Range[T]
	for _, r := range rr {
		switch {
		case !r.IsValid():
			// Invalid ranges make no sense to merge, refuse to
			// perform.
			return nil, false
		case r.Empty():
			empty = append(empty, r)
		default:
			sorted = append(sorted, r)
		}
	}
	slices.SortFunc(sorted, func(a, b Range[T]) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	out = make([]Range[T], 0, len(rr))
	for _, r := range sorted {
		if len(out) == 0 {
			out = append(out, r)
			continue
		}
		prev := &out[len(out)-1]
		switch {
		case prev.end <= r.start:
			// No overlap, no merging possible.
			//
			//   prev       r
			// f------t  f-----t
			out = append(out, r)
		case prev.end < r.end:
			// Partial overlap, update prev
			//
			//   prev
			// f------t
			//     f-----t
			//        r
			*prev = prev.SetEnd(r.end)
		default:
			// r entirely contained in prev, nothing to do.
		}
	}
	return append(out, empty...), true
}
