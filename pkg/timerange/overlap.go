package timerange

import "golang.org/x/exp/constraints"

// OverlapType describes how a probe range B overlaps a reference range A.
type OverlapType int

const (
	// OverlapNone: B does not touch A.
	OverlapNone OverlapType = iota
	// OverlapInternal: B lies inside A without touching its edges.
	OverlapInternal
	// OverlapStart: B covers the start of A, but not all of A.
	OverlapStart
	// OverlapEnd: B covers the end of A, but not all of A.
	OverlapEnd
	// OverlapExternal: B covers all of A.
	OverlapExternal
)

func (r OverlapType) String() string {
	switch r {
	case OverlapNone:
		return "none"
	case OverlapInternal:
		return "internal"
	case OverlapStart:
		return "start"
	case OverlapEnd:
		return "end"
	case OverlapExternal:
		return "external"
	}
	return "unknown"
}

// Coverage classifies how B=[sb,eb] overlaps A=[sa,ea]. Both ends are
// inclusive.
//
// A negative-length range (start after end) never overlaps anything and is
// classified as OverlapNone. Callers that need to tell malformed input apart
// from a genuine miss should check Range.IsValid first.
func Coverage[T constraints.Integer](sa, ea, sb, eb T) OverlapType {
	if sa > ea || sb > eb {
		return OverlapNone
	}

	switch {
	case sb < sa:
		// B starts before A
		//
		//        A
		//     f-----t
		//  f----...
		//     B
		switch {
		case eb < sa:
			return OverlapNone
		case eb == sa:
			return OverlapStart
		case eb < ea:
			return OverlapStart
		default:
			return OverlapExternal
		}
	case sb == sa:
		if eb < ea {
			return OverlapStart
		}
		return OverlapExternal
	default:
		// B starts after the start of A
		switch {
		case eb < ea:
			return OverlapInternal
		case sb <= ea:
			//       A
			//  f-------t
			//      f-------t
			//          B
			return OverlapEnd
		default:
			return OverlapNone
		}
	}
}

// CoverageExclusiveEnds is Coverage for ranges whose ends are exclusive.
// An empty range ([s,s)) overlaps nothing.
func CoverageExclusiveEnds[T constraints.Integer](sa, ea, sb, eb T) OverlapType {
	// guards the decrement against wrapping unsigned or minimum values
	if ea <= sa || eb <= sb {
		return OverlapNone
	}
	return Coverage(sa, ea-1, sb, eb-1)
}
