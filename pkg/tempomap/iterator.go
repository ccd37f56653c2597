package tempomap

import "github.com/henderiw/temporal/pkg/tempo"

// Iterator walks a snapshot of the sections ordered by pulse.
type Iterator struct {
	current  int
	sections []tempo.Section
}

func (r *TempoMap) Iterate() *Iterator {
	r.m.RLock()
	defer r.m.RUnlock()

	return &Iterator{current: -1, sections: r.sections()}
}

func (r *Iterator) Value() tempo.Section {
	return r.sections[r.current]
}

func (r *Iterator) ID() uint64 {
	return r.sections[r.current].ID()
}

func (r *Iterator) Next() bool {
	r.current++
	return r.current < len(r.sections)
}

// IsCoincident reports whether the current section starts on the same pulse
// as the previous one, e.g. a tempo and a meter change on the same bar.
func (r *Iterator) IsCoincident() bool {
	if r.current < 1 {
		return false
	}
	return r.sections[r.current-1].Pulse() == r.sections[r.current].Pulse()
}
