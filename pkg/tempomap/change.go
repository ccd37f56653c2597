package tempomap

import (
	"slices"

	"github.com/henderiw/temporal/pkg/tempo"
)

type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeReplaced
	ChangeRemoved
	// ChangeRetimed is sent when sections moved without being added or
	// removed, e.g. after InsertTime.
	ChangeRetimed
)

func (r ChangeType) String() string {
	switch r {
	case ChangeAdded:
		return "added"
	case ChangeReplaced:
		return "replaced"
	case ChangeRemoved:
		return "removed"
	case ChangeRetimed:
		return "retimed"
	}
	return "unknown"
}

// Change describes a successful mutation. Section is a copy of the section
// the mutation was about, nil for ChangeRetimed.
type Change struct {
	Type    ChangeType
	Section tempo.Section
}

// Subscribe registers fn to be called after every successful mutation. fn is
// called outside the map lock, so it may query the map. The returned func
// removes the subscription.
func (r *TempoMap) Subscribe(fn func(Change)) func() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		delete(r.subs, id)
	}
}

func (r *TempoMap) notify(c Change) {
	r.subMu.Lock()
	fns := make([]func(Change), 0, len(r.subs))
	ids := make([]uint64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
