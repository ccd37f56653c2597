package tempomap

import (
	"fmt"
	"math"
	"sort"

	"github.com/henderiw/temporal/pkg/tempo"
	"golang.org/x/exp/constraints"
)

// state is the section list of a map. A mutation works on a clone and only
// replaces the live state once the clone recomputed without errors.
type state struct {
	tempos []*tempo.TempoSection
	meters []*tempo.MeterSection
}

func (r *state) clone() *state {
	c := &state{
		tempos: make([]*tempo.TempoSection, 0, len(r.tempos)),
		meters: make([]*tempo.MeterSection, 0, len(r.meters)),
	}
	for _, t := range r.tempos {
		c.tempos = append(c.tempos, copyTempo(t))
	}
	for _, m := range r.meters {
		c.meters = append(c.meters, copyMeter(m))
	}
	return c
}

func copyTempo(t *tempo.TempoSection) *tempo.TempoSection {
	c := *t
	return &c
}

func copyMeter(m *tempo.MeterSection) *tempo.MeterSection {
	c := *m
	return &c
}

func copySection(s tempo.Section) tempo.Section {
	switch v := s.(type) {
	case *tempo.TempoSection:
		return copyTempo(v)
	case *tempo.MeterSection:
		return copyMeter(v)
	}
	panic(fmt.Sprintf("unexpected section type %T", s))
}

// sections returns all sections ordered by pulse, a meter before a tempo on
// the same pulse.
func (r *state) sections() []tempo.Section {
	sections := make([]tempo.Section, 0, len(r.tempos)+len(r.meters))
	for _, m := range r.meters {
		sections = append(sections, m)
	}
	for _, t := range r.tempos {
		sections = append(sections, t)
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Pulse() < sections[j].Pulse()
	})
	return sections
}

func (r *state) tempoIndex(id uint64) int {
	for i, t := range r.tempos {
		if t.ID() == id {
			return i
		}
	}
	return -1
}

func (r *state) meterIndex(id uint64) int {
	for i, m := range r.meters {
		if m.ID() == id {
			return i
		}
	}
	return -1
}

// insertTempo places ts among the tempos by its lock axis. A tempo landing
// on the anchor of an existing one updates that section in place and the
// updated section is returned.
func (r *state) insertTempo(ts *tempo.TempoSection) *tempo.TempoSection {
	var idx int
	switch ts.Lock() {
	case tempo.AudioTime:
		idx = sort.Search(len(r.tempos), func(i int) bool { return r.tempos[i].Sample() >= ts.Sample() })
		if idx < len(r.tempos) && r.tempos[idx].Sample() == ts.Sample() {
			return updateTempo(r.tempos[idx], ts)
		}
	default:
		idx = sort.Search(len(r.tempos), func(i int) bool { return r.tempos[i].Pulse() >= ts.Pulse() })
		if idx < len(r.tempos) && r.tempos[idx].Pulse() == ts.Pulse() {
			return updateTempo(r.tempos[idx], ts)
		}
	}
	r.tempos = append(r.tempos, nil)
	copy(r.tempos[idx+1:], r.tempos[idx:])
	r.tempos[idx] = ts
	return ts
}

func updateTempo(existing, ts *tempo.TempoSection) *tempo.TempoSection {
	existing.SetTempo(ts.Tempo)
	if !existing.Initial() {
		existing.SetLock(ts.Lock())
	}
	return existing
}

// insertMeter places ms among the meters by its lock axis, see insertTempo.
func (r *state) insertMeter(ms *tempo.MeterSection) *tempo.MeterSection {
	var idx int
	switch ms.Lock() {
	case tempo.AudioTime:
		idx = sort.Search(len(r.meters), func(i int) bool { return r.meters[i].Sample() >= ms.Sample() })
		if idx < len(r.meters) && r.meters[idx].Sample() == ms.Sample() {
			return updateMeter(r.meters[idx], ms)
		}
	default:
		idx = sort.Search(len(r.meters), func(i int) bool { return r.meters[i].BBT().Bars >= ms.BBT().Bars })
		if idx < len(r.meters) && r.meters[idx].BBT().Bars == ms.BBT().Bars {
			return updateMeter(r.meters[idx], ms)
		}
	}
	r.meters = append(r.meters, nil)
	copy(r.meters[idx+1:], r.meters[idx:])
	r.meters[idx] = ms
	return ms
}

func updateMeter(existing, ms *tempo.MeterSection) *tempo.MeterSection {
	existing.SetMeter(ms.Meter)
	if !existing.Initial() {
		existing.SetLock(ms.Lock())
	}
	return existing
}

// recompute derives the coordinates of every section from its lock axis and
// validates the result.
func (r *state) recompute(sr int64) error {
	if len(r.tempos) == 0 || len(r.meters) == 0 {
		panic("tempo map without initial sections")
	}
	if err := r.recomputeTempos(sr); err != nil {
		return err
	}
	if err := r.recomputeMeters(sr); err != nil {
		return err
	}
	return r.validate()
}

func (r *state) recomputeTempos(sr int64) error {
	first := r.tempos[0]
	first.SetPulse(0)
	first.SetMinute(0)
	first.SetSample(0)

	for i := 1; i < len(r.tempos); i++ {
		prev, cur := r.tempos[i-1], r.tempos[i]
		switch cur.Lock() {
		case tempo.AudioTime:
			cur.SetMinute(tempo.MinuteAtSample(cur.Sample(), sr))
			if err := ordered("minute", prev.Minute(), cur.Minute()); err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			if prev.Ramped() {
				c := prev.ComputeCFromMinute(prev.EndNoteTypesPerMinute(), cur.Minute())
				prev.SetRamp(c, 0)
				prev.SetRamp(c, prev.PulseAtMinute(cur.Minute()))
			} else {
				prev.SetRamp(0, 0)
			}
			cur.SetPulse(prev.PulseAtMinute(cur.Minute()))
		default:
			if err := ordered("pulse", prev.Pulse(), cur.Pulse()); err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			if prev.Ramped() {
				prev.SetRamp(prev.ComputeCFromPulse(prev.EndNoteTypesPerMinute(), cur.Pulse()), cur.Pulse())
			} else {
				prev.SetRamp(0, 0)
			}
			cur.SetMinute(prev.MinuteAtPulse(cur.Pulse()))
			sample, err := sampleAtMinute(cur.Minute(), sr)
			if err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			cur.SetSample(sample)
		}
	}
	// the last section has nothing to ramp to
	r.tempos[len(r.tempos)-1].SetRamp(0, 0)
	return nil
}

func (r *state) recomputeMeters(sr int64) error {
	first := r.meters[0]
	first.SetBBT(tempo.BBT{Bars: 1, Beats: 1})
	first.SetBeat(0)
	first.SetPulse(0)
	first.SetMinute(0)
	first.SetSample(0)

	for i := 1; i < len(r.meters); i++ {
		prev, cur := r.meters[i-1], r.meters[i]
		switch cur.Lock() {
		case tempo.AudioTime:
			minute := tempo.MinuteAtSample(cur.Sample(), sr)
			ts := r.tempoAtMinute(minute)
			if ts == nil {
				return fmt.Errorf("%s: %w", cur, ErrOrderingViolation)
			}
			pulse := ts.PulseAtMinute(minute)
			if err := ordered("pulse", prev.Pulse(), pulse); err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			// an audio locked meter starts a new bar, the bar it falls in is
			// cut short
			beats := roundToTicks((pulse - prev.Pulse()) * prev.NoteDivisor())
			bars := math.Ceil(beats / prev.DivisionsPerBar())
			cur.SetMinute(minute)
			cur.SetPulse(pulse)
			cur.SetBeat(prev.Beat() + (bars * prev.DivisionsPerBar()))
			cur.SetBBT(tempo.BBT{Bars: prev.BBT().Bars + int32(bars), Beats: 1})
		default:
			if err := ordered("bar", prev.BBT().Bars, cur.BBT().Bars); err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			bars := float64(cur.BBT().Bars - prev.BBT().Bars)
			cur.SetBeat(prev.Beat() + (bars * prev.DivisionsPerBar()))
			cur.SetPulse(prev.Pulse() + ((bars * prev.DivisionsPerBar()) / prev.NoteDivisor()))
			ts := r.tempoAtPulse(cur.Pulse())
			cur.SetMinute(ts.MinuteAtPulse(cur.Pulse()))
			sample, err := sampleAtMinute(cur.Minute(), sr)
			if err != nil {
				return fmt.Errorf("%s: %w", cur, err)
			}
			cur.SetSample(sample)
		}
	}
	return nil
}

// validate checks that sections of each kind are strictly ordered on every
// axis and that all ramps are finite.
func (r *state) validate() error {
	for i, cur := range r.tempos {
		if c := cur.C(); math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%s: ramp does not converge: %w", cur, ErrDegenerateSection)
		}
		if i == 0 {
			continue
		}
		prev := r.tempos[i-1]
		if err := orderedAll(
			ordered("sample", prev.Sample(), cur.Sample()),
			ordered("pulse", prev.Pulse(), cur.Pulse()),
			ordered("minute", prev.Minute(), cur.Minute()),
		); err != nil {
			return fmt.Errorf("%s: %w", cur, err)
		}
	}
	for i := 1; i < len(r.meters); i++ {
		prev, cur := r.meters[i-1], r.meters[i]
		if err := orderedAll(
			ordered("sample", prev.Sample(), cur.Sample()),
			ordered("pulse", prev.Pulse(), cur.Pulse()),
			ordered("minute", prev.Minute(), cur.Minute()),
			ordered("beat", prev.Beat(), cur.Beat()),
		); err != nil {
			return fmt.Errorf("%s: %w", cur, err)
		}
	}
	return nil
}

// ordered checks that cur follows prev on an axis. NaN never does.
func ordered[T constraints.Integer | constraints.Float](axis string, prev, cur T) error {
	switch {
	case cur > prev:
		return nil
	case cur == prev:
		return fmt.Errorf("%s %v shared with previous section: %w", axis, cur, ErrDegenerateSection)
	}
	return fmt.Errorf("%s %v before previous section at %v: %w", axis, cur, prev, ErrOrderingViolation)
}

// orderedAll returns the first error.
func orderedAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func roundToTicks(beats float64) float64 {
	return math.Round(beats*tempo.TicksPerBeat) / tempo.TicksPerBeat
}

// lookups, all return the section whose domain holds the position or nil
// when the position is before the first section.

func (r *state) tempoAtMinute(m float64) *tempo.TempoSection {
	i := sort.Search(len(r.tempos), func(i int) bool { return r.tempos[i].Minute() > m })
	if i == 0 {
		return nil
	}
	return r.tempos[i-1]
}

func (r *state) tempoAtPulse(p float64) *tempo.TempoSection {
	i := sort.Search(len(r.tempos), func(i int) bool { return r.tempos[i].Pulse() > p })
	if i == 0 {
		return nil
	}
	return r.tempos[i-1]
}

func (r *state) tempoAtSample(s int64) *tempo.TempoSection {
	i := sort.Search(len(r.tempos), func(i int) bool { return r.tempos[i].Sample() > s })
	if i == 0 {
		return nil
	}
	return r.tempos[i-1]
}

func (r *state) meterAtSample(s int64) *tempo.MeterSection {
	i := sort.Search(len(r.meters), func(i int) bool { return r.meters[i].Sample() > s })
	if i == 0 {
		return nil
	}
	return r.meters[i-1]
}

func (r *state) meterAtPulse(p float64) *tempo.MeterSection {
	i := sort.Search(len(r.meters), func(i int) bool { return r.meters[i].Pulse() > p })
	if i == 0 {
		return nil
	}
	return r.meters[i-1]
}

func (r *state) meterAtBeat(b float64) *tempo.MeterSection {
	i := sort.Search(len(r.meters), func(i int) bool { return r.meters[i].Beat() > b })
	if i == 0 {
		return nil
	}
	return r.meters[i-1]
}

// meterAfterBeat returns the first meter starting after beat b or nil.
func (r *state) meterAfterBeat(b float64) *tempo.MeterSection {
	i := sort.Search(len(r.meters), func(i int) bool { return r.meters[i].Beat() > b })
	if i == len(r.meters) {
		return nil
	}
	return r.meters[i]
}

func (r *state) meterAtBBT(bbt tempo.BBT) *tempo.MeterSection {
	i := sort.Search(len(r.meters), func(i int) bool { return r.meters[i].BBT().Compare(bbt) > 0 })
	if i == 0 {
		return nil
	}
	return r.meters[i-1]
}
