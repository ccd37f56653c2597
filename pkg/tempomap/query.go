package tempomap

import (
	"fmt"
	"io"

	"github.com/henderiw/temporal/pkg/tempo"
	"k8s.io/apimachinery/pkg/labels"
)

func precedes(axis string, v any) error {
	return fmt.Errorf("%s %v precedes the map: %w", axis, v, ErrOutOfDomain)
}

func sampleAtMinute(m float64, sr int64) (int64, error) {
	s, err := tempo.SampleAtMinute(m, sr)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutOfDomain, err)
	}
	return s, nil
}

func (r *TempoMap) FirstTempo() *tempo.TempoSection {
	r.m.RLock()
	defer r.m.RUnlock()

	return copyTempo(r.state.tempos[0])
}

func (r *TempoMap) FirstMeter() *tempo.MeterSection {
	r.m.RLock()
	defer r.m.RUnlock()

	return copyMeter(r.state.meters[0])
}

func (r *TempoMap) NTempos() int {
	r.m.RLock()
	defer r.m.RUnlock()

	return len(r.state.tempos)
}

func (r *TempoMap) NMeters() int {
	r.m.RLock()
	defer r.m.RUnlock()

	return len(r.state.meters)
}

// Tempos returns copies of the tempo sections in timeline order.
func (r *TempoMap) Tempos() []*tempo.TempoSection {
	r.m.RLock()
	defer r.m.RUnlock()

	tempos := make([]*tempo.TempoSection, 0, len(r.state.tempos))
	for _, t := range r.state.tempos {
		tempos = append(tempos, copyTempo(t))
	}
	return tempos
}

// Meters returns copies of the meter sections in timeline order.
func (r *TempoMap) Meters() []*tempo.MeterSection {
	r.m.RLock()
	defer r.m.RUnlock()

	meters := make([]*tempo.MeterSection, 0, len(r.state.meters))
	for _, m := range r.state.meters {
		meters = append(meters, copyMeter(m))
	}
	return meters
}

// Sections returns copies of all sections ordered by pulse.
func (r *TempoMap) Sections() []tempo.Section {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.sections()
}

func (r *TempoMap) sections() []tempo.Section {
	sections := r.state.sections()
	for i, s := range sections {
		sections[i] = copySection(s)
	}
	return sections
}

// SectionsByLabel returns the sections whose labels match sel.
func (r *TempoMap) SectionsByLabel(sel labels.Selector) []tempo.Section {
	sections := []tempo.Section{}
	iter := r.Iterate()
	for iter.Next() {
		if sel.Matches(iter.Value().Labels()) {
			sections = append(sections, iter.Value())
		}
	}
	return sections
}

// Dump writes one line per section.
func (r *TempoMap) Dump(w io.Writer) error {
	iter := r.Iterate()
	for iter.Next() {
		if _, err := fmt.Fprintf(w, "%d: %s\n", iter.ID(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (r *TempoMap) TempoSectionAtSample(s int64) (*tempo.TempoSection, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if s < 0 {
		return nil, precedes("sample", s)
	}
	return copyTempo(r.state.tempoAtSample(s)), nil
}

func (r *TempoMap) TempoSectionAtPulse(p float64) (*tempo.TempoSection, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if !(p >= 0) {
		return nil, precedes("pulse", p)
	}
	return copyTempo(r.state.tempoAtPulse(p)), nil
}

func (r *TempoMap) MeterSectionAtSample(s int64) (*tempo.MeterSection, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if s < 0 {
		return nil, precedes("sample", s)
	}
	return copyMeter(r.state.meterAtSample(s)), nil
}

// TempoAtSample returns the tempo at sample s. A tempo section starts at its
// anchor sample: the sample before it still has the previous tempo.
func (r *TempoMap) TempoAtSample(s int64) (tempo.Tempo, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.tempoAtSample(s)
}

func (r *TempoMap) tempoAtSample(s int64) (tempo.Tempo, error) {
	if s < 0 {
		return tempo.Tempo{}, precedes("sample", s)
	}
	ts := r.state.tempoAtSample(s)
	return ts.TempoAtMinute(tempo.MinuteAtSample(s, r.sampleRate)), nil
}

func (r *TempoMap) MeterAtSample(s int64) (tempo.Meter, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if s < 0 {
		return tempo.Meter{}, precedes("sample", s)
	}
	return r.state.meterAtSample(s).Meter, nil
}

func (r *TempoMap) MinuteAtSample(s int64) (float64, error) {
	if s < 0 {
		return 0, precedes("sample", s)
	}
	return tempo.MinuteAtSample(s, r.sampleRate), nil
}

func (r *TempoMap) SampleAtMinute(m float64) (int64, error) {
	if !(m >= 0) {
		return 0, precedes("minute", m)
	}
	return sampleAtMinute(m, r.sampleRate)
}

func (r *TempoMap) PulseAtMinute(m float64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.pulseAtMinute(m)
}

func (r *TempoMap) pulseAtMinute(m float64) (float64, error) {
	if !(m >= 0) {
		return 0, precedes("minute", m)
	}
	return r.state.tempoAtMinute(m).PulseAtMinute(m), nil
}

func (r *TempoMap) MinuteAtPulse(p float64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.minuteAtPulse(p)
}

func (r *TempoMap) minuteAtPulse(p float64) (float64, error) {
	if !(p >= 0) {
		return 0, precedes("pulse", p)
	}
	return r.state.tempoAtPulse(p).MinuteAtPulse(p), nil
}

func (r *TempoMap) PulseAtSample(s int64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.pulseAtSample(s)
}

func (r *TempoMap) pulseAtSample(s int64) (float64, error) {
	if s < 0 {
		return 0, precedes("sample", s)
	}
	return r.pulseAtMinute(tempo.MinuteAtSample(s, r.sampleRate))
}

func (r *TempoMap) SampleAtPulse(p float64) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.sampleAtPulse(p)
}

func (r *TempoMap) sampleAtPulse(p float64) (int64, error) {
	m, err := r.minuteAtPulse(p)
	if err != nil {
		return 0, err
	}
	return sampleAtMinute(m, r.sampleRate)
}

// QuartersAtSample returns the number of quarter notes from the start of the
// map to sample s.
func (r *TempoMap) QuartersAtSample(s int64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	p, err := r.pulseAtSample(s)
	if err != nil {
		return 0, err
	}
	return p * 4.0, nil
}

// SampleAtQuarterNote returns the sample qn quarter notes after the start of
// the map.
func (r *TempoMap) SampleAtQuarterNote(qn float64) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.sampleAtPulse(qn / 4.0)
}

// SamplesBetweenQuarterNotes returns the signed distance in samples from
// quarter note a to quarter note b.
func (r *TempoMap) SamplesBetweenQuarterNotes(a, b float64) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	ma, err := r.minuteAtPulse(a / 4.0)
	if err != nil {
		return 0, err
	}
	mb, err := r.minuteAtPulse(b / 4.0)
	if err != nil {
		return 0, err
	}
	return sampleAtMinute(mb-ma, r.sampleRate)
}
