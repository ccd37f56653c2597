package tempomap

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"github.com/henderiw/temporal/pkg/tempo"
)

// TempoMap maps between samples, minutes, pulses and bars|beats|ticks for a
// fixed sample rate. It always holds at least one tempo and one meter
// section, both anchored at the start of the timeline.
//
// All methods are safe for concurrent use. Sections handed out are copies;
// they refer back to the map by their ID.
type TempoMap struct {
	m          *sync.RWMutex
	sampleRate int64
	state      *state
	nextID     uint64
	log        logr.Logger

	initialTempo tempo.Tempo
	initialMeter tempo.Meter

	subMu   sync.Mutex
	subs    map[uint64]func(Change)
	nextSub uint64
}

func New(sampleRate int64, opts ...Option) (*TempoMap, error) {
	r := &TempoMap{
		m:            new(sync.RWMutex),
		sampleRate:   sampleRate,
		nextID:       1,
		log:          logr.Discard(),
		initialTempo: tempo.NewTempo(120, 4),
		initialMeter: tempo.NewMeter(4, 4),
		subs:         map[uint64]func(Change){},
	}
	for _, o := range opts {
		o(r)
	}

	var errm error
	if sampleRate <= 0 {
		errm = errors.Join(errm, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalid, sampleRate))
	}
	if err := r.initialTempo.Validate(); err != nil {
		errm = errors.Join(errm, fmt.Errorf("%w: initial tempo: %w", ErrInvalid, err))
	}
	if err := r.initialMeter.Validate(); err != nil {
		errm = errors.Join(errm, fmt.Errorf("%w: initial meter: %w", ErrInvalid, err))
	}
	if errm != nil {
		return nil, errm
	}

	ts := tempo.NewTempoSection(r.newID(), r.initialTempo, 0, 0, 0, tempo.AudioTime)
	ts.SetInitial(true)
	ms := tempo.NewMeterSection(r.newID(), r.initialMeter, tempo.BBT{Bars: 1, Beats: 1}, 0, 0, 0, 0, tempo.AudioTime)
	ms.SetInitial(true)

	r.state = &state{
		tempos: []*tempo.TempoSection{ts},
		meters: []*tempo.MeterSection{ms},
	}
	if err := r.state.recompute(sampleRate); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *TempoMap) newID() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *TempoMap) SampleRate() int64 { return r.sampleRate }

// mutate applies fn to a copy of the sections and swaps the copy in once it
// recomputed cleanly. On error the map is left as it was.
func (r *TempoMap) mutate(op string, fn func(s *state) (Change, error)) (Change, error) {
	r.m.Lock()
	candidate := r.state.clone()
	c, err := fn(candidate)
	if err == nil {
		err = candidate.recompute(r.sampleRate)
	}
	if err != nil {
		r.m.Unlock()
		r.log.Info("mutation rejected", "op", op, "error", err.Error())
		return Change{}, fmt.Errorf("%s: %w", op, err)
	}
	r.state = candidate
	if c.Section != nil {
		c.Section = copySection(c.Section)
	}
	r.log.V(1).Info("recomputed", "op", op, "tempos", len(candidate.tempos), "meters", len(candidate.meters))
	r.m.Unlock()

	r.notify(c)
	return c, nil
}

func checkPosition(pulse float64, sample int64, lock tempo.PositionLock) error {
	switch lock {
	case tempo.AudioTime:
		if sample < 0 {
			return fmt.Errorf("sample %d: %w", sample, ErrOutOfDomain)
		}
	case tempo.MusicTime:
		if math.IsNaN(pulse) || math.IsInf(pulse, 0) {
			return fmt.Errorf("%w: pulse %v", ErrInvalid, pulse)
		}
		if pulse < 0 {
			return fmt.Errorf("pulse %v: %w", pulse, ErrOutOfDomain)
		}
	default:
		return fmt.Errorf("%w: position lock %d", ErrInvalid, lock)
	}
	return nil
}

// AddTempo adds a tempo at pulse (MusicTime) or sample (AudioTime); the
// other position is ignored. A tempo added on the anchor of an existing
// tempo replaces it.
func (r *TempoMap) AddTempo(t tempo.Tempo, pulse float64, sample int64, lock tempo.PositionLock) (*tempo.TempoSection, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("add tempo: %w: %w", ErrInvalid, err)
	}
	if err := checkPosition(pulse, sample, lock); err != nil {
		return nil, fmt.Errorf("add tempo: %w", err)
	}
	c, err := r.mutate("add tempo", func(s *state) (Change, error) {
		id := r.newID()
		ts := s.insertTempo(tempo.NewTempoSection(id, t, pulse, 0, sample, lock))
		if ts.ID() != id {
			return Change{Type: ChangeReplaced, Section: ts}, nil
		}
		return Change{Type: ChangeAdded, Section: ts}, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Section.(*tempo.TempoSection), nil
}

// ReplaceTempo moves existing to a new position with a new tempo, keeping its
// ID. The initial tempo only takes the new tempo, it never moves.
func (r *TempoMap) ReplaceTempo(existing *tempo.TempoSection, t tempo.Tempo, pulse float64, sample int64, lock tempo.PositionLock) (*tempo.TempoSection, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("replace tempo: %w: %w", ErrInvalid, err)
	}
	if err := checkPosition(pulse, sample, lock); err != nil {
		return nil, fmt.Errorf("replace tempo: %w", err)
	}
	c, err := r.mutate("replace tempo", func(s *state) (Change, error) {
		i := s.tempoIndex(existing.ID())
		if i < 0 {
			return Change{}, fmt.Errorf("tempo %d: %w", existing.ID(), ErrNotFound)
		}
		old := s.tempos[i]
		if old.Initial() {
			old.SetTempo(t)
			return Change{Type: ChangeReplaced, Section: old}, nil
		}
		s.tempos = slices.Delete(s.tempos, i, i+1)
		ts := s.insertTempo(tempo.NewTempoSection(old.ID(), t, pulse, 0, sample, lock))
		return Change{Type: ChangeReplaced, Section: ts}, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Section.(*tempo.TempoSection), nil
}

func (r *TempoMap) RemoveTempo(existing *tempo.TempoSection) error {
	_, err := r.mutate("remove tempo", func(s *state) (Change, error) {
		i := s.tempoIndex(existing.ID())
		if i < 0 {
			return Change{}, fmt.Errorf("tempo %d: %w", existing.ID(), ErrNotFound)
		}
		ts := s.tempos[i]
		if ts.Initial() {
			return Change{}, fmt.Errorf("tempo %d: %w", ts.ID(), ErrInitialSection)
		}
		s.tempos = slices.Delete(s.tempos, i, i+1)
		return Change{Type: ChangeRemoved, Section: ts}, nil
	})
	return err
}

// barStart moves bbt forward to the start of a bar unless it is on one.
func barStart(bbt tempo.BBT) tempo.BBT {
	if bbt.Beats != 1 || bbt.Ticks != 0 {
		bbt.Bars++
	}
	bbt.Beats = 1
	bbt.Ticks = 0
	return bbt
}

func meterSection(id uint64, m tempo.Meter, bbt tempo.BBT, sample int64, lock tempo.PositionLock) *tempo.MeterSection {
	return tempo.NewMeterSection(id, m, barStart(bbt), 0, 0, 0, sample, lock)
}

func checkMeter(m tempo.Meter, bbt tempo.BBT, sample int64, lock tempo.PositionLock) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if lock == tempo.MusicTime {
		if err := bbt.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return checkPosition(0, sample, lock)
}

// AddMeter adds a meter at bbt (MusicTime) or sample (AudioTime). Meters
// start bars: a music locked meter off a bar start moves to the next bar, an
// audio locked meter cuts the bar it falls in short.
func (r *TempoMap) AddMeter(m tempo.Meter, bbt tempo.BBT, sample int64, lock tempo.PositionLock) (*tempo.MeterSection, error) {
	if err := checkMeter(m, bbt, sample, lock); err != nil {
		return nil, fmt.Errorf("add meter: %w", err)
	}
	c, err := r.mutate("add meter", func(s *state) (Change, error) {
		id := r.newID()
		ms := s.insertMeter(meterSection(id, m, bbt, sample, lock))
		if ms.ID() != id {
			return Change{Type: ChangeReplaced, Section: ms}, nil
		}
		return Change{Type: ChangeAdded, Section: ms}, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Section.(*tempo.MeterSection), nil
}

// ReplaceMeter moves existing to a new position with a new meter, keeping its
// ID. The initial meter only takes the new meter.
func (r *TempoMap) ReplaceMeter(existing *tempo.MeterSection, m tempo.Meter, bbt tempo.BBT, sample int64, lock tempo.PositionLock) (*tempo.MeterSection, error) {
	if err := checkMeter(m, bbt, sample, lock); err != nil {
		return nil, fmt.Errorf("replace meter: %w", err)
	}
	c, err := r.mutate("replace meter", func(s *state) (Change, error) {
		i := s.meterIndex(existing.ID())
		if i < 0 {
			return Change{}, fmt.Errorf("meter %d: %w", existing.ID(), ErrNotFound)
		}
		old := s.meters[i]
		if old.Initial() {
			old.SetMeter(m)
			return Change{Type: ChangeReplaced, Section: old}, nil
		}
		s.meters = slices.Delete(s.meters, i, i+1)
		ms := s.insertMeter(meterSection(old.ID(), m, bbt, sample, lock))
		return Change{Type: ChangeReplaced, Section: ms}, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Section.(*tempo.MeterSection), nil
}

func (r *TempoMap) RemoveMeter(existing *tempo.MeterSection) error {
	_, err := r.mutate("remove meter", func(s *state) (Change, error) {
		i := s.meterIndex(existing.ID())
		if i < 0 {
			return Change{}, fmt.Errorf("meter %d: %w", existing.ID(), ErrNotFound)
		}
		ms := s.meters[i]
		if ms.Initial() {
			return Change{}, fmt.Errorf("meter %d: %w", ms.ID(), ErrInitialSection)
		}
		s.meters = slices.Delete(s.meters, i, i+1)
		return Change{Type: ChangeRemoved, Section: ms}, nil
	})
	return err
}

// ChangeInitialTempo sets the tempo of the initial tempo section.
func (r *TempoMap) ChangeInitialTempo(t tempo.Tempo) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("change initial tempo: %w: %w", ErrInvalid, err)
	}
	_, err := r.mutate("change initial tempo", func(s *state) (Change, error) {
		ts := s.tempos[0]
		ts.SetTempo(t)
		return Change{Type: ChangeReplaced, Section: ts}, nil
	})
	return err
}

// ChangeExistingTempoAt sets the tempo of the tempo section in effect at
// sample.
func (r *TempoMap) ChangeExistingTempoAt(sample int64, t tempo.Tempo) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("change tempo: %w: %w", ErrInvalid, err)
	}
	if sample < 0 {
		return fmt.Errorf("change tempo: sample %d: %w", sample, ErrOutOfDomain)
	}
	_, err := r.mutate("change tempo", func(s *state) (Change, error) {
		ts := s.tempoAtSample(sample)
		ts.SetTempo(t)
		return Change{Type: ChangeReplaced, Section: ts}, nil
	})
	return err
}

// InsertTime moves every section at or after where by amount samples. Moved
// music locked sections keep the musical position they land on; a moved
// music locked meter snaps to the next bar start.
func (r *TempoMap) InsertTime(where, amount int64) error {
	if where < 0 || amount < 0 {
		return fmt.Errorf("insert time: %w: %d samples at %d", ErrInvalid, amount, where)
	}
	if amount == 0 {
		return nil
	}
	_, err := r.mutate("insert time", func(s *state) (Change, error) {
		var relock []interface{ SetLock(tempo.PositionLock) }
		for _, t := range s.tempos {
			if t.Initial() || t.Sample() < where {
				continue
			}
			t.SetSample(t.Sample() + amount)
			if t.Lock() == tempo.MusicTime {
				t.SetLock(tempo.AudioTime)
				relock = append(relock, t)
			}
		}
		for _, m := range s.meters {
			if m.Initial() || m.Sample() < where {
				continue
			}
			m.SetSample(m.Sample() + amount)
			if m.Lock() == tempo.MusicTime {
				m.SetLock(tempo.AudioTime)
				relock = append(relock, m)
			}
		}
		if err := s.recompute(r.sampleRate); err != nil {
			return Change{}, err
		}
		for _, l := range relock {
			l.SetLock(tempo.MusicTime)
		}
		return Change{Type: ChangeRetimed}, nil
	})
	return err
}
