package tempomap

import (
	"fmt"
	"math"

	"github.com/henderiw/temporal/pkg/tempo"
)

// BeatAtPulse returns the number of meter beats from the start of the map to
// pulse p.
func (r *TempoMap) BeatAtPulse(p float64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.beatAtPulse(p)
}

func (r *TempoMap) beatAtPulse(p float64) (float64, error) {
	if !(p >= 0) {
		return 0, precedes("pulse", p)
	}
	m := r.state.meterAtPulse(p)
	return m.Beat() + ((p - m.Pulse()) * m.NoteDivisor()), nil
}

func (r *TempoMap) PulseAtBeat(b float64) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.pulseAtBeat(b)
}

func (r *TempoMap) pulseAtBeat(b float64) (float64, error) {
	if !(b >= 0) {
		return 0, precedes("beat", b)
	}
	m := r.state.meterAtBeat(b)
	return m.Pulse() + ((b - m.Beat()) / m.NoteDivisor()), nil
}

func (r *TempoMap) BBTAtBeat(b float64) (tempo.BBT, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.bbtAtBeat(b)
}

func (r *TempoMap) bbtAtBeat(b float64) (tempo.BBT, error) {
	if !(b >= 0) {
		return tempo.BBT{}, precedes("beat", b)
	}
	m := r.state.meterAtBeat(b)
	dpb := m.DivisionsPerBar()

	beats := b - m.Beat()
	bars := math.Floor(beats / dpb)
	remaining := beats - (bars * dpb)
	whole := math.Floor(remaining)

	bbt := tempo.BBT{
		Bars:  m.BBT().Bars + int32(bars),
		Beats: int32(whole) + 1,
		Ticks: int32(math.Round((remaining - whole) * tempo.TicksPerBeat)),
	}
	if bbt.Ticks >= tempo.TicksPerBeat {
		bbt.Beats++
		bbt.Ticks -= tempo.TicksPerBeat
	}
	if float64(bbt.Beats) >= dpb+1 {
		bbt.Bars++
		bbt.Beats = 1
	}
	return bbt, nil
}

func (r *TempoMap) BeatAtBBT(bbt tempo.BBT) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.beatAtBBT(bbt)
}

func (r *TempoMap) beatAtBBT(bbt tempo.BBT) (float64, error) {
	if err := bbt.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	m := r.state.meterAtBBT(bbt)
	bars := float64(bbt.Bars - m.BBT().Bars)
	return (bars * m.DivisionsPerBar()) + m.Beat() + float64(bbt.Beats-1) + (float64(bbt.Ticks) / tempo.TicksPerBeat), nil
}

func (r *TempoMap) PulseAtBBT(bbt tempo.BBT) (float64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.pulseAtBBT(bbt)
}

func (r *TempoMap) pulseAtBBT(bbt tempo.BBT) (float64, error) {
	b, err := r.beatAtBBT(bbt)
	if err != nil {
		return 0, err
	}
	return r.pulseAtBeat(b)
}

func (r *TempoMap) BBTAtSample(s int64) (tempo.BBT, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.bbtAtSample(s)
}

func (r *TempoMap) bbtAtSample(s int64) (tempo.BBT, error) {
	p, err := r.pulseAtSample(s)
	if err != nil {
		return tempo.BBT{}, err
	}
	b, err := r.beatAtPulse(p)
	if err != nil {
		return tempo.BBT{}, err
	}
	return r.bbtAtBeat(b)
}

func (r *TempoMap) SampleAtBBT(bbt tempo.BBT) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.sampleAtBBT(bbt)
}

func (r *TempoMap) sampleAtBBT(bbt tempo.BBT) (int64, error) {
	p, err := r.pulseAtBBT(bbt)
	if err != nil {
		return 0, err
	}
	return r.sampleAtPulse(p)
}

// nextBeat returns the start of the beat after bbt.
func (r *TempoMap) nextBeat(bbt tempo.BBT) tempo.BBT {
	m := r.state.meterAtBBT(bbt)
	bbt.Beats++
	bbt.Ticks = 0
	if float64(bbt.Beats) >= m.DivisionsPerBar()+1 {
		bbt.Bars++
		bbt.Beats = 1
	}
	return bbt
}

// RoundToBeat returns the sample of the beat at or before s when dir is
// negative, at or after s when dir is positive and the nearest beat
// otherwise.
func (r *TempoMap) RoundToBeat(s int64, dir int) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	bbt, err := r.bbtAtSample(s)
	if err != nil {
		return 0, err
	}
	switch {
	case dir < 0:
	case dir > 0:
		if bbt.Ticks > 0 {
			bbt = r.nextBeat(bbt)
		}
	default:
		if bbt.Ticks >= tempo.TicksPerBeat/2 {
			bbt = r.nextBeat(bbt)
		}
	}
	bbt.Ticks = 0
	return r.sampleAtBBT(bbt)
}

// RoundToBar is RoundToBeat for bar starts. A position half way into a bar
// rounds up.
func (r *TempoMap) RoundToBar(s int64, dir int) (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	bbt, err := r.bbtAtSample(s)
	if err != nil {
		return 0, err
	}
	onBar := bbt.Beats == 1 && bbt.Ticks == 0
	switch {
	case dir < 0:
	case dir > 0:
		if !onBar {
			bbt.Bars++
		}
	default:
		// a bar cut short by an audio locked meter ends at that meter
		start, err := r.pulseAtBBT(tempo.BBT{Bars: bbt.Bars, Beats: 1})
		if err != nil {
			return 0, err
		}
		end, err := r.pulseAtBBT(tempo.BBT{Bars: bbt.Bars + 1, Beats: 1})
		if err != nil {
			return 0, err
		}
		p, err := r.pulseAtSample(s)
		if err != nil {
			return 0, err
		}
		nd := r.state.meterAtBBT(bbt).NoteDivisor()
		if roundToTicks((p-start)*nd) >= roundToTicks((end-start)*nd)/2 {
			bbt.Bars++
		}
	}
	bbt.Beats = 1
	bbt.Ticks = 0
	return r.sampleAtBBT(bbt)
}

// GridPoint is a beat on the grid.
type GridPoint struct {
	Sample int64
	BBT    tempo.BBT
	Tempo  tempo.Tempo
	Meter  tempo.Meter
}

// maxGridPoints bounds the number of beats Grid returns.
const maxGridPoints = 1 << 16

// Grid returns every beat in [lower, upper). A range holding more than
// maxGridPoints beats is refused.
func (r *TempoMap) Grid(lower, upper int64) ([]GridPoint, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if upper < lower {
		return nil, fmt.Errorf("%w: grid %d-%d", ErrInvalid, lower, upper)
	}
	p, err := r.pulseAtSample(lower)
	if err != nil {
		return nil, err
	}
	beat, err := r.beatAtPulse(p)
	if err != nil {
		return nil, err
	}

	points := []GridPoint{}
	for b := math.Ceil(roundToTicks(beat)); ; b++ {
		p, err := r.pulseAtBeat(b)
		if err != nil {
			return nil, err
		}
		// beats of a bar cut short by an audio locked meter do not exist
		if next := r.state.meterAfterBeat(b); next != nil && p >= next.Pulse() {
			b, p = next.Beat(), next.Pulse()
		}
		s, err := r.sampleAtPulse(p)
		if err != nil {
			return nil, err
		}
		if s >= upper {
			break
		}
		if len(points) == maxGridPoints {
			return nil, fmt.Errorf("%w: grid %d-%d holds more than %d beats", ErrInvalid, lower, upper, maxGridPoints)
		}
		bbt, err := r.bbtAtBeat(b)
		if err != nil {
			return nil, err
		}
		t, err := r.tempoAtSample(s)
		if err != nil {
			return nil, err
		}
		points = append(points, GridPoint{
			Sample: s,
			BBT:    bbt,
			Tempo:  t,
			Meter:  r.state.meterAtBeat(b).Meter,
		})
	}
	return points, nil
}
