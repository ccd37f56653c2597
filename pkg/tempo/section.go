package tempo

import (
	"fmt"
	"math"
	"strconv"

	"k8s.io/apimachinery/pkg/labels"
)

// PositionLock names the time domain a section's position is fixed in. The
// coordinates of the other domains are derived from it whenever the map
// changes.
type PositionLock int

const (
	// MusicTime sections keep their pulse (or bbt) position.
	MusicTime PositionLock = iota
	// AudioTime sections keep their sample position.
	AudioTime
)

func (r PositionLock) String() string {
	switch r {
	case MusicTime:
		return "music"
	case AudioTime:
		return "audio"
	}
	return "unknown"
}

func ParsePositionLock(s string) (PositionLock, error) {
	switch s {
	case "music", "":
		return MusicTime, nil
	case "audio":
		return AudioTime, nil
	}
	return MusicTime, fmt.Errorf("unknown position lock %q", s)
}

// Label keys carried by every section.
const (
	LabelKind    = "kind"
	LabelLock    = "lock"
	LabelInitial = "initial"
	LabelRamped  = "ramped"

	KindTempo = "tempo"
	KindMeter = "meter"
)

// Section is one entry of a tempo map: either a *TempoSection or a
// *MeterSection. The set is closed; use a type switch to tell them apart.
type Section interface {
	ID() uint64
	Sample() int64
	Pulse() float64
	Minute() float64
	Lock() PositionLock
	Initial() bool
	Labels() labels.Set
	String() string

	section()
}

// anchor is where a section starts in each time domain.
type anchor struct {
	id      uint64
	sample  int64
	pulse   float64
	minute  float64
	lock    PositionLock
	initial bool
}

func (r *anchor) ID() uint64         { return r.id }
func (r *anchor) Sample() int64      { return r.sample }
func (r *anchor) Pulse() float64     { return r.pulse }
func (r *anchor) Minute() float64    { return r.minute }
func (r *anchor) Lock() PositionLock { return r.lock }
func (r *anchor) Initial() bool      { return r.initial }

func (r *anchor) SetSample(s int64)       { r.sample = s }
func (r *anchor) SetPulse(p float64)      { r.pulse = p }
func (r *anchor) SetMinute(m float64)     { r.minute = m }
func (r *anchor) SetLock(l PositionLock)  { r.lock = l }
func (r *anchor) SetInitial(initial bool) { r.initial = initial }

func (r *anchor) labels(kind string) labels.Set {
	return labels.Set{
		LabelKind:    kind,
		LabelLock:    r.lock.String(),
		LabelInitial: strconv.FormatBool(r.initial),
	}
}

// TempoSection anchors a tempo at a position in the timeline. Its domain runs
// from its anchor to the anchor of the next tempo section.
//
// A ramped section changes tempo exponentially in time, which is linearly in
// pulse: T(t) = T0·e^(c·t). The coefficient c is only known once the next
// section is; until then (and for the last section) the tempo is constant.
type TempoSection struct {
	Tempo
	anchor

	c        float64
	endPulse float64
}

func NewTempoSection(id uint64, t Tempo, pulse, minute float64, sample int64, lock PositionLock) *TempoSection {
	return &TempoSection{
		Tempo: t,
		anchor: anchor{
			id:     id,
			sample: sample,
			pulse:  pulse,
			minute: minute,
			lock:   lock,
		},
	}
}

func (r *TempoSection) section() {}

// C returns the ramp coefficient per minute, zero for a constant section.
func (r *TempoSection) C() float64 { return r.c }

// ActuallyRamped reports whether the tempo changes within the section.
func (r *TempoSection) ActuallyRamped() bool { return r.c != 0 }

// EndPulse returns the pulse the ramp ends at. Only meaningful for a
// section that is actually ramped.
func (r *TempoSection) EndPulse() float64 { return r.endPulse }

// SetRamp sets the ramp coefficient and the pulse where the ramp reaches the
// end tempo. A zero c makes the section constant.
func (r *TempoSection) SetRamp(c, endPulse float64) {
	r.c = c
	r.endPulse = endPulse
}

// SetTempo replaces the tempo and drops any ramp coefficient.
func (r *TempoSection) SetTempo(t Tempo) {
	r.Tempo = t
	r.c = 0
	r.endPulse = 0
}

// ComputeCFromMinute returns the coefficient of a ramp reaching endNpm at
// endMinute.
func (r *TempoSection) ComputeCFromMinute(endNpm, endMinute float64) float64 {
	return math.Log(endNpm/r.npm) / (endMinute - r.minute)
}

// ComputeCFromPulse returns the coefficient of a ramp reaching endNpm at
// endPulse.
func (r *TempoSection) ComputeCFromPulse(endNpm, endPulse float64) float64 {
	return (endNpm - r.npm) / ((endPulse - r.pulse) * r.noteType)
}

// PulseAtMinute returns the pulse at minute m.
func (r *TempoSection) PulseAtMinute(m float64) float64 {
	if !r.ActuallyRamped() {
		return ((m - r.minute) * r.PulsesPerMinute()) + r.pulse
	}
	return r.pulseAtTime(m-r.minute) + r.pulse
}

// MinuteAtPulse returns the minute at pulse p.
func (r *TempoSection) MinuteAtPulse(p float64) float64 {
	if !r.ActuallyRamped() {
		return ((p - r.pulse) / r.PulsesPerMinute()) + r.minute
	}
	return r.timeAtPulse(p-r.pulse) + r.minute
}

// PulseAtNtpm returns the pulse where the ramp reaches npm note types per
// minute. A constant section never changes tempo, so the pulse at minute
// is returned instead.
func (r *TempoSection) PulseAtNtpm(npm, minute float64) float64 {
	if !r.ActuallyRamped() {
		return ((minute - r.minute) * r.PulsesPerMinute()) + r.pulse
	}
	return ((npm - r.npm) / (r.c * r.noteType)) + r.pulse
}

// MinuteAtNtpm returns the minute where the ramp reaches npm note types per
// minute, or the minute at pulse for a constant section.
func (r *TempoSection) MinuteAtNtpm(npm, pulse float64) float64 {
	if !r.ActuallyRamped() {
		return ((pulse - r.pulse) / r.PulsesPerMinute()) + r.minute
	}
	return (math.Log(npm/r.npm) / r.c) + r.minute
}

// TempoAtMinute returns the instantaneous tempo at minute m.
func (r *TempoSection) TempoAtMinute(m float64) Tempo {
	if !r.ActuallyRamped() {
		return NewTempo(r.npm, r.noteType)
	}
	return NewTempo(r.npm*math.Exp(r.c*(m-r.minute)), r.noteType)
}

// TempoAtPulse returns the instantaneous tempo at pulse p. Along a ramp the
// tempo is interpolated linearly between the start and end pulse.
func (r *TempoSection) TempoAtPulse(p float64) Tempo {
	if !r.ActuallyRamped() {
		return NewTempo(r.npm, r.noteType)
	}
	frac := (p - r.pulse) / (r.endPulse - r.pulse)
	return NewTempo(r.npm+((r.endNpm-r.npm)*frac), r.noteType)
}

// pulseAtTime integrates the tempo over t minutes since the anchor.
func (r *TempoSection) pulseAtTime(t float64) float64 {
	return (math.Expm1(r.c*t) * (r.npm / r.c)) / r.noteType
}

// timeAtPulse is the inverse of pulseAtTime.
func (r *TempoSection) timeAtPulse(p float64) float64 {
	return math.Log1p((r.c*p*r.noteType)/r.npm) / r.c
}

func (r *TempoSection) Labels() labels.Set {
	l := r.anchor.labels(KindTempo)
	l[LabelRamped] = strconv.FormatBool(r.Tempo.Ramped())
	return l
}

func (r *TempoSection) String() string {
	return fmt.Sprintf("tempo %s at sample %d pulse %g minute %g (%s, c %g)", r.Tempo, r.sample, r.pulse, r.minute, r.lock, r.c)
}

// MeterSection anchors a time signature at a bar. beat counts meter beats
// since the start of the map.
type MeterSection struct {
	Meter
	anchor

	bbt  BBT
	beat float64
}

func NewMeterSection(id uint64, m Meter, bbt BBT, beat, pulse, minute float64, sample int64, lock PositionLock) *MeterSection {
	return &MeterSection{
		Meter: m,
		anchor: anchor{
			id:     id,
			sample: sample,
			pulse:  pulse,
			minute: minute,
			lock:   lock,
		},
		bbt:  bbt,
		beat: beat,
	}
}

func (r *MeterSection) section() {}

func (r *MeterSection) BBT() BBT      { return r.bbt }
func (r *MeterSection) Beat() float64 { return r.beat }

func (r *MeterSection) SetBBT(bbt BBT)    { r.bbt = bbt }
func (r *MeterSection) SetBeat(b float64) { r.beat = b }
func (r *MeterSection) SetMeter(m Meter)  { r.Meter = m }

func (r *MeterSection) Labels() labels.Set {
	return r.anchor.labels(KindMeter)
}

func (r *MeterSection) String() string {
	return fmt.Sprintf("meter %s at %s sample %d pulse %g beat %g (%s)", r.Meter, r.bbt, r.sample, r.pulse, r.beat, r.lock)
}
