package tempo

import (
	"errors"
	"fmt"
	"math"
)

// ErrSampleRange is returned when a position does not fit a sample count.
var ErrSampleRange = errors.New("position outside the sample range")

// Tempo is a tempo expressed as a number of note types per minute, e.g.
// (120, 8) is 120 eighth notes per minute. A ramped tempo carries the value it
// reaches at the start of the following tempo section.
type Tempo struct {
	npm      float64
	endNpm   float64
	noteType float64
}

// NewTempo returns a constant tempo of npm note types per minute.
func NewTempo(npm, noteType float64) Tempo {
	return Tempo{npm: npm, endNpm: npm, noteType: noteType}
}

// NewRampedTempo returns a tempo that ramps from npm to endNpm.
func NewRampedTempo(npm, noteType, endNpm float64) Tempo {
	return Tempo{npm: npm, endNpm: endNpm, noteType: noteType}
}

func (r Tempo) NoteTypesPerMinute() float64    { return r.npm }
func (r Tempo) EndNoteTypesPerMinute() float64 { return r.endNpm }
func (r Tempo) NoteType() float64              { return r.noteType }

// Ramped reports whether the tempo changes over the section it anchors.
func (r Tempo) Ramped() bool { return r.npm != r.endNpm }

// QuarterNotesPerMinute normalizes the tempo to quarter notes.
func (r Tempo) QuarterNotesPerMinute() float64 {
	return (r.npm * 4.0) / r.noteType
}

// PulsesPerMinute returns the tempo in whole notes per minute.
func (r Tempo) PulsesPerMinute() float64 {
	return r.npm / r.noteType
}

func (r Tempo) SamplesPerNoteType(sr int64) float64 {
	return (60.0 * float64(sr)) / r.npm
}

func (r Tempo) SamplesPerQuarterNote(sr int64) float64 {
	return (60.0 * float64(sr)) / r.QuarterNotesPerMinute()
}

func (r Tempo) Validate() error {
	if !positive(r.npm) {
		return fmt.Errorf("note types per minute must be a positive number, got %v", r.npm)
	}
	if !positive(r.endNpm) {
		return fmt.Errorf("end note types per minute must be a positive number, got %v", r.endNpm)
	}
	if !positive(r.noteType) {
		return fmt.Errorf("note type must be a positive number, got %v", r.noteType)
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func (r Tempo) String() string {
	if r.Ramped() {
		return fmt.Sprintf("%g>%g/%g", r.npm, r.endNpm, r.noteType)
	}
	return fmt.Sprintf("%g/%g", r.npm, r.noteType)
}

// MinuteAtSample converts an absolute sample position to minutes.
func MinuteAtSample(sample, sr int64) float64 {
	return float64(sample) / (60.0 * float64(sr))
}

// SampleAtMinute converts minutes to the nearest sample, ties to even.
func SampleAtMinute(minute float64, sr int64) (int64, error) {
	s := math.RoundToEven(minute * 60.0 * float64(sr))
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit
	if !(s >= math.MinInt64 && s < math.MaxInt64) {
		return 0, fmt.Errorf("minute %g: %w", minute, ErrSampleRange)
	}
	return int64(s), nil
}
