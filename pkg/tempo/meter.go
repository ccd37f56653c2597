package tempo

import (
	"fmt"
	"strconv"
	"strings"
)

// TicksPerBeat is the resolution of the ticks field of a BBT.
const TicksPerBeat = 1920

// Meter is a time signature: divisionsPerBar beats of 1/noteDivisor notes.
type Meter struct {
	divisionsPerBar float64
	noteDivisor     float64
}

func NewMeter(divisionsPerBar, noteDivisor float64) Meter {
	return Meter{divisionsPerBar: divisionsPerBar, noteDivisor: noteDivisor}
}

func (r Meter) DivisionsPerBar() float64 { return r.divisionsPerBar }
func (r Meter) NoteDivisor() float64     { return r.noteDivisor }

// SamplesPerGrid returns the length of one meter beat at tempo t.
func (r Meter) SamplesPerGrid(t Tempo, sr int64) float64 {
	return (60.0 * float64(sr)) / (t.NoteTypesPerMinute() * (r.noteDivisor / t.NoteType()))
}

// SamplesPerBar returns the length of one bar at tempo t.
func (r Meter) SamplesPerBar(t Tempo, sr int64) float64 {
	return r.SamplesPerGrid(t, sr) * r.divisionsPerBar
}

func (r Meter) Validate() error {
	if !positive(r.divisionsPerBar) {
		return fmt.Errorf("divisions per bar must be a positive number, got %v", r.divisionsPerBar)
	}
	if !positive(r.noteDivisor) {
		return fmt.Errorf("note divisor must be a positive number, got %v", r.noteDivisor)
	}
	return nil
}

func (r Meter) String() string {
	return fmt.Sprintf("%g/%g", r.divisionsPerBar, r.noteDivisor)
}

// BBT is a musical position in bars, beats and ticks. Bars and beats count
// from 1.
type BBT struct {
	Bars  int32
	Beats int32
	Ticks int32
}

func (r BBT) Compare(other BBT) int {
	switch {
	case r.Bars != other.Bars:
		return cmpInt32(r.Bars, other.Bars)
	case r.Beats != other.Beats:
		return cmpInt32(r.Beats, other.Beats)
	}
	return cmpInt32(r.Ticks, other.Ticks)
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r BBT) String() string {
	return fmt.Sprintf("%d|%d|%d", r.Bars, r.Beats, r.Ticks)
}

func (r BBT) Validate() error {
	if r.Bars < 1 || r.Beats < 1 || r.Ticks < 0 || r.Ticks >= TicksPerBeat {
		return fmt.Errorf("invalid bbt %s", r)
	}
	return nil
}

// ParseBBT parses "bars|beats|ticks"; ticks may be omitted.
func ParseBBT(s string) (BBT, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return BBT{}, fmt.Errorf("bbt %q is not of the form bars|beats|ticks", s)
	}
	var vals [3]int32
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return BBT{}, fmt.Errorf("invalid bbt %q: %w", s, err)
		}
		vals[i] = int32(v)
	}
	bbt := BBT{Bars: vals[0], Beats: vals[1], Ticks: vals[2]}
	if err := bbt.Validate(); err != nil {
		return BBT{}, err
	}
	return bbt, nil
}
