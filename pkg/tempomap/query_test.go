package tempomap

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/henderiw/temporal/pkg/tempo"
	"github.com/tj/assert"
	"k8s.io/apimachinery/pkg/labels"
)

func TestDump(t *testing.T) {
	tm, err := New(48000)
	assert.NoError(t, err)

	var b bytes.Buffer
	assert.NoError(t, tm.Dump(&b))
	expected := "2: meter 4/4 at 1|1|0 sample 0 pulse 0 beat 0 (audio)\n" +
		"1: tempo 120/4 at sample 0 pulse 0 minute 0 (audio, c 0)\n"
	if diff := cmp.Diff(expected, b.String()); diff != "" {
		t.Errorf("Dump() (-want +got):\n%s", diff)
	}
}

func TestIterate(t *testing.T) {
	tm := newScenarioMap(t, 48000)

	type entry struct {
		ID         uint64
		Kind       string
		Pulse      float64
		Coincident bool
	}
	got := []entry{}
	iter := tm.Iterate()
	for iter.Next() {
		e := entry{ID: iter.ID(), Pulse: iter.Value().Pulse(), Coincident: iter.IsCoincident()}
		switch iter.Value().(type) {
		case *tempo.TempoSection:
			e.Kind = tempo.KindTempo
		case *tempo.MeterSection:
			e.Kind = tempo.KindMeter
		}
		got = append(got, e)
	}
	expected := []entry{
		{ID: 2, Kind: tempo.KindMeter, Pulse: 0},
		{ID: 1, Kind: tempo.KindTempo, Pulse: 0, Coincident: true},
		{ID: 4, Kind: tempo.KindMeter, Pulse: 3},
		{ID: 3, Kind: tempo.KindTempo, Pulse: 3, Coincident: true},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Iterate() (-want +got):\n%s", diff)
	}

	// the snapshot does not follow later changes
	iter = tm.Iterate()
	_, err := tm.AddTempo(tempo.NewTempo(60, 4), 8, 0, tempo.MusicTime)
	assert.NoError(t, err)
	n := 0
	for iter.Next() {
		n++
	}
	assert.Equal(t, 4, n)
	assert.Equal(t, 5, len(tm.Sections()))
}

func TestSectionsByLabel(t *testing.T) {
	tm := newScenarioMap(t, 48000)
	_, err := tm.AddTempo(tempo.NewRampedTempo(240, 4, 120), 0, 480000, tempo.AudioTime)
	assert.NoError(t, err)
	_, err = tm.AddTempo(tempo.NewTempo(120, 4), 20, 0, tempo.MusicTime)
	assert.NoError(t, err)

	cases := map[string]struct {
		selector    string
		expectedIDs []uint64
	}{
		"Tempos": {
			selector:    "kind=tempo",
			expectedIDs: []uint64{1, 3, 5, 6},
		},
		"Meters": {
			selector:    "kind=meter",
			expectedIDs: []uint64{2, 4},
		},
		"Initial": {
			selector:    "initial=true",
			expectedIDs: []uint64{2, 1},
		},
		"AudioTempos": {
			selector:    "kind=tempo,lock=audio,initial!=true",
			expectedIDs: []uint64{5},
		},
		"Ramped": {
			selector:    "ramped=true",
			expectedIDs: []uint64{5},
		},
		"None": {
			selector:    "kind in (tempo),lock=video",
			expectedIDs: []uint64{},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sel, err := labels.Parse(tc.selector)
			assert.NoError(t, err)
			ids := []uint64{}
			for _, s := range tm.SectionsByLabel(sel) {
				ids = append(ids, s.ID())
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestGrid(t *testing.T) {
	tm, err := New(48000)
	assert.NoError(t, err)

	cases := map[string]struct {
		lower, upper int64
		expected     []GridPoint
		expectedErr  bool
	}{
		"FirstBar": {
			lower: 0,
			upper: 96000,
			expected: []GridPoint{
				{Sample: 0, BBT: tempo.BBT{Bars: 1, Beats: 1}},
				{Sample: 24000, BBT: tempo.BBT{Bars: 1, Beats: 2}},
				{Sample: 48000, BBT: tempo.BBT{Bars: 1, Beats: 3}},
				{Sample: 72000, BBT: tempo.BBT{Bars: 1, Beats: 4}},
			},
		},
		"OffBeat": {
			lower: 10000,
			upper: 72000,
			expected: []GridPoint{
				{Sample: 24000, BBT: tempo.BBT{Bars: 1, Beats: 2}},
				{Sample: 48000, BBT: tempo.BBT{Bars: 1, Beats: 3}},
			},
		},
		"Empty": {
			lower:    30000,
			upper:    30000,
			expected: []GridPoint{},
		},
		"Inverted": {
			lower:       30000,
			upper:       20000,
			expectedErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			points, err := tm.Grid(tc.lower, tc.upper)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			for i := range tc.expected {
				tc.expected[i].Tempo = tempo.NewTempo(120, 4)
				tc.expected[i].Meter = tempo.NewMeter(4, 4)
			}
			assert.Equal(t, tc.expected, points)
		})
	}
}

func TestGridMeterChange(t *testing.T) {
	tm := newScenarioMap(t, 48000)

	points, err := tm.Grid(264000, 312000)
	assert.NoError(t, err)
	got := []string{}
	for _, p := range points {
		got = append(got, p.BBT.String())
	}
	assert.Equal(t, []string{"3|4|0", "4|1|0", "4|2|0"}, got)
	assert.Equal(t, int64(300000), points[2].Sample)
	assert.Equal(t, tempo.NewMeter(3, 4), points[2].Meter)
	assert.Equal(t, 240.0, points[2].Tempo.NoteTypesPerMinute())
}

func TestRound(t *testing.T) {
	tm, err := New(48000)
	assert.NoError(t, err)

	cases := map[string]struct {
		round    func(int64, int) (int64, error)
		sample   int64
		dir      int
		expected int64
	}{
		"BeatDown":     {round: tm.RoundToBeat, sample: 30000, dir: -1, expected: 24000},
		"BeatUp":       {round: tm.RoundToBeat, sample: 30000, dir: 1, expected: 48000},
		"BeatNearest":  {round: tm.RoundToBeat, sample: 30000, dir: 0, expected: 24000},
		"BeatHalfUp":   {round: tm.RoundToBeat, sample: 36000, dir: 0, expected: 48000},
		"BeatOnBeatUp": {round: tm.RoundToBeat, sample: 24000, dir: 1, expected: 24000},
		"BarDown":      {round: tm.RoundToBar, sample: 130000, dir: -1, expected: 96000},
		"BarUp":        {round: tm.RoundToBar, sample: 30000, dir: 1, expected: 96000},
		"BarOnBarUp":   {round: tm.RoundToBar, sample: 96000, dir: 1, expected: 96000},
		"BarNearest":   {round: tm.RoundToBar, sample: 40000, dir: 0, expected: 0},
		"BarHalfUp":    {round: tm.RoundToBar, sample: 48000, dir: 0, expected: 96000},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := tc.round(tc.sample, tc.dir)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}

	_, err = tm.RoundToBar(-1, 0)
	assert.Error(t, err)
}

// newCutBarMap returns a 4/4 map at 120 bpm with a 3/4 meter locked to the
// middle of bar 2, cutting that bar to two beats.
func newCutBarMap(t *testing.T) *TempoMap {
	tm, err := New(48000)
	assert.NoError(t, err)
	ms, err := tm.AddMeter(tempo.NewMeter(3, 4), tempo.BBT{}, 144000, tempo.AudioTime)
	assert.NoError(t, err)
	assert.Equal(t, tempo.BBT{Bars: 3, Beats: 1}, ms.BBT())
	return tm
}

func TestGridCutBar(t *testing.T) {
	tm := newCutBarMap(t)

	cases := map[string]struct {
		lower, upper int64
		expected     []string
	}{
		"AcrossMeter": {
			lower: 0,
			upper: 288000,
			expected: []string{
				"0 1|1|0 4/4", "24000 1|2|0 4/4", "48000 1|3|0 4/4", "72000 1|4|0 4/4",
				"96000 2|1|0 4/4", "120000 2|2|0 4/4",
				"144000 3|1|0 3/4", "168000 3|2|0 3/4", "192000 3|3|0 3/4",
				"216000 4|1|0 3/4", "240000 4|2|0 3/4", "264000 4|3|0 3/4",
			},
		},
		"InsideCutBar": {
			lower:    130000,
			upper:    170000,
			expected: []string{"144000 3|1|0 3/4", "168000 3|2|0 3/4"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			points, err := tm.Grid(tc.lower, tc.upper)
			assert.NoError(t, err)
			got := []string{}
			for i, p := range points {
				if i > 0 {
					assert.Greater(t, p.Sample, points[i-1].Sample)
					assert.Equal(t, 1, p.BBT.Compare(points[i-1].BBT))
				}
				got = append(got, fmt.Sprintf("%d %s %s", p.Sample, p.BBT, p.Meter))
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRoundCutBar(t *testing.T) {
	tm := newCutBarMap(t)

	cases := map[string]struct {
		sample   int64
		dir      int
		expected int64
	}{
		// bar 2 runs from 96000 to 144000, half way is 120000
		"NearestDown": {sample: 119000, dir: 0, expected: 96000},
		"NearestUp":   {sample: 121000, dir: 0, expected: 144000},
		"Up":          {sample: 100000, dir: 1, expected: 144000},
		"Down":        {sample: 140000, dir: -1, expected: 96000},
		"FullBar":     {sample: 200000, dir: 0, expected: 216000},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := tm.RoundToBar(tc.sample, tc.dir)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestGridLimit(t *testing.T) {
	tm, err := New(48000)
	assert.NoError(t, err)

	_, err = tm.Grid(0, math.MaxInt64)
	assert.True(t, errors.Is(err, ErrInvalid))

	// exactly maxGridPoints beats at 24000 samples each
	points, err := tm.Grid(0, maxGridPoints*24000)
	assert.NoError(t, err)
	assert.Equal(t, maxGridPoints, len(points))
}
