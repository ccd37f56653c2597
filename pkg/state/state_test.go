package state

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/henderiw/temporal/pkg/tempo"
	"github.com/henderiw/temporal/pkg/tempomap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `sampleRate: 48000
tempos:
  - {npm: 120, noteType: 4}
  - {npm: 240, noteType: 4, pulse: 3}
meters:
  - {divisionsPerBar: 4, noteDivisor: 4}
  - {divisionsPerBar: 3, noteDivisor: 4, bbt: "4|1|0"}
`

func TestLoad(t *testing.T) {
	cases := map[string]struct {
		doc         string
		expectedErr error
		errContains string
		check       func(t *testing.T, tm *tempomap.TempoMap)
	}{
		"Scenario": {
			doc: scenario,
			check: func(t *testing.T, tm *tempomap.TempoMap) {
				s, err := tm.SampleAtQuarterNote(12)
				require.NoError(t, err)
				assert.Equal(t, int64(288000), s)
				m, err := tm.MeterAtSample(288000)
				require.NoError(t, err)
				assert.Equal(t, tempo.NewMeter(3, 4), m)
			},
		},
		"Defaults": {
			doc: "sampleRate: 44100\n",
			check: func(t *testing.T, tm *tempomap.TempoMap) {
				assert.Equal(t, int64(44100), tm.SampleRate())
				assert.Equal(t, "120/4", tm.FirstTempo().Tempo.String())
				assert.Equal(t, "4/4", tm.FirstMeter().Meter.String())
			},
		},
		"Ramp": {
			doc: `sampleRate: 48000
tempos:
  - {npm: 77, endNpm: 217, noteType: 4}
  - {npm: 217, noteType: 4, sample: 2880000, lock: audio}
`,
			check: func(t *testing.T, tm *tempomap.TempoMap) {
				first := tm.FirstTempo()
				assert.True(t, first.ActuallyRamped())
				assert.Equal(t, 147.0, first.TempoAtPulse(first.EndPulse()/2).NoteTypesPerMinute())
			},
		},
		"AudioMeter": {
			doc: `sampleRate: 48000
meters:
  - {divisionsPerBar: 4, noteDivisor: 4}
  - {divisionsPerBar: 3, noteDivisor: 4, sample: 90000, lock: audio}
`,
			check: func(t *testing.T, tm *tempomap.TempoMap) {
				meters := tm.Meters()
				require.Len(t, meters, 2)
				assert.Equal(t, tempo.BBT{Bars: 2, Beats: 1}, meters[1].BBT())
			},
		},
		"UnknownField": {
			doc:         "sampleRate: 48000\nbpm: 120\n",
			errContains: "decode",
		},
		"SampleRate": {
			doc:         "sampleRate: 0\n",
			expectedErr: tempomap.ErrInvalid,
		},
		"Ordering": {
			doc: `sampleRate: 48000
tempos:
  - {npm: 120, noteType: 4}
  - {npm: 240, noteType: 4, pulse: 4}
  - {npm: 120, noteType: 4, sample: 288000, lock: audio}
  - {npm: 1000, noteType: 4, sample: 100000, lock: audio}
`,
			expectedErr: tempomap.ErrOrderingViolation,
		},
		"BadBBT": {
			doc: `sampleRate: 48000
meters:
  - {divisionsPerBar: 4, noteDivisor: 4}
  - {divisionsPerBar: 3, noteDivisor: 4, bbt: "4-1-0"}
`,
			errContains: "bbt",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tm, err := Load(strings.NewReader(tc.doc), tempomap.WithLogger(testr.New(t)))
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			if tc.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			tc.check(t, tm)
		})
	}
}

func TestLoadReportsAllErrors(t *testing.T) {
	doc := `sampleRate: 48000
tempos:
  - {npm: 120, noteType: 4}
  - {npm: 240, noteType: 4, pulse: 3, lock: video}
  - {npm: -1, noteType: 4, pulse: 5}
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tempo 1")
	assert.Contains(t, err.Error(), "tempo 2")
	assert.ErrorIs(t, err, tempomap.ErrInvalid)
}

func TestSaveLoad(t *testing.T) {
	tm, err := Load(strings.NewReader(scenario))
	require.NoError(t, err)
	_, err = tm.AddTempo(tempo.NewRampedTempo(240, 4, 90), 0, 480000, tempo.AudioTime)
	require.NoError(t, err)
	_, err = tm.AddTempo(tempo.NewTempo(90, 8), 12, 0, tempo.MusicTime)
	require.NoError(t, err)
	_, err = tm.AddMeter(tempo.NewMeter(7, 8), tempo.BBT{}, 900000, tempo.AudioTime)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, Save(&b, tm))

	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	// ids are handed out again on load, compare positions only
	if diff := cmp.Diff(sectionStrings(tm), sectionStrings(loaded)); diff != "" {
		t.Errorf("map changed after save and load (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(FromMap(tm), FromMap(loaded)); diff != "" {
		t.Errorf("FromMap() (-want +got):\n%s", diff)
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func sectionStrings(tm *tempomap.TempoMap) []string {
	ss := []string{}
	for _, s := range tm.Sections() {
		ss = append(ss, s.String())
	}
	return ss
}
