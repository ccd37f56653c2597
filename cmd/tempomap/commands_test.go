package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tj/assert"
)

const scenarioMap = `sampleRate: 48000
tempos:
  - {npm: 120, noteType: 4}
  - {npm: 240, noteType: 4, pulse: 3}
meters:
  - {divisionsPerBar: 4, noteDivisor: 4}
  - {divisionsPerBar: 3, noteDivisor: 4, bbt: "4|1|0"}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(scenarioMap), 0o644))

	cases := map[string]struct {
		args        []string
		expected    string
		expectedErr bool
	}{
		"AtSampleDefault": {
			args:     []string{"at-sample", "288000"},
			expected: "sample 288000 minute 0.1 quarters 12 bbt 4|1|0 tempo 120/4 meter 4/4\n",
		},
		"AtSampleMap": {
			args:     []string{"--map", path, "at-sample", "576000"},
			expected: "sample 576000 minute 0.2 quarters 36 bbt 12|1|0 tempo 240/4 meter 3/4\n",
		},
		"AtQuarter": {
			args:     []string{"--map", path, "at-quarter", "12"},
			expected: "sample 288000 minute 0.1 quarters 12 bbt 4|1|0 tempo 240/4 meter 3/4\n",
		},
		"AtBBT": {
			args:     []string{"--map", path, "-v", "1", "at-bbt", "4|1|0"},
			expected: "sample 288000 minute 0.1 quarters 12 bbt 4|1|0 tempo 240/4 meter 3/4\n",
		},
		"SampleRate": {
			args:     []string{"--sample-rate", "44100", "at-quarter", "4"},
			expected: "sample 88200 minute 0.03333333333333333 quarters 4 bbt 2|1|0 tempo 120/4 meter 4/4\n",
		},
		"Grid": {
			args:     []string{"grid", "0", "48000"},
			expected: "0 1|1|0 120/4 4/4\n24000 1|2|0 120/4 4/4\n",
		},
		"Subtract": {
			args:     []string{"subtract", "0-100", "10-20", "50-60"},
			expected: "[0-10 20-50 60-100]\n",
		},
		"SubtractAll": {
			args:     []string{"subtract", "0-100", "0-100"},
			expected: "[]\n",
		},
		"SubtractNormalized": {
			args:     []string{"subtract", "--normalized", "0-100", "10-20", "15-30", "50-60"},
			expected: "[0-10 30-50 60-100] length 70\n",
		},
		"SubtractNormalizedAll": {
			args:     []string{"subtract", "--normalized", "0-100", "0-50", "50-100"},
			expected: "[] length 0\n",
		},
		"ErrorQuarterOverflow": {
			args:        []string{"at-quarter", "1e30"},
			expectedErr: true,
		},
		"ErrorGridTooLarge": {
			args:        []string{"grid", "0", "9000000000000000000"},
			expectedErr: true,
		},
		"ErrorSample": {
			args:        []string{"at-sample", "abc"},
			expectedErr: true,
		},
		"ErrorNegativeSample": {
			args:        []string{"at-sample", "--", "-1"},
			expectedErr: true,
		},
		"ErrorBBT": {
			args:        []string{"at-bbt", "0|1|0"},
			expectedErr: true,
		},
		"ErrorMap": {
			args:        []string{"--map", filepath.Join(t.TempDir(), "missing.yaml"), "dump"},
			expectedErr: true,
		},
		"ErrorRange": {
			args:        []string{"subtract", "100-0"},
			expectedErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := run(t, tc.args...)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestDumpYAML(t *testing.T) {
	out, err := run(t, "dump", "--yaml")
	assert.NoError(t, err)
	assert.Contains(t, out, "sampleRate: 48000")
	assert.Contains(t, out, "npm: 120")

	out, err = run(t, "dump")
	assert.NoError(t, err)
	assert.Equal(t, "2: meter 4/4 at 1|1|0 sample 0 pulse 0 beat 0 (audio)\n1: tempo 120/4 at sample 0 pulse 0 minute 0 (audio, c 0)\n", out)
}
