// Package state reads and writes tempo maps as YAML documents.
package state

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/henderiw/temporal/pkg/tempo"
	"github.com/henderiw/temporal/pkg/tempomap"
	"gopkg.in/yaml.v3"
)

// Document is the persisted form of a tempo map. The first tempo and meter
// are the initial sections of the map, their positions are ignored.
type Document struct {
	SampleRate int64   `yaml:"sampleRate"`
	Tempos     []Tempo `yaml:"tempos,omitempty"`
	Meters     []Meter `yaml:"meters,omitempty"`
}

type Tempo struct {
	NoteTypesPerMinute float64 `yaml:"npm"`
	// EndNoteTypesPerMinute is only set for a ramped tempo.
	EndNoteTypesPerMinute float64 `yaml:"endNpm,omitempty"`
	NoteType              float64 `yaml:"noteType"`
	Pulse                 float64 `yaml:"pulse,omitempty"`
	Sample                int64   `yaml:"sample,omitempty"`
	Lock                  string  `yaml:"lock,omitempty"`
}

type Meter struct {
	DivisionsPerBar float64 `yaml:"divisionsPerBar"`
	NoteDivisor     float64 `yaml:"noteDivisor"`
	BBT             string  `yaml:"bbt,omitempty"`
	Sample          int64   `yaml:"sample,omitempty"`
	Lock            string  `yaml:"lock,omitempty"`
}

func (r Tempo) tempo() tempo.Tempo {
	if r.EndNoteTypesPerMinute != 0 {
		return tempo.NewRampedTempo(r.NoteTypesPerMinute, r.NoteType, r.EndNoteTypesPerMinute)
	}
	return tempo.NewTempo(r.NoteTypesPerMinute, r.NoteType)
}

func (r Meter) meter() tempo.Meter {
	return tempo.NewMeter(r.DivisionsPerBar, r.NoteDivisor)
}

// Build returns a new map holding the sections of the document. All section
// errors are reported, not only the first.
func (r *Document) Build(opts ...tempomap.Option) (*tempomap.TempoMap, error) {
	if len(r.Tempos) > 0 {
		opts = append(opts, tempomap.WithInitialTempo(r.Tempos[0].tempo()))
	}
	if len(r.Meters) > 0 {
		opts = append(opts, tempomap.WithInitialMeter(r.Meters[0].meter()))
	}
	tm, err := tempomap.New(r.SampleRate, opts...)
	if err != nil {
		return nil, err
	}

	var errm error
	for i, t := range r.Tempos {
		if i == 0 {
			continue
		}
		lock, err := tempo.ParsePositionLock(t.Lock)
		if err != nil {
			errm = errors.Join(errm, fmt.Errorf("tempo %d: %w", i, err))
			continue
		}
		if _, err := tm.AddTempo(t.tempo(), t.Pulse, t.Sample, lock); err != nil {
			errm = errors.Join(errm, fmt.Errorf("tempo %d: %w", i, err))
		}
	}
	for i, m := range r.Meters {
		if i == 0 {
			continue
		}
		lock, err := tempo.ParsePositionLock(m.Lock)
		if err != nil {
			errm = errors.Join(errm, fmt.Errorf("meter %d: %w", i, err))
			continue
		}
		var bbt tempo.BBT
		if lock == tempo.MusicTime {
			if bbt, err = tempo.ParseBBT(m.BBT); err != nil {
				errm = errors.Join(errm, fmt.Errorf("meter %d: %w", i, err))
				continue
			}
		}
		if _, err := tm.AddMeter(m.meter(), bbt, m.Sample, lock); err != nil {
			errm = errors.Join(errm, fmt.Errorf("meter %d: %w", i, err))
		}
	}
	if errm != nil {
		return nil, errm
	}
	return tm, nil
}

// FromMap returns the document of tm. Both positions of a section are
// written, only the one of its lock axis is read back.
func FromMap(tm *tempomap.TempoMap) *Document {
	d := &Document{SampleRate: tm.SampleRate()}
	for _, t := range tm.Tempos() {
		dt := Tempo{
			NoteTypesPerMinute: t.NoteTypesPerMinute(),
			NoteType:           t.NoteType(),
			Pulse:              t.Pulse(),
			Sample:             t.Sample(),
			Lock:               t.Lock().String(),
		}
		if t.Ramped() {
			dt.EndNoteTypesPerMinute = t.EndNoteTypesPerMinute()
		}
		d.Tempos = append(d.Tempos, dt)
	}
	for _, m := range tm.Meters() {
		d.Meters = append(d.Meters, Meter{
			DivisionsPerBar: m.DivisionsPerBar(),
			NoteDivisor:     m.NoteDivisor(),
			BBT:             m.BBT().String(),
			Sample:          m.Sample(),
			Lock:            m.Lock().String(),
		})
	}
	return d
}

func Load(r io.Reader, opts ...tempomap.Option) (*tempomap.TempoMap, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	d := &Document{}
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("decode tempo map: %w", err)
	}
	return d.Build(opts...)
}

func LoadFile(path string, opts ...tempomap.Option) (*tempomap.TempoMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tm, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tm, nil
}

func Save(w io.Writer, tm *tempomap.TempoMap) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromMap(tm)); err != nil {
		return err
	}
	return enc.Close()
}
