package tempomap

import (
	"github.com/go-logr/logr"
	"github.com/henderiw/temporal/pkg/tempo"
)

type Option func(*TempoMap)

// WithLogger sets the logger, recomputes are logged at V(1).
func WithLogger(l logr.Logger) Option {
	return func(r *TempoMap) {
		r.log = l
	}
}

// WithInitialTempo sets the tempo of the initial tempo section.
func WithInitialTempo(t tempo.Tempo) Option {
	return func(r *TempoMap) {
		r.initialTempo = t
	}
}

// WithInitialMeter sets the meter of the initial meter section.
func WithInitialMeter(m tempo.Meter) Option {
	return func(r *TempoMap) {
		r.initialMeter = m
	}
}
