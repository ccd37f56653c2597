package tempomap

import "errors"

var (
	// ErrOutOfDomain is returned for a query before the start of the map or
	// beyond the last representable sample.
	ErrOutOfDomain = errors.New("out of domain")
	// ErrOrderingViolation is returned when a mutation would leave sections
	// out of order on one of the time axes.
	ErrOrderingViolation = errors.New("ordering violation")
	// ErrDegenerateSection is returned when a mutation would leave two
	// sections of the same kind on the same anchor.
	ErrDegenerateSection = errors.New("degenerate section")
	ErrNotFound          = errors.New("section not found")
	// ErrInitialSection is returned when removing the initial tempo or meter.
	ErrInitialSection = errors.New("initial section")
	ErrInvalid        = errors.New("invalid argument")
)
