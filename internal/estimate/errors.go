package estimate

import (
	"errors"
	"fmt"
)

// Domain errors for speed estimation.
var (
	// ErrDegenerateInterval indicates two samples with zero, negative or
	// non-finite elapsed time between them.
	ErrDegenerateInterval = errors.New("estimate: degenerate sample interval")

	// ErrNonFinite indicates the estimate came out NaN or infinite, which
	// happens when a pose carries non-finite coordinates.
	ErrNonFinite = errors.New("estimate: non-finite speed")
)

// IntervalError wraps ErrDegenerateInterval with the offending interval.
type IntervalError struct {
	Dt float64
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("%v (dt=%g s)", ErrDegenerateInterval, e.Dt)
}

func (e *IntervalError) Unwrap() error {
	return ErrDegenerateInterval
}
