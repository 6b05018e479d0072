package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState    = errors.New("dynamo: plant state diverged (NaN or Inf)")
	ErrParameterBounds = errors.New("dynamo: plant parameter out of range")
)

// SimulationError reports where in a run the plant failed. State is the
// offending state, not the last good one.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error { return e.Wrapped }
