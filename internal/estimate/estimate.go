// Package estimate derives a signed longitudinal speed from consecutive
// timestamped 2D poses.
//
// Speed is a finite difference: the straight-line distance between two poses
// divided by the time between their stamps. The sign comes from comparing
// the displacement heading with the vehicle heading, see [heading.Direction].
package estimate

import (
	"errors"
	"math"
	"time"

	"github.com/san-kum/speedpid/internal/heading"
)

// PoseSample is a planar pose captured at Stamp. Stamp must come from the
// clock that produced the pose, not from the time the sample was received.
type PoseSample struct {
	Stamp time.Time
	X     float64
	Y     float64
	Theta float64 // radians
}

// Estimator turns pose pairs into signed speeds.
type Estimator struct {
	// Invert flips the classified direction for vehicles whose pose frame
	// has its forward axis pointing backwards.
	Invert bool
}

// New returns an Estimator.
func New(invert bool) *Estimator {
	return &Estimator{Invert: invert}
}

// Interval returns the elapsed time from prev to cur in seconds.
func Interval(prev, cur PoseSample) float64 {
	return cur.Stamp.Sub(prev.Stamp).Seconds()
}

// Estimate returns the signed speed in units per second travelled between
// prev and cur. It fails with an *IntervalError when cur is not strictly
// after prev, and with ErrNonFinite when the poses produce NaN or Inf.
//
// When cur.Theta is not finite the direction defaults to forward: the speed
// is valid and the error wraps heading.ErrUnclassifiable. Estimate does not
// log, so callers can report it outside any lock they hold.
func (e *Estimator) Estimate(prev, cur PoseSample) (float64, error) {
	dt := Interval(prev, cur)
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0, &IntervalError{Dt: dt}
	}

	dx := cur.X - prev.X
	dy := cur.Y - prev.Y
	distance := math.Hypot(dx, dy)
	travel := math.Atan2(dy, dx)

	sign, dirErr := heading.Direction(travel, cur.Theta)
	if e.Invert {
		sign = sign.Flip()
	}

	speed := sign.Float() * distance / dt
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, ErrNonFinite
	}
	if errors.Is(dirErr, heading.ErrUnclassifiable) {
		return speed, dirErr
	}
	return speed, nil
}
