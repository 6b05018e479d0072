// Package heading classifies the direction of travel of a ground vehicle.
//
// The classifier compares the heading implied by the vehicle's displacement
// with the heading the vehicle is pointing. When the two agree to within a
// quarter turn the vehicle is driving forward, otherwise it is reversing.
package heading

import (
	"errors"
	"math"
)

// ErrUnclassifiable is returned when either angle is NaN or infinite.
var ErrUnclassifiable = errors.New("heading: unclassifiable angle")

// Sign is the direction of travel along the vehicle's forward axis.
type Sign int

const (
	Forward  Sign = 1
	Backward Sign = -1
)

func (s Sign) Float() float64 { return float64(s) }

// Flip returns the opposite direction.
func (s Sign) Flip() Sign { return -s }

func (s Sign) String() string {
	if s == Backward {
		return "backward"
	}
	return "forward"
}

// Wrap converts an angle in radians of any magnitude to the range (-π, π].
func Wrap(a float64) float64 {
	d := math.Mod(a, 2*math.Pi)
	if d <= -math.Pi {
		d += 2 * math.Pi
	} else if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// Diff returns the signed angle from a to b, wrapped to (-π, π].
func Diff(a, b float64) float64 {
	return Wrap(b - a)
}

// Direction classifies travel given the heading of the displacement
// (travel) and the heading of the vehicle (robot). Neither angle needs to
// be normalised. A difference of exactly ±π/2 counts as forward.
//
// Non-finite input yields Forward together with ErrUnclassifiable.
func Direction(travel, robot float64) (Sign, error) {
	if !finite(travel) || !finite(robot) {
		return Forward, ErrUnclassifiable
	}
	if math.Abs(Diff(travel, robot)) <= math.Pi/2 {
		return Forward, nil
	}
	return Backward, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
