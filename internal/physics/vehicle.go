package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/speedpid/internal/dynamo"
	"github.com/san-kum/speedpid/internal/heading"
)

// State indices.
const (
	IdxX = iota
	IdxY
	IdxTheta
	IdxV
)

type Vehicle struct {
	Mass      float64
	Drag      float64 // linear drag coefficient
	Gain      float64 // drive force per unit of control effort
	Curvature float64 // 1/turn radius; heading rate is Curvature*v

	// ReversedMount reports the pose heading rotated by π, as when the
	// localisation frame's forward axis points out of the vehicle's rear.
	ReversedMount bool
}

func NewVehicle() *Vehicle {
	return &Vehicle{
		Mass:      1.0,
		Drag:      0.5,
		Gain:      1.0,
		Curvature: 0.0,
	}
}

func (v *Vehicle) StateDim() int {
	return 4
}

func (v *Vehicle) ControlDim() int {
	return 1
}

func (v *Vehicle) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[IdxTheta]
	speed := x[IdxV]

	effort := 0.0
	if len(u) > 0 {
		effort = u[0]
	}
	accel := (v.Gain*effort - v.Drag*speed) / v.Mass

	return dynamo.State{
		speed * math.Cos(theta),
		speed * math.Sin(theta),
		v.Curvature * speed,
		accel,
	}
}

// Pose returns the planar pose a localiser would report for state x.
func (v *Vehicle) Pose(x dynamo.State) (px, py, theta float64) {
	theta = x[IdxTheta]
	if v.ReversedMount {
		theta += math.Pi
	}
	return x[IdxX], x[IdxY], heading.Wrap(theta)
}

func (v *Vehicle) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      v.Mass,
		"drag":      v.Drag,
		"gain":      v.Gain,
		"curvature": v.Curvature,
	}
}

func (v *Vehicle) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("mass must be positive: %w", dynamo.ErrParameterBounds)
		}
		v.Mass = value
	case "drag":
		if value < 0 {
			return fmt.Errorf("drag must not be negative: %w", dynamo.ErrParameterBounds)
		}
		v.Drag = value
	case "gain":
		v.Gain = value
	case "curvature":
		v.Curvature = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
