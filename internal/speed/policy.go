package speed

import "math"

// Policy maps setpoint commands to target speeds.
type Policy string

const (
	// PolicyQuantized drives at ±ConstantSpeed depending on the command's
	// sign. Zero and NaN stop the vehicle.
	PolicyQuantized Policy = "quantized"

	// PolicyProportional uses the command directly, clamped to [-1, 1].
	// NaN stops the vehicle.
	PolicyProportional Policy = "proportional"
)

func (p Policy) Valid() bool {
	return p == PolicyQuantized || p == PolicyProportional
}

func (p Policy) apply(input, constantSpeed float64) float64 {
	switch p {
	case PolicyProportional:
		if math.IsNaN(input) {
			return 0
		}
		return math.Max(-1, math.Min(1, input))
	default:
		switch {
		case input > 0:
			return constantSpeed
		case input < 0:
			return -constantSpeed
		default:
			return 0
		}
	}
}
