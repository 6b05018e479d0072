package control

import (
	"fmt"
	"math"
)

// Params are the gains and limits of a PID loop. Limits are magnitudes and
// must not be negative.
type Params struct {
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	PLimit float64 `yaml:"p_limit"`
	ILimit float64 `yaml:"i_limit"`
	DLimit float64 `yaml:"d_limit"`

	// IntegralLimit bounds the raw accumulator. Zero leaves it unbounded.
	IntegralLimit float64 `yaml:"integral_limit,omitempty"`
	// OutputLimit bounds the summed output. Zero leaves it unbounded.
	OutputLimit float64 `yaml:"output_limit,omitempty"`
}

// Validate reports the first negative or non-finite limit or gain.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"kp", p.Kp}, {"ki", p.Ki}, {"kd", p.Kd},
		{"p_limit", p.PLimit}, {"i_limit", p.ILimit}, {"d_limit", p.DLimit},
		{"integral_limit", p.IntegralLimit}, {"output_limit", p.OutputLimit},
	}
	for i, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be finite, got %v", f.name, f.v)
		}
		if i >= 3 && f.v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", f.name, f.v)
		}
	}
	return nil
}

// Terms are the clamped contributions of the most recent step.
type Terms struct {
	P, I, D float64
}

func (t Terms) Sum() float64 { return t.P + t.I + t.D }

// PID is a single-input loop with per-term clamps. It is not safe for
// concurrent use.
type PID struct {
	params   Params
	setpoint float64
	integral float64
	prevErr  float64

	terms     Terms
	saturated bool
}

// NewPID returns a PID with a zero setpoint and empty history.
func NewPID(p Params) *PID {
	return &PID{params: p}
}

func (p *PID) Params() Params { return p.params }

func (p *PID) SetSetpoint(v float64) { p.setpoint = v }

func (p *PID) Setpoint() float64 { return p.setpoint }

// Integral returns the raw accumulator.
func (p *PID) Integral() float64 { return p.integral }

// Terms returns the clamped contributions of the last Step.
func (p *PID) Terms() Terms { return p.terms }

// Saturated reports whether any term or the output hit its limit on the
// last Step.
func (p *PID) Saturated() bool { return p.saturated }

// Step advances the loop by dt seconds with the given measurement and
// returns the control output. dt must be positive; callers guard it.
//
// The accumulator saturates at ±math.MaxFloat64 instead of overflowing.
// A non-finite output clears the accumulator so later steps can recover.
func (p *PID) Step(measured, dt float64) float64 {
	err := p.setpoint - measured

	var sat, s bool
	pTerm, s := clamp(p.params.Kp*err, p.params.PLimit)
	sat = sat || s

	p.integral = finite(p.integral + err*dt)
	if p.params.IntegralLimit > 0 {
		p.integral, _ = clamp(p.integral, p.params.IntegralLimit)
	}
	iTerm, s := clamp(p.params.Ki*p.integral, p.params.ILimit)
	sat = sat || s

	dTerm, s := clamp(p.params.Kd*(err-p.prevErr)/dt, p.params.DLimit)
	sat = sat || s
	p.prevErr = finite(err)

	p.terms = Terms{P: pTerm, I: iTerm, D: dTerm}
	out := p.terms.Sum()
	if p.params.OutputLimit > 0 {
		out, s = clamp(out, p.params.OutputLimit)
		sat = sat || s
	}
	p.saturated = sat
	if math.IsNaN(out) || math.IsInf(out, 0) {
		p.integral = 0
	}
	return out
}

// Reset clears integral and derivative state. The setpoint is kept.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.terms = Terms{}
	p.saturated = false
}

func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func clamp(v, limit float64) (float64, bool) {
	if v > limit {
		return limit, true
	}
	if v < -limit {
		return -limit, true
	}
	return v, false
}
