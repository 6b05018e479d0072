package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Configurable systems expose named parameters for live tuning.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Sample is the loop's view of one pose update.
type Sample struct {
	Time      float64 `json:"time"`
	Setpoint  float64 `json:"setpoint"`
	Measured  float64 `json:"measured"`
	Truth     float64 `json:"truth"`
	Output    float64 `json:"output"`
	Dropped   bool    `json:"dropped"`
	Saturated bool    `json:"saturated"`
}

// Error is the tracking error against the true plant speed.
func (s Sample) Error() float64 { return s.Setpoint - s.Truth }

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(s Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Sample)

func (f ObserverFunc) OnSample(s Sample) { f(s) }

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	FinalState State
	StepsTaken int
}

// Series extracts one field of every sample.
func (r *Result) Series(field func(Sample) float64) []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = field(s)
	}
	return out
}
