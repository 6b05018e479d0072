package metrics

import (
	"math"

	"github.com/san-kum/speedpid/internal/dynamo"
)

// Fraction reports the share of samples matching a predicate.
type Fraction struct {
	name    string
	match   func(dynamo.Sample) bool
	hits    int
	samples int
}

// NewSaturation tracks how often the PID hit a limit.
func NewSaturation() *Fraction {
	return &Fraction{name: "saturation", match: func(s dynamo.Sample) bool { return s.Saturated }}
}

// NewDropRate tracks how often a pose update was dropped by the controller.
func NewDropRate() *Fraction {
	return &Fraction{name: "drop_rate", match: func(s dynamo.Sample) bool { return s.Dropped }}
}

func (f *Fraction) Name() string {
	return f.name
}

func (f *Fraction) Observe(s dynamo.Sample) {
	f.samples++
	if f.match(s) {
		f.hits++
	}
}

func (f *Fraction) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return float64(f.hits) / float64(f.samples)
}

func (f *Fraction) Reset() {
	f.hits = 0
	f.samples = 0
}

// MeanAbs is the mean absolute value of one sample field.
type MeanAbs struct {
	name    string
	field   func(dynamo.Sample) float64
	sum     float64
	samples int
}

// NewControlEffort tracks the mean absolute controller output.
func NewControlEffort() *MeanAbs {
	return &MeanAbs{name: "control_effort", field: func(s dynamo.Sample) float64 { return s.Output }}
}

func (m *MeanAbs) Name() string { return m.name }

func (m *MeanAbs) Observe(s dynamo.Sample) {
	m.sum += math.Abs(m.field(s))
	m.samples++
}

func (m *MeanAbs) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanAbs) Reset() {
	m.sum = 0
	m.samples = 0
}
