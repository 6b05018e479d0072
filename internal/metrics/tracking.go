package metrics

import (
	"math"

	"github.com/san-kum/speedpid/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrackingRMS is the root mean square of setpoint minus true speed.
type TrackingRMS struct {
	errs []float64
}

func NewTrackingRMS() *TrackingRMS {
	return &TrackingRMS{}
}

func (m *TrackingRMS) Name() string { return "tracking_rms" }

func (m *TrackingRMS) Observe(s dynamo.Sample) {
	m.errs = append(m.errs, s.Error())
}

func (m *TrackingRMS) Value() float64 {
	if len(m.errs) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(m.errs, m.errs) / float64(len(m.errs)))
}

func (m *TrackingRMS) Reset() { m.errs = m.errs[:0] }

// FinalError is the mean absolute tracking error over the trailing window
// of samples, a proxy for steady-state error.
type FinalError struct {
	window int
	errs   []float64
}

func NewFinalError(window int) *FinalError {
	if window < 1 {
		window = 1
	}
	return &FinalError{window: window}
}

func (m *FinalError) Name() string { return "final_error" }

func (m *FinalError) Observe(s dynamo.Sample) {
	m.errs = append(m.errs, math.Abs(s.Error()))
	if len(m.errs) > m.window {
		m.errs = m.errs[1:]
	}
}

func (m *FinalError) Value() float64 {
	if len(m.errs) == 0 {
		return 0
	}
	return stat.Mean(m.errs, nil)
}

func (m *FinalError) Reset() { m.errs = nil }

// Summary describes the tracking error distribution of a run.
type Summary struct {
	Samples  int     `json:"samples"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	MaxAbs   float64 `json:"max_abs"`
	Median   float64 `json:"median"`
	MeanOut  float64 `json:"mean_output"`
	Dropped  int     `json:"dropped"`
	Duration float64 `json:"duration"`
}

// Summarize computes error statistics over the samples that were not
// dropped.
func Summarize(samples []dynamo.Sample) Summary {
	var errs, outs []float64
	sum := Summary{Samples: len(samples)}
	for _, s := range samples {
		if s.Dropped {
			sum.Dropped++
			continue
		}
		errs = append(errs, s.Error())
		outs = append(outs, s.Output)
	}
	if len(samples) > 0 {
		sum.Duration = samples[len(samples)-1].Time - samples[0].Time
	}
	if len(errs) == 0 {
		return sum
	}

	sum.Mean, sum.StdDev = stat.MeanStdDev(errs, nil)
	if len(errs) == 1 {
		sum.StdDev = 0
	}
	abs := make([]float64, len(errs))
	for i, e := range errs {
		abs[i] = math.Abs(e)
	}
	sum.MaxAbs = floats.Max(abs)

	sorted := append([]float64(nil), errs...)
	floats.Argsort(sorted, make([]int, len(sorted)))
	sum.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	sum.MeanOut = stat.Mean(outs, nil)
	return sum
}

// Default returns the metric set recorded for every run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewTrackingRMS(),
		NewFinalError(50),
		NewControlEffort(),
		NewSaturation(),
		NewDropRate(),
	}
}
