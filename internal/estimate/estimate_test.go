package estimate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/speedpid/internal/heading"
	"github.com/san-kum/speedpid/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var epoch = time.Unix(1_600_000_000, 0)

func at(sec, x, y, theta float64) PoseSample {
	return PoseSample{
		Stamp: epoch.Add(time.Duration(sec * float64(time.Second))),
		X:     x,
		Y:     y,
		Theta: theta,
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur PoseSample
		invert    bool
		want      float64
	}{
		{"forward along x", at(0, 0, 0, 0), at(1, 1, 0, 0), false, 1.0},
		{"reverse along x", at(0, 0, 0, 0), at(1, -1, 0, 0), false, -1.0},
		{"forward diagonal", at(0, 0, 0, math.Pi/4), at(0.5, 3, 4, math.Pi/4), false, 10.0},
		{"reverse facing west", at(0, 0, 0, math.Pi), at(2, 4, 0, math.Pi), false, -2.0},
		{"forward across seam", at(0, 0, 0, math.Pi), at(1, -1, -1e-9, -math.Pi+1e-6), false, 1.0},
		{"stationary", at(0, 2, 2, 1), at(1, 2, 2, 1), false, 0},
		{"inverted mount", at(0, 0, 0, 0), at(1, 1, 0, 0), true, -1.0},
		{"inverted reverse", at(0, 0, 0, 0), at(1, -1, 0, 0), true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.invert).Estimate(tt.prev, tt.cur)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Estimate() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEstimateDegenerateInterval(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur PoseSample
	}{
		{"zero dt", at(1, 0, 0, 0), at(1, 1, 0, 0)},
		{"negative dt", at(2, 0, 0, 0), at(1, 1, 0, 0)},
		{"zero dt no motion", at(1, 0, 0, 0), at(1, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(false).Estimate(tt.prev, tt.cur)
			if !errors.Is(err, ErrDegenerateInterval) {
				t.Fatalf("error = %v, want ErrDegenerateInterval", err)
			}
			var ie *IntervalError
			if !errors.As(err, &ie) {
				t.Fatalf("error %T is not *IntervalError", err)
			}
			if ie.Dt > 0 {
				t.Errorf("IntervalError.Dt = %f, want <= 0", ie.Dt)
			}
			if got != 0 {
				t.Errorf("speed = %f, want 0 on error", got)
			}
		})
	}
}

func TestEstimateNonFinitePosition(t *testing.T) {
	_, err := New(false).Estimate(at(0, 0, 0, 0), at(1, math.NaN(), 0, 0))
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("error = %v, want ErrNonFinite", err)
	}
}

func TestEstimateUnclassifiableHeadingDefaultsForwardWithoutLogging(t *testing.T) {
	original := logging.L()
	defer logging.SetLogger(original)
	core, logs := observer.New(zap.DebugLevel)
	logging.SetLogger(zap.New(core))

	got, err := New(false).Estimate(at(0, 0, 0, 0), at(1, -1, 0, math.NaN()))
	if !errors.Is(err, heading.ErrUnclassifiable) {
		t.Fatalf("error = %v, want ErrUnclassifiable", err)
	}
	if got != 1.0 {
		t.Errorf("Estimate() = %f, want 1.0 (forward default)", got)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log entries, got %d", logs.Len())
	}

	got, err = New(true).Estimate(at(0, 0, 0, 0), at(1, -1, 0, math.Inf(1)))
	if !errors.Is(err, heading.ErrUnclassifiable) || got != -1.0 {
		t.Errorf("inverted Estimate() = %f, %v, want -1.0 and ErrUnclassifiable", got, err)
	}
}

func TestInterval(t *testing.T) {
	if got := Interval(at(0, 0, 0, 0), at(0.25, 0, 0, 0)); got != 0.25 {
		t.Errorf("Interval() = %f, want 0.25", got)
	}
}
