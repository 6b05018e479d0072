package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/speedpid/internal/dynamo"
)

func TestResample(t *testing.T) {
	times := []float64{0, 1, 3}
	values := []float64{0, 2, 6}

	got := Resample(times, values, 2)
	want := []float64{0, 1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampleInvalid(t *testing.T) {
	tests := []struct {
		name          string
		times, values []float64
		rate          float64
	}{
		{"empty", nil, nil, 10},
		{"mismatched", []float64{0, 1}, []float64{0}, 10},
		{"zero rate", []float64{0, 1}, []float64{0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resample(tt.times, tt.values, tt.rate); got != nil {
				t.Errorf("expected nil, got %v", got)
			}
		})
	}
}

func TestDominantFrequency(t *testing.T) {
	const freq = 0.5
	rng := rand.New(rand.NewSource(1))

	var samples []dynamo.Sample
	for tm := 0.0; tm < 40; tm += 0.1 * (0.5 + rng.Float64()) {
		samples = append(samples, dynamo.Sample{
			Time:     tm,
			Setpoint: 1,
			Truth:    1 - 0.2*math.Sin(2*math.Pi*freq*tm),
		})
	}

	s, err := ErrorSpectrum(samples, 10)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.Dominant()
	resolution := s.Rate / float64(2*(len(s.Power)-1))
	if math.Abs(got-freq) > 2*resolution {
		t.Errorf("dominant = %v Hz, want %v (resolution %v)", got, freq, resolution)
	}
}

func TestErrorSpectrumSkipsDropped(t *testing.T) {
	samples := make([]dynamo.Sample, 20)
	for i := range samples {
		samples[i] = dynamo.Sample{Time: float64(i) * 0.1, Dropped: i > 3}
	}
	_, err := ErrorSpectrum(samples, 10)
	if !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort, got %v", err)
	}
}

func TestConstantErrorHasNoPeak(t *testing.T) {
	trace := make([]float64, 64)
	for i := range trace {
		trace[i] = 0.3
	}
	_, power := PowerSpectrum(trace, 10).Dominant()
	if power > 1e-9 {
		t.Errorf("constant trace has power %v", power)
	}
}
