package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/speedpid/internal/dynamo"
)

var ErrTooShort = errors.New("analysis: trace too short")

// MinSamples is the shortest trace worth transforming.
const MinSamples = 8

type Spectrum struct {
	Rate  float64   // Hz, of the resampled trace
	Freqs []float64 // Hz
	Power []float64 // magnitude per bin, DC first
}

// Resample linearly interpolates values taken at increasing times onto a
// grid of the given rate starting at times[0].
func Resample(times, values []float64, rate float64) []float64 {
	if len(times) == 0 || len(times) != len(values) || rate <= 0 {
		return nil
	}
	span := times[len(times)-1] - times[0]
	n := int(span*rate) + 1
	out := make([]float64, n)

	j := 0
	for i := range out {
		t := times[0] + float64(i)/rate
		for j < len(times)-2 && times[j+1] < t {
			j++
		}
		if j == len(times)-1 {
			out[i] = values[j]
			continue
		}
		t0, t1 := times[j], times[j+1]
		if t1 <= t0 {
			out[i] = values[j+1]
			continue
		}
		a := math.Min(math.Max((t-t0)/(t1-t0), 0), 1)
		out[i] = values[j] + a*(values[j+1]-values[j])
	}
	return out
}

// ErrorSpectrum returns the spectrum of the tracking error of the samples
// that reached the controller. Dropped samples are skipped. The trace is
// detrended by its mean and Hann windowed.
func ErrorSpectrum(samples []dynamo.Sample, rate float64) (*Spectrum, error) {
	times := make([]float64, 0, len(samples))
	errs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Dropped {
			continue
		}
		if n := len(times); n > 0 && s.Time <= times[n-1] {
			continue
		}
		times = append(times, s.Time)
		errs = append(errs, s.Error())
	}
	if len(times) < MinSamples {
		return nil, fmt.Errorf("%w: %d usable samples", ErrTooShort, len(times))
	}

	trace := Resample(times, errs, rate)
	if len(trace) < MinSamples {
		return nil, fmt.Errorf("%w: %d points at %.2f Hz", ErrTooShort, len(trace), rate)
	}
	return PowerSpectrum(trace, rate), nil
}

// PowerSpectrum transforms a uniformly sampled trace.
func PowerSpectrum(trace []float64, rate float64) *Spectrum {
	n := len(trace)
	mean := 0.0
	for _, v := range trace {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range trace {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	coeffs := fft.FFTReal(windowed)
	bins := n/2 + 1
	s := &Spectrum{
		Rate:  rate,
		Freqs: make([]float64, bins),
		Power: make([]float64, bins),
	}
	for k := range bins {
		s.Freqs[k] = float64(k) * rate / float64(n)
		s.Power[k] = cmplx.Abs(coeffs[k])
	}
	return s
}

// Dominant returns the strongest non-DC bin.
func (s *Spectrum) Dominant() (freq, power float64) {
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > power {
			freq, power = s.Freqs[k], s.Power[k]
		}
	}
	return freq, power
}
