package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/speedpid/internal/dynamo"
)

func TestSamplesToSVG(t *testing.T) {
	samples := []dynamo.Sample{
		{Time: 0, Setpoint: 1, Truth: 0, Measured: 0},
		{Time: 1, Setpoint: 1, Truth: 0.5, Measured: math.NaN(), Dropped: true},
		{Time: 2, Setpoint: -1, Truth: 0.8, Measured: 0.7},
	}

	svg := SamplesToSVG(samples, 200, 100, TrackingSeries)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatalf("not an svg document:\n%s", svg)
	}
	for _, s := range TrackingSeries {
		if !strings.Contains(svg, `id="`+s.Name+`"`) {
			t.Errorf("missing series %s", s.Name)
		}
	}
	if !strings.Contains(svg, "<line") {
		t.Error("signed data should draw a zero line")
	}
	if strings.Contains(svg, "NaN") {
		t.Error("dropped sample leaked into the plot")
	}
}

func TestSamplesToSVGTooShort(t *testing.T) {
	tests := []struct {
		name    string
		samples []dynamo.Sample
	}{
		{"empty", nil},
		{"single", []dynamo.Sample{{Time: 0, Setpoint: 1}}},
		{"all dropped", []dynamo.Sample{{Time: 0, Dropped: true}, {Time: 1, Dropped: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SamplesToSVG(tt.samples, 100, 50, TrackingSeries); got != "" {
				t.Errorf("expected empty output, got %q", got)
			}
		})
	}
}
