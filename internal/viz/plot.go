package viz

import (
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/speedpid/internal/dynamo"
)

// Plot renders one series as an ASCII chart.
func Plot(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotTracking overlays the setpoint (red) and the true speed (green) of a
// run.
func PlotTracking(samples []dynamo.Sample, width, height int) string {
	if len(samples) == 0 {
		return ""
	}
	setpoint := make([]float64, len(samples))
	truth := make([]float64, len(samples))
	for i, s := range samples {
		setpoint[i] = s.Setpoint
		truth[i] = s.Truth
	}
	return asciigraph.PlotMany([][]float64{setpoint, truth},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
		asciigraph.Caption("setpoint (red) vs speed (green)"),
	)
}
