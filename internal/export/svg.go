// Package export renders stored runs to standalone files.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/speedpid/internal/dynamo"
)

// Series is one line of a chart.
type Series struct {
	Name   string
	Color  string
	Dashed bool
	Field  func(dynamo.Sample) float64
}

// TrackingSeries are the lines drawn by SamplesToSVG.
var TrackingSeries = []Series{
	{Name: "setpoint", Color: "#ff4444", Field: func(s dynamo.Sample) float64 { return s.Setpoint }},
	{Name: "speed", Color: "#00ff88", Field: func(s dynamo.Sample) float64 { return s.Truth }},
	{Name: "estimate", Color: "#00ccff", Dashed: true, Field: func(s dynamo.Sample) float64 { return s.Measured }},
}

// SamplesToSVG plots the series of a run against time. Dropped samples
// are left out. It returns "" when fewer than two samples remain.
func SamplesToSVG(samples []dynamo.Sample, width, height int, series []Series) string {
	kept := make([]dynamo.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Dropped {
			kept = append(kept, s)
		}
	}
	if len(kept) < 2 || len(series) == 0 {
		return ""
	}

	minT, maxT := kept[0].Time, kept[len(kept)-1].Time
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range kept {
		for _, sr := range series {
			v := sr.Field(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY, maxY = math.Min(minY, v), math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 0) {
		return ""
	}

	rangeT := maxT - minT
	if rangeT == 0 {
		rangeT = 1
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if minY < 0 && minY+rangeY > 0 {
		y0 := float64(height) - (0-minY)/rangeY*float64(height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-width="1"/>
`, y0, width, y0)
	}

	for _, sr := range series {
		dash := ""
		if sr.Dashed {
			dash = ` stroke-dasharray="4 3"`
		}
		fmt.Fprintf(&sb, `<path id="%s" fill="none" stroke="%s" stroke-width="1.5"%s d="`, sr.Name, sr.Color, dash)
		pen := "M"
		for _, s := range kept {
			v := sr.Field(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				pen = "M"
				continue
			}
			x := (s.Time - minT) / rangeT * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			fmt.Fprintf(&sb, "%s%.1f,%.1f ", pen, x, y)
			pen = "L"
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}
