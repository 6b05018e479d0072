package viz

import (
	"math"
	"strings"
)

// Braille patterns are 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille-dot raster. Its resolution is (Width*2) x (Height*4)
// dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Point is a position in world coordinates.
type Point struct{ X, Y float64 }

// DrawPath clears the canvas and draws the polyline through pts, scaled
// to fit with equal axes. The last point is marked with a heading tick of
// length one cell in direction theta.
func (c *Canvas) DrawPath(pts []Point, theta float64) {
	c.Clear()
	if len(pts) == 0 {
		return
	}

	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	span := math.Max(math.Max(maxX-minX, maxY-minY), 1)
	scale := math.Min(w, h) / span
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	project := func(p Point) (int, int) {
		x := w/2 + (p.X-cx)*scale
		y := h/2 - (p.Y-cy)*scale
		return int(math.Round(x)), int(math.Round(y))
	}

	px, py := project(pts[0])
	for _, p := range pts[1:] {
		x, y := project(p)
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}
	hx := px + int(math.Round(4*math.Cos(theta)))
	hy := py - int(math.Round(4*math.Sin(theta)))
	c.DrawLine(px, py, hx, hy)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
