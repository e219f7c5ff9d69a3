package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/mesviz/internal/geom"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Dot coordinates run over
// (Width*2) x (Height*4); each cell keeps the colour last drawn into it.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Tint          [][]geom.Color
}

func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 1), max(h, 1)
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Tint:   make([][]geom.Color, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Tint[i] = make([]geom.Color, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row, col, true
}

// Set lights the dot at (x, y) in colour col.
func (c *Canvas) Set(x, y int, col geom.Color) {
	row, cl, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][cl] |= rune(pixelMap[y%4][x%2])
	c.Tint[row][cl] = col
}

func (c *Canvas) Unset(x, y int) {
	row, cl, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][cl] &^= rune(pixelMap[y%4][x%2])
	if c.Grid[row][cl] < blank {
		c.Grid[row][cl] = blank
	}
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	row, cl, ok := c.cell(x, y)
	if !ok {
		return false
	}
	return c.Grid[row][cl]&rune(pixelMap[y%4][x%2]) != 0
}

// At returns the colour of the cell holding dot (x, y).
func (c *Canvas) At(x, y int) geom.Color {
	row, cl, ok := c.cell(x, y)
	if !ok {
		return geom.Color{}
	}
	return c.Tint[row][cl]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Tint[i][j] = geom.Color{}
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col geom.Color) {
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
		c.Set(x0, y0, col)
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

// FillDisc lights every dot within r of (cx, cy). A radius under one dot
// still lights the centre.
func (c *Canvas) FillDisc(cx, cy, r float64, col geom.Color) {
	x0, y0 := int(math.Round(cx)), int(math.Round(cy))
	ri := int(math.Ceil(r))
	if ri <= 0 {
		c.Set(x0, y0, col)
		return
	}
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= r*r {
				c.Set(x0+dx, y0+dy, col)
			}
		}
	}
}

// Copy returns an independent copy of c.
func (c *Canvas) Copy() *Canvas {
	out := &Canvas{Width: c.Width, Height: c.Height, Grid: make([][]rune, c.Height), Tint: make([][]geom.Color, c.Height)}
	for i := range c.Grid {
		out.Grid[i] = append([]rune(nil), c.Grid[i]...)
		out.Tint[i] = append([]geom.Color(nil), c.Tint[i]...)
	}
	return out
}

// String renders the dots without colour.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render renders the dots with each run of equally tinted cells wrapped in
// one lipgloss style.
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, row := range c.Grid {
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && c.Tint[i][j] == c.Tint[i][start] {
				continue
			}
			run := string(row[start:j])
			if tint := c.Tint[i][start]; tint.A > 0 {
				run = lipgloss.NewStyle().Foreground(hexColor(tint)).Render(run)
			}
			b.WriteString(run)
			start = j
		}
		if i < len(c.Grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hexColor(col geom.Color) lipgloss.Color {
	n := col.NRGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
