package geom

import (
	"image/color"

	"github.com/gogpu/gg"
)

// Color is a straight-alpha RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// ParseColor accepts "#RGB", "#RGBA", "#RRGGBB" and "#RRGGBBAA" (leading '#'
// optional). Anything else parses to opaque black.
func ParseColor(s string) Color {
	c := gg.Hex(s)
	return Color{c.R, c.G, c.B, c.A}
}

func (c Color) WithAlpha(a float64) Color {
	c.A = clamp(a, 0, 1)
	return c
}

// Brighten scales the RGB channels by f, saturating at 1.
func (c Color) Brighten(f float64) Color {
	return Color{clamp(c.R*f, 0, 1), clamp(c.G*f, 0, 1), clamp(c.B*f, 0, 1), c.A}
}

func (c Color) RGBA() gg.RGBA { return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp(c.R, 0, 1) * 255),
		G: uint8(clamp(c.G, 0, 1) * 255),
		B: uint8(clamp(c.B, 0, 1) * 255),
		A: uint8(clamp(c.A, 0, 1) * 255),
	}
}

var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
	Gray  = Color{0.5, 0.5, 0.5, 1}
)
