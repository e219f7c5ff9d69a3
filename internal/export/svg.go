// Package export renders scenes as SVG documents. The SVG host records
// each frame's primitives as vector elements and rasterizes them with gg
// only when a bitmap capture is asked for.
package export

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/gogpu/gg"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/geom"
)

const svgMaxSurface = 8192

func init() {
	backend.Register("svg", func() backend.Host { return NewSVG() })
}

// SVG is a host whose contexts produce SVG documents.
type SVG struct {
	last *svgContext
}

func NewSVG() *SVG { return &SVG{} }

func (s *SVG) Name() string { return "svg" }

func (s *SVG) Query() (backend.Info, error) {
	return backend.Info{
		Name:           s.Name(),
		Vendor:         "w3c",
		Renderer:       "svg recorder",
		MaxTextureSize: svgMaxSurface,
		MaxSamples:     1,
		Software:       true,
	}, nil
}

func (s *SVG) NewContext(cfg backend.ContextConfig) (backend.Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Width > svgMaxSurface || cfg.Height > svgMaxSurface {
		return nil, fmt.Errorf("export: surface %dx%d exceeds %d", cfg.Width, cfg.Height, svgMaxSurface)
	}
	ctx := &svgContext{cfg: cfg}
	s.last = ctx
	return ctx, nil
}

// Document returns the last presented frame of the newest live context.
func (s *SVG) Document() string {
	if s.last == nil || s.last.destroyed {
		return ""
	}
	return s.last.Document()
}

type primitive struct {
	disc           bool
	x0, y0, x1, y1 float64
	width          float64
	col            geom.Color
}

type svgContext struct {
	cfg       backend.ContextConfig
	bg        geom.Color
	ops       []primitive
	front     []primitive
	frontBG   geom.Color
	presented bool
	destroyed bool
}

func (c *svgContext) Size() (int, int) { return c.cfg.Width, c.cfg.Height }

func (c *svgContext) Clear(col geom.Color) {
	if c.destroyed {
		return
	}
	c.bg = col
	c.ops = c.ops[:0]
}

func (c *svgContext) Line(x0, y0, x1, y1, width float64, col geom.Color) {
	if c.destroyed || col.A <= 0 {
		return
	}
	c.ops = append(c.ops, primitive{x0: x0, y0: y0, x1: x1, y1: y1, width: width, col: col})
}

func (c *svgContext) Disc(x, y, r float64, col geom.Color) {
	if c.destroyed || col.A <= 0 || r <= 0 {
		return
	}
	c.ops = append(c.ops, primitive{disc: true, x0: x, y0: y, width: r, col: col})
}

func (c *svgContext) Present() error {
	if c.destroyed {
		return backend.ErrDestroyed
	}
	c.front = append(c.front[:0], c.ops...)
	c.frontBG = c.bg
	c.presented = true
	return nil
}

// Document serializes the last presented frame.
func (c *svgContext) Document() string {
	return document(c.cfg.Width, c.cfg.Height, c.frontBG, c.front)
}

// Capture rasterizes the last presented frame, or the frame in progress
// when nothing has been presented yet.
func (c *svgContext) Capture() (*image.RGBA, error) {
	if c.destroyed {
		return nil, backend.ErrDestroyed
	}
	ops, bg := c.ops, c.bg
	if c.presented {
		ops, bg = c.front, c.frontBG
	}
	dc := gg.NewContext(c.cfg.Width, c.cfg.Height)
	defer dc.Close()
	dc.ClearWithColor(bg.RGBA())
	for _, p := range ops {
		dc.SetRGBA(p.col.R, p.col.G, p.col.B, p.col.A)
		if p.disc {
			dc.DrawCircle(p.x0, p.y0, p.width)
			if err := dc.Fill(); err != nil {
				return nil, err
			}
			continue
		}
		dc.SetLineWidth(p.width)
		dc.DrawLine(p.x0, p.y0, p.x1, p.y1)
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}
	src := dc.Image()
	b := src.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, src, b.Min, draw.Src)
	return out, nil
}

func (c *svgContext) Destroy() error {
	c.destroyed = true
	c.ops, c.front = nil, nil
	return nil
}

// document writes primitives as one SVG element each, in draw order.
func document(width, height int, bg geom.Color, ops []primitive) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, hex(bg))
	for _, p := range ops {
		if p.disc {
			fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" fill-opacity="%.3f"/>
`, p.x0, p.y0, p.width, hex(p.col), p.col.A)
			continue
		}
		fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-opacity="%.3f" stroke-width="%.2f" stroke-linecap="round"/>
`, p.x0, p.y0, p.x1, p.y1, hex(p.col), p.col.A, p.width)
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func hex(c geom.Color) string {
	n := c.NRGBA()
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
