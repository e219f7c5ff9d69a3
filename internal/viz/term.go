package viz

import (
	"image"
	"math"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/geom"
)

// termMaxDots bounds one side of a terminal surface. It keeps the host in
// the basic tier.
const termMaxDots = 2048

func init() {
	backend.Register("terminal", func() backend.Host { return NewTermHost() })
}

// TermHost renders into braille canvases. One surface pixel is one dot, so
// a surface of W x H pixels occupies ceil(W/2) x ceil(H/4) terminal cells.
type TermHost struct {
	last *termContext
}

func NewTermHost() *TermHost { return &TermHost{} }

func (h *TermHost) Name() string { return "terminal" }

func (h *TermHost) Query() (backend.Info, error) {
	probe := NewCanvas(1, 1)
	probe.Set(0, 0, geom.White)
	return backend.Info{
		Name:           h.Name(),
		Vendor:         "unicode",
		Renderer:       "braille canvas",
		MaxTextureSize: termMaxDots,
		MaxSamples:     0,
		Software:       true,
	}, nil
}

func (h *TermHost) NewContext(cfg backend.ContextConfig) (backend.Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, hh := min(cfg.Width, termMaxDots), min(cfg.Height, termMaxDots)
	ctx := &termContext{
		host:   h,
		cfg:    cfg,
		canvas: NewCanvas((w+1)/2, (hh+3)/4),
	}
	h.last = ctx
	return ctx, nil
}

// Frame returns the most recently presented frame of the newest live
// context, or "" when there is none.
func (h *TermHost) Frame() string {
	if h.last == nil || h.last.destroyed || h.last.front == nil {
		return ""
	}
	return h.last.front.Render()
}

// Canvas returns the presented canvas of the newest live context.
func (h *TermHost) Canvas() *Canvas {
	if h.last == nil || h.last.destroyed {
		return nil
	}
	return h.last.front
}

type termContext struct {
	host      *TermHost
	cfg       backend.ContextConfig
	canvas    *Canvas
	front     *Canvas
	bg        geom.Color
	destroyed bool
}

func (c *termContext) Size() (int, int) { return c.cfg.Width, c.cfg.Height }

func (c *termContext) Clear(col geom.Color) {
	if c.destroyed {
		return
	}
	c.bg = col
	c.canvas.Clear()
}

func (c *termContext) Line(x0, y0, x1, y1, width float64, col geom.Color) {
	if c.destroyed || col.A <= 0 {
		return
	}
	if !finite(x0, y0, x1, y1) {
		return
	}
	c.canvas.DrawLine(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)), col)
}

func (c *termContext) Disc(x, y, r float64, col geom.Color) {
	if c.destroyed || col.A <= 0 || !finite(x, y, r, 0) {
		return
	}
	c.canvas.FillDisc(x, y, r, col)
}

func (c *termContext) Present() error {
	if c.destroyed {
		return backend.ErrDestroyed
	}
	c.front = c.canvas.Copy()
	if c.host != nil && c.host.last != c && (c.host.last == nil || c.host.last.destroyed) {
		c.host.last = c
	}
	return nil
}

// Capture rasterizes the presented dots, one image pixel per dot.
func (c *termContext) Capture() (*image.RGBA, error) {
	if c.destroyed {
		return nil, backend.ErrDestroyed
	}
	src := c.front
	if src == nil || !c.cfg.PreserveDrawingBuffer {
		src = c.canvas
	}
	w, h := src.Dots()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := c.bg.NRGBA()
	bg.A = 255
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !src.Lit(x, y) {
				img.Set(x, y, bg)
				continue
			}
			px := src.At(x, y).NRGBA()
			px.A = 255
			img.Set(x, y, px)
		}
	}
	return img, nil
}

func (c *termContext) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	c.front = nil
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
