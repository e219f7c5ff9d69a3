package backend

import (
	"image"
	"image/draw"
	"math"

	"github.com/gogpu/gg"
	"github.com/san-kum/mesviz/internal/geom"
)

const softwareMaxSurface = 4096

func init() {
	Register("software", func() Host { return NewSoftware() })
}

// Software rasterizes on the CPU with gogpu/gg. It is always available and
// reports itself as a software renderer.
type Software struct{}

func NewSoftware() *Software { return &Software{} }

func (s *Software) Name() string { return "software" }

func (s *Software) Query() (Info, error) {
	dc := gg.NewContext(1, 1)
	defer dc.Close()
	return Info{
		Name:           s.Name(),
		Vendor:         "gogpu",
		Renderer:       "gg software rasterizer",
		MaxTextureSize: softwareMaxSurface,
		MaxSamples:     1,
		Software:       true,
	}, nil
}

func (s *Software) NewContext(cfg ContextConfig) (Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ratio := cfg.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	pw := min(int(math.Ceil(float64(cfg.Width)*ratio)), softwareMaxSurface)
	ph := min(int(math.Ceil(float64(cfg.Height)*ratio)), softwareMaxSurface)

	dc := gg.NewContext(pw, ph)
	dc.Scale(float64(pw)/float64(cfg.Width), float64(ph)/float64(cfg.Height))
	return &softwareContext{cfg: cfg, dc: dc}, nil
}

type softwareContext struct {
	cfg       ContextConfig
	dc        *gg.Context
	front     *image.RGBA
	presented bool
	err       error
	destroyed bool
}

func (c *softwareContext) Size() (int, int) { return c.cfg.Width, c.cfg.Height }

func (c *softwareContext) snap(v float64) float64 {
	if c.cfg.Antialias {
		return v
	}
	return math.Floor(v) + 0.5
}

func (c *softwareContext) Clear(col geom.Color) {
	if c.destroyed {
		return
	}
	c.presented = false
	c.dc.ClearWithColor(col.RGBA())
}

func (c *softwareContext) Line(x0, y0, x1, y1, width float64, col geom.Color) {
	if c.destroyed {
		return
	}
	c.presented = false
	c.dc.SetRGBA(col.R, col.G, col.B, col.A)
	c.dc.SetLineWidth(width)
	c.dc.DrawLine(c.snap(x0), c.snap(y0), c.snap(x1), c.snap(y1))
	if err := c.dc.Stroke(); err != nil && c.err == nil {
		c.err = err
	}
}

func (c *softwareContext) Disc(x, y, r float64, col geom.Color) {
	if c.destroyed {
		return
	}
	c.presented = false
	c.dc.SetRGBA(col.R, col.G, col.B, col.A)
	c.dc.DrawCircle(c.snap(x), c.snap(y), r)
	if err := c.dc.Fill(); err != nil && c.err == nil {
		c.err = err
	}
}

func (c *softwareContext) Present() error {
	if c.destroyed {
		return ErrDestroyed
	}
	err := c.err
	c.err = nil
	if c.cfg.PreserveDrawingBuffer {
		c.front = toRGBA(c.dc.Image(), c.front)
	}
	c.presented = true
	return err
}

func (c *softwareContext) Capture() (*image.RGBA, error) {
	if c.destroyed {
		return nil, ErrDestroyed
	}
	if c.cfg.PreserveDrawingBuffer {
		if c.front == nil {
			return toRGBA(c.dc.Image(), nil), nil
		}
		return toRGBA(c.front, nil), nil
	}
	if c.presented {
		return nil, ErrBufferDiscarded
	}
	return toRGBA(c.dc.Image(), nil), nil
}

func (c *softwareContext) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	c.front = nil
	return c.dc.Close()
}

// toRGBA copies src into dst, reallocating dst when its bounds differ.
func toRGBA(src image.Image, dst *image.RGBA) *image.RGBA {
	b := src.Bounds()
	if dst == nil || dst.Bounds() != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
