package gui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/geom"
)

// ErrNoWindow is returned by a host whose window has not been opened.
var ErrNoWindow = errors.New("gui: window not open")

func init() {
	backend.Register("raylib", func() backend.Host { return NewHost() })
}

// Host renders into raylib render textures on the window's OpenGL
// context. Each rendering context is one offscreen texture.
type Host struct {
	glReady bool
	last    *glContext
}

func NewHost() *Host { return &Host{} }

func (h *Host) Name() string { return "raylib" }

// Query reads the limits of the current OpenGL context.
func (h *Host) Query() (backend.Info, error) {
	if !rl.IsWindowReady() {
		return backend.Info{}, ErrNoWindow
	}
	if !h.glReady {
		if err := gl.Init(); err != nil {
			return backend.Info{}, fmt.Errorf("failed to init opengl: %w", err)
		}
		h.glReady = true
	}
	var maxTex, maxSamples, major int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	gl.GetIntegerv(gl.MAX_SAMPLES, &maxSamples)
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	renderer := gl.GoStr(gl.GetString(gl.RENDERER))
	return backend.Info{
		Name:           h.Name(),
		Vendor:         gl.GoStr(gl.GetString(gl.VENDOR)),
		Renderer:       renderer,
		MaxTextureSize: int(maxTex),
		MaxSamples:     int(maxSamples),
		FloatTextures:  major >= 3,
		Software:       isSoftwareRenderer(renderer),
	}, nil
}

func (h *Host) NewContext(cfg backend.ContextConfig) (backend.Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !rl.IsWindowReady() {
		return nil, ErrNoWindow
	}
	ratio := cfg.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	pw := int32(math.Ceil(float64(cfg.Width) * ratio))
	ph := int32(math.Ceil(float64(cfg.Height) * ratio))
	rt := rl.LoadRenderTexture(pw, ph)
	if rt.ID == 0 {
		return nil, fmt.Errorf("gui: render texture %dx%d not created", pw, ph)
	}
	ctx := &glContext{host: h, cfg: cfg, rt: rt, scale: float32(ratio)}
	h.last = ctx
	return ctx, nil
}

// Texture returns the render texture of the newest live context.
func (h *Host) Texture() (rl.RenderTexture2D, bool) {
	if h.last == nil || h.last.destroyed || !h.last.presented {
		return rl.RenderTexture2D{}, false
	}
	return h.last.rt, true
}

// isSoftwareRenderer matches the Mesa CPU rasterizers.
func isSoftwareRenderer(name string) bool {
	for _, sw := range []string{"llvmpipe", "softpipe", "swrast", "SwiftShader"} {
		if strings.Contains(strings.ToLower(name), strings.ToLower(sw)) {
			return true
		}
	}
	return false
}

type glContext struct {
	host      *Host
	cfg       backend.ContextConfig
	rt        rl.RenderTexture2D
	scale     float32
	drawing   bool
	presented bool
	destroyed bool
}

func (c *glContext) Size() (int, int) { return c.cfg.Width, c.cfg.Height }

func (c *glContext) begin() {
	if !c.drawing {
		rl.BeginTextureMode(c.rt)
		c.drawing = true
	}
}

func (c *glContext) Clear(col geom.Color) {
	if c.destroyed {
		return
	}
	c.begin()
	rl.ClearBackground(toColor(col))
}

func (c *glContext) Line(x0, y0, x1, y1, width float64, col geom.Color) {
	if c.destroyed {
		return
	}
	c.begin()
	rl.DrawLineEx(c.point(x0, y0), c.point(x1, y1), float32(width)*c.scale, toColor(col))
}

func (c *glContext) Disc(x, y, r float64, col geom.Color) {
	if c.destroyed {
		return
	}
	c.begin()
	rl.DrawCircleV(c.point(x, y), float32(r)*c.scale, toColor(col))
}

func (c *glContext) point(x, y float64) rl.Vector2 {
	return rl.NewVector2(float32(x)*c.scale, float32(y)*c.scale)
}

func (c *glContext) Present() error {
	if c.destroyed {
		return backend.ErrDestroyed
	}
	if c.drawing {
		rl.EndTextureMode()
		c.drawing = false
	}
	c.presented = true
	if c.rt.ID == 0 {
		return fmt.Errorf("gui: render texture lost")
	}
	return nil
}

// Capture reads the texture back. Render textures keep their contents
// after Present, so the last frame is always readable.
func (c *glContext) Capture() (*image.RGBA, error) {
	if c.destroyed {
		return nil, backend.ErrDestroyed
	}
	img := rl.LoadImageFromTexture(c.rt.Texture)
	defer rl.UnloadImage(img)
	rl.ImageFlipVertical(img)
	src := img.ToImage()
	b := src.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, src, b.Min, draw.Src)
	return out, nil
}

func (c *glContext) Destroy() error {
	if c.destroyed {
		return nil
	}
	if c.drawing {
		rl.EndTextureMode()
		c.drawing = false
	}
	c.destroyed = true
	rl.UnloadRenderTexture(c.rt)
	return nil
}

func toColor(c geom.Color) color.RGBA {
	n := c.NRGBA()
	return rl.NewColor(n.R, n.G, n.B, n.A)
}
