package backend

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/san-kum/mesviz/internal/geom"
)

var (
	// ErrDestroyed is returned by a context used after Destroy.
	ErrDestroyed = errors.New("backend: context destroyed")

	// ErrBufferDiscarded is returned by Capture on a context created without
	// PreserveDrawingBuffer once its frame has been presented.
	ErrBufferDiscarded = errors.New("backend: drawing buffer discarded after present")
)

// Info is what a host reports about its rendering capability.
type Info struct {
	Name           string
	Vendor         string
	Renderer       string
	MaxTextureSize int
	MaxSamples     int
	FloatTextures  bool
	Software       bool
}

// ContextConfig describes a rendering context request.
type ContextConfig struct {
	Label      string
	Width      int
	Height     int
	PixelRatio float64
	Antialias  bool
	// PreserveDrawingBuffer keeps the last presented frame readable so a
	// capture is valid at any frame boundary.
	PreserveDrawingBuffer bool
}

func (c ContextConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("backend: invalid surface size %dx%d", c.Width, c.Height)
	}
	if c.PixelRatio < 0 {
		return fmt.Errorf("backend: negative pixel ratio %f", c.PixelRatio)
	}
	return nil
}

// Host is the capability query surface of a rendering environment.
type Host interface {
	Name() string
	// Query creates a minimal context, inspects it and tears it down.
	Query() (Info, error)
	NewContext(cfg ContextConfig) (Context, error)
}

// Context is one rendering context. Coordinates are logical surface pixels;
// the context applies its pixel ratio internally.
type Context interface {
	Size() (w, h int)
	Clear(c geom.Color)
	Line(x0, y0, x1, y1, width float64, c geom.Color)
	Disc(x, y, r float64, c geom.Color)
	// Present finishes the frame and reports any draw failure since the
	// previous Present.
	Present() error
	Capture() (*image.RGBA, error)
	Destroy() error
}

var hosts = map[string]func() Host{}

// Register makes a host constructor available by name. Later registrations
// under the same name replace earlier ones.
func Register(name string, fn func() Host) {
	hosts[name] = fn
}

// Lookup constructs the host registered under name.
func Lookup(name string) (Host, error) {
	fn, ok := hosts[name]
	if !ok {
		return nil, fmt.Errorf("unknown host: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AutoSelect returns the first candidate whose Query succeeds, falling back
// to the software host.
func AutoSelect(candidates ...Host) Host {
	for _, h := range candidates {
		if h == nil {
			continue
		}
		if _, err := h.Query(); err == nil {
			return h
		}
	}
	return NewSoftware()
}
