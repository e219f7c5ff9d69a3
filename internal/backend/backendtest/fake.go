// Package backendtest provides an in-memory host for exercising the engine
// without a real rendering environment.
package backendtest

import (
	"errors"
	"image"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/geom"
)

// ErrInjected is the failure produced by FailNextPresent and FailQuery.
var ErrInjected = errors.New("backendtest: injected fault")

// Host records every context it hands out. The zero value is not usable;
// call New.
type Host struct {
	Info      backend.Info
	FailQuery bool
	FailNew   bool

	Queries   int
	Created   int
	Destroyed int
	contexts  []*Context
}

func New(info backend.Info) *Host {
	if info.Name == "" {
		info.Name = "fake"
	}
	return &Host{Info: info}
}

func (h *Host) Name() string { return h.Info.Name }

func (h *Host) Query() (backend.Info, error) {
	h.Queries++
	if h.FailQuery {
		return backend.Info{}, ErrInjected
	}
	return h.Info, nil
}

func (h *Host) NewContext(cfg backend.ContextConfig) (backend.Context, error) {
	if h.FailNew {
		return nil, ErrInjected
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h.Created++
	c := &Context{host: h, Config: cfg}
	h.contexts = append(h.contexts, c)
	return c, nil
}

// Live is the number of contexts created and not yet destroyed.
func (h *Host) Live() int { return h.Created - h.Destroyed }

// Contexts returns every context created so far, in creation order.
func (h *Host) Contexts() []*Context { return h.contexts }

// Context counts draw calls and can be told to fail its next Present.
type Context struct {
	host   *Host
	Config backend.ContextConfig

	Clears, Lines, Discs, Presents int
	FailNextPresent                bool
	Destroyed                      bool
}

func (c *Context) Size() (int, int) { return c.Config.Width, c.Config.Height }

func (c *Context) Clear(geom.Color)                                             { c.Clears++ }
func (c *Context) Line(float64, float64, float64, float64, float64, geom.Color) { c.Lines++ }
func (c *Context) Disc(float64, float64, float64, geom.Color)                   { c.Discs++ }

func (c *Context) Present() error {
	if c.Destroyed {
		return backend.ErrDestroyed
	}
	if c.FailNextPresent {
		c.FailNextPresent = false
		return ErrInjected
	}
	c.Presents++
	return nil
}

func (c *Context) Capture() (*image.RGBA, error) {
	if c.Destroyed {
		return nil, backend.ErrDestroyed
	}
	return image.NewRGBA(image.Rect(0, 0, c.Config.Width, c.Config.Height)), nil
}

func (c *Context) Destroy() error {
	if c.Destroyed {
		return nil
	}
	c.Destroyed = true
	c.host.Destroyed++
	return nil
}
