package quality

import (
	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/engine"
)

// Probe asks the host for a minimal context and classifies what it reports.
// Any failure yields None; Probe never returns an error.
func Probe(h backend.Host) (tier Tier) {
	if h == nil {
		return None
	}
	defer func() {
		if r := recover(); r != nil {
			engine.Logger().Warn("capability probe panicked", "host", h.Name(), "panic", r)
			tier = None
		}
	}()

	info, err := h.Query()
	if err != nil {
		engine.Logger().Warn("capability probe failed", "host", h.Name(), "err", err)
		return None
	}
	tier = Classify(info)
	engine.Logger().Info("capability probed", "host", h.Name(), "renderer", info.Renderer, "tier", tier)
	return tier
}

// Classify maps a host report to a tier.
func Classify(info backend.Info) Tier {
	switch {
	case info.MaxTextureSize <= 0:
		return None
	case info.Software:
		return Basic
	case info.MaxTextureSize >= 8192 && info.MaxSamples >= 4 && info.FloatTextures:
		return Full
	case info.MaxTextureSize >= 4096:
		return Standard
	default:
		return Basic
	}
}

// Prober probes each host once and remembers the answer for the session.
type Prober struct {
	tiers map[string]Tier
}

func NewProber() *Prober {
	return &Prober{tiers: make(map[string]Tier)}
}

func (p *Prober) Tier(h backend.Host) Tier {
	if h == nil {
		return None
	}
	if t, ok := p.tiers[h.Name()]; ok {
		return t
	}
	t := Probe(h)
	p.tiers[h.Name()] = t
	return t
}

// Reprobe discards the remembered tier for h and probes again.
func (p *Prober) Reprobe(h backend.Host) Tier {
	if h != nil {
		delete(p.tiers, h.Name())
	}
	return p.Tier(h)
}
