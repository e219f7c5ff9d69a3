// Package rpool bounds and reuses scarce rendering contexts across viewers.
//
// A Pool is mutated only from the frame thread and is NOT safe for
// concurrent use.
package rpool

import (
	"errors"
	"fmt"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/engine"
)

// DefaultCapacity matches the context limit of common browser hosts.
const DefaultCapacity = 8

// ErrClosed is delivered to waiters still queued when the pool closes.
var ErrClosed = errors.New("rpool: pool closed")

type Stats struct {
	Capacity  int
	Live      int
	Idle      int
	Pending   int
	Acquired  uint64
	Reused    uint64
	Released  uint64
	Evicted   uint64
	Exhausted uint64
}

type waiter struct {
	id        string
	cfg       backend.ContextConfig
	fn        func(*Handle, error)
	cancelled bool
}

type Pool struct {
	host     backend.Host
	capacity int
	live     map[string]*Handle
	released map[string]struct{}
	waiters  []*waiter
	serving  bool
	clock    uint64
	stats    Stats
}

func New(host backend.Host, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		host:     host,
		capacity: capacity,
		live:     make(map[string]*Handle),
		released: make(map[string]struct{}),
	}
}

func (p *Pool) Capacity() int { return p.capacity }
func (p *Pool) Live() int     { return len(p.live) }
func (p *Pool) Pending() int  { return len(p.waiters) }

// Has reports whether any context is attributed to id.
func (p *Pool) Has(id string) bool {
	_, ok := p.live[id]
	return ok
}

// Handle returns the live handle for id, if any.
func (p *Pool) Handle(id string) (*Handle, bool) {
	h, ok := p.live[id]
	return h, ok
}

func (p *Pool) Stats() Stats {
	s := p.stats
	s.Capacity = p.capacity
	s.Live = len(p.live)
	s.Pending = len(p.waiters)
	for _, h := range p.live {
		if h.Idle() {
			s.Idle++
		}
	}
	return s
}

// Acquire returns the live handle for id with one more reference, or
// creates one. At capacity the least recently used idle handle is evicted;
// with none idle the call fails with engine.ErrResourceExhausted.
// A released id cannot be acquired again.
func (p *Pool) Acquire(id string, cfg backend.ContextConfig) (*Handle, error) {
	if _, dead := p.released[id]; dead {
		return nil, fmt.Errorf("acquire %s: %w", id, engine.ErrHandleReleased)
	}
	if h, ok := p.live[id]; ok {
		h.refs++
		p.touch(h)
		p.stats.Reused++
		return h, nil
	}

	if len(p.live) >= p.capacity {
		victim := p.lruIdle()
		if victim == nil {
			p.stats.Exhausted++
			engine.Logger().Debug("renderer pool exhausted", "id", id, "capacity", p.capacity)
			return nil, fmt.Errorf("acquire %s: %w", id, engine.ErrResourceExhausted)
		}
		p.stats.Evicted++
		engine.Logger().Warn("evicting idle renderer", "victim", victim.id, "for", id)
		p.drop(victim)
	}

	cfg.Label = id
	ctx, err := p.host.NewContext(cfg)
	if err != nil {
		return nil, &engine.RenderError{Viewer: id, Wrapped: err}
	}

	h := &Handle{id: id, pool: p, cfg: cfg, ctx: ctx, refs: 1, state: Acquired}
	p.live[id] = h
	p.touch(h)
	p.stats.Acquired++
	engine.Logger().Debug("renderer acquired", "id", id, "live", len(p.live))
	return h, nil
}

// Release destroys the context attributed to id. Releasing an unknown or
// already released id is a no-op.
func (p *Pool) Release(id string) {
	h, ok := p.live[id]
	if !ok {
		return
	}
	p.stats.Released++
	p.drop(h)
	engine.Logger().Debug("renderer released", "id", id, "live", len(p.live))
	p.serveWaiters()
}

// Wait acquires id now if possible; otherwise queues the request and
// serves it in FIFO order once capacity frees up. fn runs exactly once
// unless the returned cancel func is called first.
func (p *Pool) Wait(id string, cfg backend.ContextConfig, fn func(*Handle, error)) (cancel func()) {
	h, err := p.Acquire(id, cfg)
	if !errors.Is(err, engine.ErrResourceExhausted) {
		fn(h, err)
		return func() {}
	}
	w := &waiter{id: id, cfg: cfg, fn: fn}
	p.waiters = append(p.waiters, w)
	engine.Logger().Debug("renderer request queued", "id", id, "pending", len(p.waiters))
	return func() {
		if w.cancelled {
			return
		}
		w.cancelled = true
		for i, q := range p.waiters {
			if q == w {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
	}
}

// Close releases every live handle and fails every queued waiter.
func (p *Pool) Close() {
	waiters := p.waiters
	p.waiters = nil
	for _, w := range waiters {
		if !w.cancelled {
			w.cancelled = true
			w.fn(nil, ErrClosed)
		}
	}
	for _, h := range p.live {
		p.stats.Released++
		p.drop(h)
	}
}

func (p *Pool) serveWaiters() {
	if p.serving {
		return
	}
	p.serving = true
	defer func() { p.serving = false }()

	for len(p.waiters) > 0 {
		w := p.waiters[0]
		h, err := p.Acquire(w.id, w.cfg)
		if errors.Is(err, engine.ErrResourceExhausted) {
			return
		}
		p.waiters = p.waiters[1:]
		w.cancelled = true
		w.fn(h, err)
	}
}

// drop destroys h's context and marks its id dead.
func (p *Pool) drop(h *Handle) {
	if h.ctx != nil {
		if err := h.ctx.Destroy(); err != nil {
			engine.Logger().Warn("renderer destroy failed", "id", h.id, "err", err)
		}
	}
	h.ctx = nil
	h.refs = 0
	h.state = Released
	delete(p.live, h.id)
	p.released[h.id] = struct{}{}
}

func (p *Pool) touch(h *Handle) {
	p.clock++
	h.lastUse = p.clock
}

func (p *Pool) lruIdle() *Handle {
	var victim *Handle
	for _, h := range p.live {
		if h.refs != 0 {
			continue
		}
		if victim == nil || h.lastUse < victim.lastUse {
			victim = h
		}
	}
	return victim
}
