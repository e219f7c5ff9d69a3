package rpool

import "github.com/san-kum/mesviz/internal/backend"

// State is the lifecycle state of a handle. Released is terminal.
type State int

const (
	Uninitialized State = iota
	Acquired
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Acquired:
		return "acquired"
	case Released:
		return "released"
	}
	return "unknown"
}

// Handle is one pooled rendering context, keyed by viewer identity.
type Handle struct {
	id      string
	pool    *Pool
	cfg     backend.ContextConfig
	ctx     backend.Context
	refs    int
	state   State
	lastUse uint64
}

func (h *Handle) ID() string                    { return h.id }
func (h *Handle) State() State                  { return h.state }
func (h *Handle) RefCount() int                 { return h.refs }
func (h *Handle) Config() backend.ContextConfig { return h.cfg }

// Context returns the live rendering context, or nil once released.
func (h *Handle) Context() backend.Context {
	if h.state != Acquired {
		return nil
	}
	return h.ctx
}

// Idle reports whether the handle is live but unreferenced, and so
// evictable.
func (h *Handle) Idle() bool { return h.state == Acquired && h.refs == 0 }

// Unref drops one reference. A handle at zero references keeps its context
// until it is reacquired, released or evicted.
func (h *Handle) Unref() {
	if h.state != Acquired || h.refs == 0 {
		return
	}
	h.refs--
	if h.refs == 0 {
		h.pool.touch(h)
		h.pool.serveWaiters()
	}
}

// Close releases the handle back to the pool, destroying its context.
// Safe to call more than once.
func (h *Handle) Close() error {
	h.pool.Release(h.id)
	return nil
}
