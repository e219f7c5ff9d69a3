package viewer

import (
	"fmt"
	"time"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/rpool"
	"github.com/san-kum/mesviz/internal/scene"
)

type Options struct {
	Host          backend.Host
	Capacity      int
	Seed          int64
	MaxFrameDelta time.Duration
	// Quality caps every viewer's tier. Zero value means no cap.
	Quality  *quality.Tier
	Clock    func() time.Time
	Queue    *FrameQueue
	Observer metrics.Observer
}

// Surface is where a viewer draws. Width and Height are logical pixels.
type Surface struct {
	ID         string
	Width      int
	Height     int
	PixelRatio float64
}

// Engine owns the resources shared by all viewers on one host: the
// renderer pool, the probed tier, the frame queue and the biofilm memo.
type Engine struct {
	opts     Options
	host     backend.Host
	pool     *rpool.Pool
	prober   *quality.Prober
	queue    *FrameQueue
	composer *scene.Composer
	viewers  map[string]*Viewer
	seq      int
	handles  int
}

// nextHandleID returns a pool id never used before by this engine. The
// pool refuses released ids, so a remounted surface, a retry and a
// reacquisition after eviction all need a fresh one.
func (e *Engine) nextHandleID(viewerID string) string {
	e.handles++
	return fmt.Sprintf("%s#%d", viewerID, e.handles)
}

func New(opts Options) *Engine {
	if opts.Host == nil {
		opts.Host = backend.NewSoftware()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Queue == nil {
		opts.Queue = NewFrameQueue()
	}
	if opts.MaxFrameDelta <= 0 {
		opts.MaxFrameDelta = DefaultMaxFrameDelta
	}
	return &Engine{
		opts:     opts,
		host:     opts.Host,
		pool:     rpool.New(opts.Host, opts.Capacity),
		prober:   quality.NewProber(),
		queue:    opts.Queue,
		composer: scene.NewComposer(biofilm.NewGenerator(opts.Seed)),
		viewers:  make(map[string]*Viewer),
	}
}

func (e *Engine) Host() backend.Host        { return e.host }
func (e *Engine) Pool() *rpool.Pool         { return e.pool }
func (e *Engine) Queue() *FrameQueue        { return e.queue }
func (e *Engine) Composer() *scene.Composer { return e.composer }

// Tier is the probed tier of the host, probing on first use.
func (e *Engine) Tier() quality.Tier { return e.prober.Tier(e.host) }

// Reprobe forgets the probed tier. Mounted viewers keep their settings.
func (e *Engine) Reprobe() quality.Tier { return e.prober.Reprobe(e.host) }

// Viewers returns mounted viewers in no particular order.
func (e *Engine) Viewers() []*Viewer {
	out := make([]*Viewer, 0, len(e.viewers))
	for _, v := range e.viewers {
		out = append(out, v)
	}
	return out
}

// Flush runs one host frame at the engine clock.
func (e *Engine) Flush() int { return e.queue.Flush(e.opts.Clock()) }

type MountOption func(*mountConfig)

type mountConfig struct {
	quality *quality.Tier
}

// WithQuality lowers the viewer's tier to at most t. It never raises it
// above what the host supports.
func WithQuality(t quality.Tier) MountOption {
	return func(c *mountConfig) { c.quality = &t }
}

// Mount composes def onto surface. A host without a usable context yields
// a fallback viewer and no renderer is requested. If the pool is full the
// viewer waits in Pending until a context frees up.
func (e *Engine) Mount(surface Surface, def scene.ModelDefinition, opts ...MountOption) (*Viewer, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	var mc mountConfig
	for _, o := range opts {
		o(&mc)
	}

	e.seq++
	id := surface.ID
	if id == "" {
		id = fmt.Sprintf("viewer-%d", e.seq)
	}
	if _, dup := e.viewers[id]; dup {
		return nil, &engine.ConfigError{Field: "surface.id", Message: fmt.Sprintf("%q already mounted", id)}
	}

	probed := e.Tier()
	tier := probed
	if e.opts.Quality != nil {
		tier = tier.Cap(*e.opts.Quality)
	}
	if mc.quality != nil {
		tier = tier.Cap(*mc.quality)
	}

	v := &Viewer{
		id:      id,
		engine:  e,
		surface: surface,
		def:     def,
		tier:    tier,
		seed:    e.opts.Seed + int64(e.seq),
	}
	e.viewers[id] = v

	if tier == quality.None {
		v.state = Fallback
		v.err = engine.ErrCapability
		v.message = fallbackMessage(probed)
		engine.Logger().Warn("viewer mounted in fallback", "viewer", id, "host", e.host.Name(), "probed", probed)
		return v, nil
	}

	v.settings = quality.Adapt(tier)
	v.build()
	engine.Logger().Info("viewer mounted", "viewer", id, "model", def.Title(), "tier", tier)
	v.acquire()
	return v, nil
}

func fallbackMessage(probed quality.Tier) string {
	if probed == quality.None {
		return "3D view unavailable: this display has no usable rendering context"
	}
	return "3D view disabled by quality setting"
}

// Unmount tears v down. Equivalent to v.Unmount().
func (e *Engine) Unmount(v *Viewer) {
	if v != nil {
		v.Unmount()
	}
}

// Close unmounts every viewer and releases the pool.
func (e *Engine) Close() {
	for _, v := range e.viewers {
		v.Unmount()
	}
	e.pool.Close()
}

func (e *Engine) observe(f metrics.Frame) {
	if e.opts.Observer != nil {
		e.opts.Observer.ObserveFrame(f)
	}
}
