package viewer

import (
	"errors"
	"fmt"
	"image"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/geom"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/rpool"
	"github.com/san-kum/mesviz/internal/scene"
)

// ErrNotReady is returned by CaptureFrame before a renderer is attached.
var ErrNotReady = errors.New("viewer: renderer not attached")

type State int

const (
	Pending State = iota
	Running
	Paused
	Failed
	Fallback
	Unmounted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	case Fallback:
		return "fallback"
	case Unmounted:
		return "unmounted"
	}
	return "unknown"
}

// Viewer is one mounted model. All methods must be called on the frame
// thread.
type Viewer struct {
	id       string
	engine   *Engine
	surface  Surface
	def      scene.ModelDefinition
	tier     quality.Tier
	settings quality.Settings
	seed     int64

	state   State
	err     error
	message string

	graph  *scene.Graph
	flow   *flow.Simulator
	anim   *biofilm.Animator
	camera *geom.Camera
	driver *Driver

	handle     *rpool.Handle
	poolID     string
	generation int
	cancelWait func()

	ready    bool
	selected string
	drawn    int
	onReady  []func()
	onSelect []func(string)
	onError  []func(error)
}

func (v *Viewer) ID() string                 { return v.id }
func (v *Viewer) State() State               { return v.state }
func (v *Viewer) Tier() quality.Tier         { return v.tier }
func (v *Viewer) Settings() quality.Settings { return v.settings }
func (v *Viewer) Surface() Surface           { return v.surface }
func (v *Viewer) Definition() scene.ModelDefinition {
	return v.def
}

// Err is the reason the viewer is in Fallback or Failed, otherwise nil.
func (v *Viewer) Err() error { return v.err }

// Message explains a fallback viewer to the user.
func (v *Viewer) Message() string { return v.message }

// Graph is nil for fallback viewers.
func (v *Viewer) Graph() *scene.Graph        { return v.graph }
func (v *Viewer) Flow() *flow.Simulator      { return v.flow }
func (v *Viewer) Biofilm() *biofilm.Animator { return v.anim }
func (v *Viewer) Camera() *geom.Camera       { return v.camera }
func (v *Viewer) Selected() string           { return v.selected }

// Frames is the number of frames drawn and presented.
func (v *Viewer) Frames() int { return v.drawn }

// Ticks is the number of simulation steps taken.
func (v *Viewer) Ticks() int {
	if v.driver == nil {
		return 0
	}
	return v.driver.Ticks()
}

// HandleID is the pool id of the current renderer, empty when none.
func (v *Viewer) HandleID() string {
	if v.handle == nil {
		return ""
	}
	return v.handle.ID()
}

// OnReady registers fn to run once the first frame has been presented. If
// that already happened fn runs immediately.
func (v *Viewer) OnReady(fn func()) {
	if v.ready {
		fn()
		return
	}
	v.onReady = append(v.onReady, fn)
}

func (v *Viewer) OnSelect(fn func(partID string)) {
	v.onSelect = append(v.onSelect, fn)
}

// OnError registers fn to run when a frame fails and the viewer stops.
func (v *Viewer) OnError(fn func(error)) {
	v.onError = append(v.onError, fn)
}

func (v *Viewer) build() {
	v.graph = v.engine.composer.Compose(v.def)
	v.camera = geom.NewCamera()
	v.camera.Fit(v.graph.Bounds())

	var sims []engine.Simulation
	if v.def.Flow != nil && !v.graph.Placeholder {
		opts := []flow.Option{flow.WithSeed(v.seed)}
		if v.def.Flow.Kind == flow.ElectronPath {
			opts = append(opts, flow.WithRoute(v.graph.Route))
		}
		v.flow = flow.New(*v.def.Flow, v.graph.FlowDomain, opts...)
		sims = append(sims, v.flow)
	}
	if v.def.Biofilm != nil && !v.graph.Placeholder {
		v.anim = biofilm.NewAnimator(*v.def.Biofilm, biofilmOpacity)
		sims = append(sims, v.anim)
	}
	v.driver = NewDriver(v.engine.queue, v.engine.opts.Clock, v.engine.opts.MaxFrameDelta, v.draw, sims...)
	v.driver.OnError(v.fail)
}

func (v *Viewer) contextConfig() backend.ContextConfig {
	return backend.ContextConfig{
		Label:                 v.poolID,
		Width:                 v.surface.Width,
		Height:                v.surface.Height,
		PixelRatio:            v.settings.PixelRatio(v.surface.PixelRatio),
		Antialias:             v.settings.Antialias,
		PreserveDrawingBuffer: true,
	}
}

func (v *Viewer) acquire() {
	if v.state != Paused {
		v.state = Pending
	}
	v.poolID = v.engine.nextHandleID(v.id)
	cancel := v.engine.pool.Wait(v.poolID, v.contextConfig(), v.attach)
	if v.handle == nil && v.state != Failed {
		v.cancelWait = cancel
	}
}

func (v *Viewer) attach(h *rpool.Handle, err error) {
	v.cancelWait = nil
	if v.state == Unmounted {
		if h != nil {
			_ = h.Close()
		}
		return
	}
	if err != nil {
		v.fail(err)
		return
	}
	v.handle = h
	engine.Logger().Debug("viewer attached", "viewer", v.id, "handle", h.ID())

	if v.state == Paused {
		h.Unref()
		if !v.driver.Running() {
			v.driver.Start()
			v.driver.Pause()
		}
		return
	}
	v.state = Running
	if v.driver.Running() && v.driver.Paused() {
		v.driver.Resume()
	} else {
		v.driver.Start()
	}
}

// fail stops this viewer only: the driver halts and the renderer goes back
// to the pool. Sibling viewers keep running.
func (v *Viewer) fail(err error) {
	var re *engine.RenderError
	if !errors.As(err, &re) {
		err = &engine.RenderError{Viewer: v.id, Frame: v.drawn, Wrapped: err}
	}
	v.driver.Stop()
	v.releaseHandle()
	v.state = Failed
	v.err = err
	engine.Logger().Warn("viewer failed", "viewer", v.id, "err", err)
	for _, fn := range v.onError {
		fn(err)
	}
}

func (v *Viewer) releaseHandle() {
	if v.cancelWait != nil {
		v.cancelWait()
		v.cancelWait = nil
	}
	if v.handle != nil {
		_ = v.handle.Close()
		v.handle = nil
	}
}

// Retry restarts a failed viewer with a new renderer. Fallback viewers are
// never retried.
func (v *Viewer) Retry() error {
	switch v.state {
	case Unmounted:
		return engine.ErrUnmounted
	case Fallback:
		return engine.ErrCapability
	case Failed:
	default:
		return nil
	}
	v.generation++
	v.err = nil
	engine.Logger().Info("viewer retry", "viewer", v.id, "generation", v.generation)
	v.acquire()
	return nil
}

// Pause stops ticking and lets the pool evict the renderer if another
// viewer needs it.
func (v *Viewer) Pause() {
	switch v.state {
	case Running:
		v.driver.Pause()
		v.state = Paused
		if v.handle != nil {
			v.handle.Unref()
		}
	case Pending:
		v.state = Paused
	}
}

// Resume continues ticking with dt measured from the moment of resume.
func (v *Viewer) Resume() {
	if v.state != Paused {
		return
	}
	if v.handle == nil {
		v.state = Pending
		if v.cancelWait == nil {
			v.acquire()
		}
		return
	}
	if v.handle.State() != rpool.Acquired {
		// evicted while paused
		v.handle = nil
		v.generation++
		v.state = Pending
		v.acquire()
		return
	}
	h, err := v.engine.pool.Acquire(v.handle.ID(), v.contextConfig())
	if err != nil {
		v.fail(err)
		return
	}
	v.handle = h
	v.state = Running
	v.driver.Resume()
}

// Unmount cancels the pending frame and releases the renderer in one step.
// Nothing of this viewer runs afterwards. Calling it again is a no-op.
func (v *Viewer) Unmount() {
	if v.state == Unmounted {
		return
	}
	if v.driver != nil {
		v.driver.Stop()
	}
	v.releaseHandle()
	v.state = Unmounted
	v.onReady, v.onSelect, v.onError = nil, nil, nil
	delete(v.engine.viewers, v.id)
	engine.Logger().Info("viewer unmounted", "viewer", v.id)
}

// CaptureFrame returns the last presented frame. The renderer keeps its
// drawing buffer, so this is valid between frames and while paused.
func (v *Viewer) CaptureFrame() (*image.RGBA, error) {
	switch v.state {
	case Unmounted:
		return nil, engine.ErrUnmounted
	case Fallback:
		return nil, engine.ErrCapability
	}
	if v.handle == nil || v.handle.Context() == nil {
		return nil, ErrNotReady
	}
	return v.handle.Context().Capture()
}

// Select marks a part as selected and notifies OnSelect callbacks.
func (v *Viewer) Select(partID string) error {
	if v.graph == nil {
		return ErrNotReady
	}
	if _, ok := v.graph.Find(partID); !ok {
		return fmt.Errorf("viewer %s: unknown part %q", v.id, partID)
	}
	v.selected = partID
	for _, fn := range v.onSelect {
		fn(partID)
	}
	return nil
}

func (v *Viewer) ClearSelection() { v.selected = "" }
