package viewer

import (
	"fmt"
	"time"

	"github.com/san-kum/mesviz/internal/engine"
)

// DefaultMaxFrameDelta bounds dt after a host stall.
const DefaultMaxFrameDelta = 100 * time.Millisecond

type Frame struct {
	Index int
	Time  time.Time
	Delta float64
}

// Driver ticks simulations and draws once per host frame while running.
// Each Start or Resume opens a new generation; callbacks from older
// generations do nothing when they fire.
type Driver struct {
	queue    *FrameQueue
	clock    func() time.Time
	maxDelta time.Duration
	sims     []engine.Simulation
	draw     func(Frame) error
	onError  func(error)

	gen     uint64
	frameID uint64
	running bool
	paused  bool
	last    time.Time
	frames  int
	ticks   int
}

func NewDriver(q *FrameQueue, clock func() time.Time, maxDelta time.Duration, draw func(Frame) error, sims ...engine.Simulation) *Driver {
	if clock == nil {
		clock = time.Now
	}
	if maxDelta <= 0 {
		maxDelta = DefaultMaxFrameDelta
	}
	return &Driver{queue: q, clock: clock, maxDelta: maxDelta, draw: draw, sims: sims}
}

// OnError is called once when a frame fails; the driver has already
// stopped by then.
func (d *Driver) OnError(fn func(error)) { d.onError = fn }

func (d *Driver) Running() bool { return d.running }
func (d *Driver) Paused() bool  { return d.paused }
func (d *Driver) Frames() int   { return d.frames }

// Ticks counts simulation steps, one per frame per simulation.
func (d *Driver) Ticks() int { return d.ticks }

func (d *Driver) Start() {
	if d.running {
		return
	}
	d.running = true
	d.paused = false
	d.last = time.Time{}
	d.schedule()
}

// Pause cancels the pending frame. No ticks accumulate while paused.
func (d *Driver) Pause() {
	if !d.running || d.paused {
		return
	}
	d.paused = true
	d.cancel()
}

// Resume restarts ticking with dt measured from now.
func (d *Driver) Resume() {
	if !d.running || !d.paused {
		return
	}
	d.paused = false
	d.last = d.clock()
	d.schedule()
}

// Stop cancels the pending frame and invalidates any callback already
// collected by the host.
func (d *Driver) Stop() {
	d.running = false
	d.paused = false
	d.cancel()
}

func (d *Driver) cancel() {
	d.gen++
	if d.frameID != 0 {
		d.queue.CancelFrame(d.frameID)
		d.frameID = 0
	}
}

func (d *Driver) schedule() {
	d.gen++
	gen := d.gen
	d.frameID = d.queue.RequestFrame(func(now time.Time) { d.frame(gen, now) })
}

func (d *Driver) frame(gen uint64, now time.Time) {
	if gen != d.gen || !d.running || d.paused {
		return
	}
	d.frameID = 0

	dt := 0.0
	if !d.last.IsZero() {
		delta := now.Sub(d.last)
		if delta > d.maxDelta {
			delta = d.maxDelta
		}
		if delta > 0 {
			dt = delta.Seconds()
		}
	}
	d.last = now

	if err := d.step(Frame{Index: d.frames, Time: now, Delta: dt}); err != nil {
		d.Stop()
		if d.onError != nil {
			d.onError(err)
		}
		return
	}
	d.frames++
	if d.running && !d.paused && gen == d.gen {
		d.schedule()
	}
}

// step runs one frame. A panic in a simulation or draw is converted to an
// error so that only this driver stops.
func (d *Driver) step(f Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame %d panicked: %v", f.Index, r)
		}
	}()
	for _, s := range d.sims {
		s.Tick(f.Delta)
		d.ticks++
	}
	if d.draw != nil {
		return d.draw(f)
	}
	return nil
}
