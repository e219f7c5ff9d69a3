package viewer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/mesviz/internal/engine"
)

type fakeClock struct{ t time.Time }

func newClock() *fakeClock                   { return &fakeClock{t: time.Unix(1700000000, 0)} }
func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) Flush(q *FrameQueue) int { return q.Flush(c.t) }
func (c *fakeClock) Step(q *FrameQueue, d time.Duration) int {
	c.Advance(d)
	return c.Flush(q)
}

type spy struct{ dts []float64 }

func (s *spy) Tick(dt float64) { s.dts = append(s.dts, dt) }

func TestFrameQueueOrderAndCancel(t *testing.T) {
	q := NewFrameQueue()
	var got []int
	q.RequestFrame(func(time.Time) { got = append(got, 1) })
	id := q.RequestFrame(func(time.Time) { got = append(got, 2) })
	q.RequestFrame(func(time.Time) { got = append(got, 3) })
	q.CancelFrame(id)
	q.CancelFrame(id)
	q.CancelFrame(999)

	if n := q.Flush(time.Now()); n != 2 {
		t.Errorf("expected 2 callbacks, ran %d", n)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("unexpected order %v", got)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, has %d", q.Len())
	}
}

func TestFrameQueueRequestDuringFlush(t *testing.T) {
	q := NewFrameQueue()
	runs := 0
	var loop FrameCallback
	loop = func(time.Time) {
		runs++
		q.RequestFrame(loop)
	}
	q.RequestFrame(loop)
	q.Flush(time.Now())
	q.Flush(time.Now())
	if runs != 2 {
		t.Errorf("expected one run per flush, got %d", runs)
	}
}

func TestFrameQueueCancelDuringFlush(t *testing.T) {
	q := NewFrameQueue()
	var second uint64
	ran := false
	q.RequestFrame(func(time.Time) { q.CancelFrame(second) })
	second = q.RequestFrame(func(time.Time) { ran = true })
	q.Flush(time.Now())
	if ran {
		t.Error("callback cancelled mid-flush still ran")
	}
}

func TestDriverWallClockDelta(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	s := &spy{}
	d := NewDriver(q, c.Now, 100*time.Millisecond, nil, s)
	d.Start()

	c.Flush(q)
	c.Step(q, 16*time.Millisecond)
	c.Step(q, 33*time.Millisecond)

	want := []float64{0, 0.016, 0.033}
	if len(s.dts) != len(want) {
		t.Fatalf("expected %d ticks, got %v", len(want), s.dts)
	}
	for i := range want {
		if math.Abs(s.dts[i]-want[i]) > 1e-9 {
			t.Errorf("tick %d dt = %f, want %f", i, s.dts[i], want[i])
		}
	}
}

func TestDriverClampsStall(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	s := &spy{}
	d := NewDriver(q, c.Now, 100*time.Millisecond, nil, s)
	d.Start()
	c.Flush(q)
	c.Step(q, 3*time.Second)
	if got := s.dts[1]; got != 0.1 {
		t.Errorf("stall dt = %f, want 0.1", got)
	}
}

func TestDriverPauseNoBacklog(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	s := &spy{}
	d := NewDriver(q, c.Now, time.Second, nil, s)
	d.Start()
	c.Flush(q)
	c.Step(q, 16*time.Millisecond)

	d.Pause()
	for i := 0; i < 10; i++ {
		c.Step(q, 500*time.Millisecond)
	}
	if len(s.dts) != 2 {
		t.Fatalf("ticked while paused: %v", s.dts)
	}

	d.Resume()
	c.Step(q, 20*time.Millisecond)
	if len(s.dts) != 3 {
		t.Fatalf("expected one tick after resume, got %v", s.dts)
	}
	if got := s.dts[2]; math.Abs(got-0.020) > 1e-9 {
		t.Errorf("resume dt = %f, want 0.020 measured from resume", got)
	}
}

func TestDriverStaleCallbackIsNoop(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	s := &spy{}
	d := NewDriver(q, c.Now, 0, nil, s)
	d.Start()
	stale := d.gen

	d.Stop()
	d.frame(stale, c.Now())
	c.Step(q, 16*time.Millisecond)

	if len(s.dts) != 0 {
		t.Errorf("expected no ticks after stop, got %d", len(s.dts))
	}
	if q.Len() != 0 {
		t.Errorf("stopped driver left %d frames queued", q.Len())
	}
}

func TestDriverErrorStopsOnlyItself(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	boom := errors.New("boom")

	var failed error
	bad := NewDriver(q, c.Now, 0, func(Frame) error { return boom })
	bad.OnError(func(err error) { failed = err })

	good := &spy{}
	ok := NewDriver(q, c.Now, 0, nil, good)

	bad.Start()
	ok.Start()
	for i := 0; i < 5; i++ {
		c.Step(q, 16*time.Millisecond)
	}

	if !errors.Is(failed, boom) {
		t.Errorf("expected boom, got %v", failed)
	}
	if bad.Running() {
		t.Error("failed driver still running")
	}
	if len(good.dts) != 5 {
		t.Errorf("sibling driver ticked %d times, want 5", len(good.dts))
	}
}

func TestDriverRecoversPanic(t *testing.T) {
	c := newClock()
	q := NewFrameQueue()
	var failed error
	d := NewDriver(q, c.Now, 0, nil, engine.SimulationFunc(func(float64) { panic("nan mesh") }))
	d.OnError(func(err error) { failed = err })
	d.Start()
	c.Flush(q)
	if failed == nil || d.Running() {
		t.Errorf("panic should stop the driver with an error, got %v", failed)
	}
}
