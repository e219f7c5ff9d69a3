package biofilm

import "math"

// BreathPeriod is the length in seconds of one opacity cycle.
const BreathPeriod = 4.0

// Animator modulates biofilm material over accumulated wall-clock time.
// It implements engine.Simulation and never touches geometry.
type Animator struct {
	animated    bool
	baseOpacity float64
	elapsed     float64

	Opacity  float64
	Emissive float64
}

func NewAnimator(spec Spec, baseOpacity float64) *Animator {
	a := &Animator{animated: spec.Animated, baseOpacity: baseOpacity}
	a.update()
	return a
}

func (a *Animator) Tick(dt float64) {
	if dt > 0 {
		a.elapsed += dt
	}
	a.update()
}

func (a *Animator) Elapsed() float64 { return a.elapsed }

func (a *Animator) update() {
	if !a.animated {
		a.Opacity, a.Emissive = a.baseOpacity, 0
		return
	}
	w := math.Sin(2 * math.Pi * a.elapsed / BreathPeriod)
	a.Opacity = a.baseOpacity * (0.8 + 0.2*w)
	a.Emissive = 0.3 + 0.2*w
}
