package flow

import (
	"math"

	"github.com/san-kum/mesviz/internal/geom"
)

// Phase boundaries on lifetime progress for electron transport.
const (
	RiseEnd = 1.0 / 3
	ArcEnd  = 2.0 / 3
)

// Route is the external circuit electrons travel: up out of the anode to
// From, over the wire to To, and down into the cathode.
type Route struct {
	Anode, Cathode geom.Bounds
	From, To       geom.Vec3
	Lift           float64
}

// RouteBetween derives the circuit from the top faces of two electrodes.
func RouteBetween(anode, cathode geom.Bounds, lift float64) Route {
	top := func(b geom.Bounds) geom.Vec3 {
		c := b.Center()
		return geom.V(c.X, b.Max.Y, c.Z)
	}
	return Route{Anode: anode, Cathode: cathode, From: top(anode), To: top(cathode), Lift: lift}
}

func (r Route) control() geom.Vec3 {
	mid := r.From.Lerp(r.To, 0.5)
	mid.Y = math.Max(r.From.Y, r.To.Y) + 2*r.Lift
	return mid
}

// Bounds covers the electrodes and the whole wire arc.
func (r Route) Bounds() geom.Bounds {
	b := r.Anode.Union(r.Cathode)
	top := math.Max(r.From.Y, r.To.Y) + r.Lift
	b.Max.Y = math.Max(b.Max.Y, top)
	return b
}

// Length approximates the travel distance from start to end.
func (r Route) Length(start, end geom.Vec3) float64 {
	l := r.From.Sub(start).Length() + r.To.Sub(end).Length()
	prev := r.From
	for i := 1; i <= 16; i++ {
		p := r.Arc(float64(i) / 16)
		l += p.Sub(prev).Length()
		prev = p
	}
	return l
}

// Arc evaluates the wire from From (s=0) to To (s=1) as a quadratic curve.
func (r Route) Arc(s float64) geom.Vec3 {
	c := r.control()
	a := r.From.Lerp(c, s)
	b := c.Lerp(r.To, s)
	return a.Lerp(b, s)
}

// PhaseAt maps lifetime progress in [0,1) to its phase.
func PhaseAt(progress float64) Phase {
	switch {
	case progress < RiseEnd:
		return PhaseRise
	case progress < ArcEnd:
		return PhaseArc
	default:
		return PhaseDescent
	}
}

// Position evaluates the route at progress for a particle that spawned at
// start inside the anode and lands at end inside the cathode. The result is
// continuous in progress, including at both phase boundaries.
func (r Route) Position(start, end geom.Vec3, progress float64) geom.Vec3 {
	switch PhaseAt(progress) {
	case PhaseRise:
		return start.Lerp(r.From, progress/RiseEnd)
	case PhaseArc:
		return r.Arc((progress - RiseEnd) / (ArcEnd - RiseEnd))
	default:
		return r.To.Lerp(end, (progress-ArcEnd)/(1-ArcEnd))
	}
}
