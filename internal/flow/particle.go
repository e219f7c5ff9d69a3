package flow

import "github.com/san-kum/mesviz/internal/geom"

// Phase is the segment of the electron route a particle is travelling.
// Particles of other kinds stay in PhaseNone.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseRise
	PhaseArc
	PhaseDescent
)

func (p Phase) String() string {
	switch p {
	case PhaseRise:
		return "rise"
	case PhaseArc:
		return "arc"
	case PhaseDescent:
		return "descent"
	default:
		return "none"
	}
}

type Particle struct {
	Position geom.Vec3
	Velocity geom.Vec3
	Age      float64
	MaxAge   float64
	Phase    Phase

	// per-spawn randomness
	start, end geom.Vec3
	offset     float64
	scale      float64
}

// Progress is the fraction of the particle's lifetime already spent.
func (p *Particle) Progress() float64 {
	if p.MaxAge <= 0 {
		return 0
	}
	return p.Age / p.MaxAge
}
