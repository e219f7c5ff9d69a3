package flow

import (
	"math"

	"github.com/san-kum/mesviz/internal/geom"
)

// motion implements one flow kind. Implementations must not allocate.
type motion interface {
	spawn(s *Simulator, i int, p *Particle)
	step(s *Simulator, i int, p *Particle, dt float64)
}

type laminar struct{}

// Parabolic profile: particles near the channel axis travel fastest.
func (laminar) spawn(s *Simulator, _ int, p *Particle) {
	p.Position = s.domain.Lerp(geom.V(s.rng.Float64(), s.rng.Float64(), s.rng.Float64()))
	size, c := s.domain.Size(), s.domain.Center()
	var r float64
	if size.Y > 0 && size.Z > 0 {
		dy := 2 * (p.Position.Y - c.Y) / size.Y
		dz := 2 * (p.Position.Z - c.Z) / size.Z
		r = math.Min(1, dy*dy+dz*dz)
	}
	v := s.pattern.Velocity * math.Max(0.2, 1.5*(1-r))
	p.Velocity = geom.V(v, 0, 0)
}

func (laminar) step(s *Simulator, _ int, p *Particle, dt float64) {
	x := p.Position.X + p.Velocity.X*dt
	lo, hi := s.domain.Min.X, s.domain.Max.X
	if w := hi - lo; x > hi && w > 0 {
		x = lo + math.Mod(x-lo, w)
	}
	p.Position.X = x
}

type turbulent struct{}

const (
	jitter   = 4.0
	maxBoost = 2.0
)

func (turbulent) spawn(s *Simulator, _ int, p *Particle) {
	p.Position = s.domain.Lerp(geom.V(s.rng.Float64(), s.rng.Float64(), s.rng.Float64()))
	dir := geom.V(s.rng.Float64()*2-1, s.rng.Float64()*2-1, s.rng.Float64()*2-1).Normalize()
	p.Velocity = dir.Scale(s.pattern.Velocity * (0.5 + 0.5*s.rng.Float64()))
}

func (turbulent) step(s *Simulator, _ int, p *Particle, dt float64) {
	v := s.pattern.Velocity
	kick := geom.V(s.rng.Float64()*2-1, s.rng.Float64()*2-1, s.rng.Float64()*2-1)
	p.Velocity = p.Velocity.Add(kick.Scale(jitter * v * dt))
	if l, limit := p.Velocity.Length(), maxBoost*v; l > limit && l > 0 {
		p.Velocity = p.Velocity.Scale(limit / l)
	}
	p.Position = p.Position.Add(p.Velocity.Scale(dt))

	for a := 0; a < 3; a++ {
		pos, vel := p.Position.Axis(a), p.Velocity.Axis(a)
		lo, hi := s.domain.Min.Axis(a), s.domain.Max.Axis(a)
		switch {
		case pos < lo:
			pos, vel = lo, math.Abs(vel)
		case pos > hi:
			pos, vel = hi, -math.Abs(vel)
		default:
			continue
		}
		p.Position = p.Position.SetAxis(a, pos)
		p.Velocity = p.Velocity.SetAxis(a, vel)
	}
}

type diffusive struct{}

// golden angle spreads index-based phases evenly around the curve
const golden = 2.399963229728653

func (diffusive) spawn(s *Simulator, i int, p *Particle) {
	p.offset = float64(i)*golden + 0.2*s.rng.Float64()
	p.scale = 0.3 + 0.7*s.rng.Float64()
	p.Position = diffusive{}.at(s, p)
	p.Velocity = geom.Vec3{}
}

func (diffusive) step(s *Simulator, _ int, p *Particle, dt float64) {
	next := diffusive{}.at(s, p)
	if dt > 0 {
		p.Velocity = next.Sub(p.Position).Scale(1 / dt)
	}
	p.Position = next
}

// at evaluates a 1:2:3 Lissajous curve, which closes after one period of
// the slowest axis.
func (diffusive) at(s *Simulator, p *Particle) geom.Vec3 {
	half := s.domain.Size().Scale(0.5 * 0.9 * p.scale)
	r := math.Max(half.X, math.Max(half.Y, half.Z))
	w := 0.0
	if r > 0 {
		w = s.pattern.Velocity / r
	}
	t := s.time*w + p.offset
	d := geom.V(math.Sin(t), math.Sin(2*t+p.offset), math.Sin(3*t+0.5*p.offset))
	return s.domain.Center().Add(half.Mul(d))
}

type electron struct{}

func (electron) spawn(s *Simulator, _ int, p *Particle) {
	p.start = s.route.Anode.Lerp(geom.V(s.rng.Float64(), 0.3+0.7*s.rng.Float64(), s.rng.Float64()))
	p.end = s.route.Cathode.Lerp(geom.V(s.rng.Float64(), 0.3+0.7*s.rng.Float64(), s.rng.Float64()))
	if l, v := s.route.Length(p.start, p.end), s.pattern.Velocity; l > 0 && v > 0 {
		p.MaxAge = l / v
	}
	p.Position = p.start
	p.Phase = PhaseRise
}

func (electron) step(s *Simulator, _ int, p *Particle, dt float64) {
	progress := math.Mod(p.Age, p.MaxAge) / p.MaxAge
	next := s.route.Position(p.start, p.end, progress)
	if dt > 0 {
		p.Velocity = next.Sub(p.Position).Scale(1 / dt)
	}
	p.Position = next
	p.Phase = PhaseAt(progress)
}
