package flow

import (
	"math/rand"

	"github.com/san-kum/mesviz/internal/geom"
)

const (
	// DefaultLifetime is the base particle lifetime in seconds for kinds
	// whose lifetime is not set by travel distance.
	DefaultLifetime = 8.0
	DefaultVelocity = 1.0
)

type Option func(*Simulator)

// WithSeed makes spawning and perturbation reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithLifetime sets the base lifetime; each particle gets 75% to 125% of it.
func WithLifetime(seconds float64) Option {
	return func(s *Simulator) {
		if seconds > 0 {
			s.lifetime = seconds
		}
	}
}

// WithRoute sets the circuit ElectronPath particles follow.
func WithRoute(r Route) Option {
	return func(s *Simulator) { s.route = r; s.hasRoute = true }
}

type Stats struct {
	Particles int
	Recycled  uint64
	MeanAge   float64
	Time      float64
}

// Simulator advances one flow pattern. It implements engine.Simulation.
type Simulator struct {
	pattern   Pattern
	domain    geom.Bounds
	bounds    geom.Bounds
	route     Route
	hasRoute  bool
	lifetime  float64
	speed     float64
	rng       *rand.Rand
	motion    motion
	particles []Particle
	time      float64
	recycled  uint64
}

// New builds a simulator with pattern.ParticleCount particles spread over
// domain. ElectronPath without a route travels between the left and right
// thirds of the domain.
func New(pattern Pattern, domain geom.Bounds, opts ...Option) *Simulator {
	if pattern.Velocity <= 0 {
		pattern.Velocity = DefaultVelocity
	}
	if pattern.ParticleCount < 0 {
		pattern.ParticleCount = 0
	}
	s := &Simulator{
		pattern:  pattern,
		domain:   domain,
		lifetime: DefaultLifetime,
		speed:    1,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}

	switch pattern.Kind {
	case Turbulent:
		s.motion = turbulent{}
	case Diffusive:
		s.motion = diffusive{}
	case ElectronPath:
		s.motion = electron{}
		if !s.hasRoute {
			s.route = defaultRoute(domain)
		}
	default:
		s.motion = laminar{}
	}
	s.bounds = domain
	if pattern.Kind == ElectronPath {
		s.bounds = s.route.Bounds()
	}

	s.particles = make([]Particle, pattern.ParticleCount)
	s.Reset()
	return s
}

func defaultRoute(d geom.Bounds) Route {
	size := d.Size()
	third := size.X / 3
	anode := geom.Bounds{Min: d.Min, Max: geom.V(d.Min.X+third, d.Max.Y, d.Max.Z)}
	cathode := geom.Bounds{Min: geom.V(d.Max.X-third, d.Min.Y, d.Min.Z), Max: d.Max}
	return RouteBetween(anode, cathode, size.Y/4)
}

// Reset respawns every particle with a staggered age and rewinds time.
func (s *Simulator) Reset() {
	s.time = 0
	s.recycled = 0
	for i := range s.particles {
		p := &s.particles[i]
		s.spawn(i, p)
		p.Age = s.rng.Float64() * p.MaxAge
		if s.pattern.Kind == ElectronPath {
			s.motion.step(s, i, p, 0)
		}
	}
}

func (s *Simulator) spawn(i int, p *Particle) {
	*p = Particle{MaxAge: s.lifetime * (0.75 + 0.5*s.rng.Float64())}
	s.motion.spawn(s, i, p)
}

// Tick advances every particle by dt seconds of wall-clock time scaled by
// the speed multiplier. Negative dt is ignored.
func (s *Simulator) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	dt *= s.speed
	s.time += dt
	for i := range s.particles {
		p := &s.particles[i]
		p.Age += dt
		if p.Age >= p.MaxAge {
			s.recycle(i, p)
			continue
		}
		s.motion.step(s, i, p, dt)
		if !p.Position.IsFinite() || !s.bounds.Contains(p.Position) {
			s.recycle(i, p)
		}
	}
}

func (s *Simulator) recycle(i int, p *Particle) {
	s.recycled++
	s.spawn(i, p)
	p.Age = 0
	if s.pattern.Kind == Laminar && s.domain.Max.X > s.domain.Min.X {
		p.Position.X = s.domain.Min.X
	}
}

// Particles exposes the arena. Callers must treat it as read-only.
func (s *Simulator) Particles() []Particle { return s.particles }
func (s *Simulator) Pattern() Pattern      { return s.pattern }
func (s *Simulator) Domain() geom.Bounds   { return s.domain }
func (s *Simulator) Bounds() geom.Bounds   { return s.bounds }
func (s *Simulator) Time() float64         { return s.time }
func (s *Simulator) Speed() float64        { return s.speed }

func (s *Simulator) SetSpeed(f float64) {
	if f >= 0 {
		s.speed = f
	}
}

func (s *Simulator) Stats() Stats {
	st := Stats{Particles: len(s.particles), Recycled: s.recycled, Time: s.time}
	if n := len(s.particles); n > 0 {
		var sum float64
		for i := range s.particles {
			sum += s.particles[i].Age
		}
		st.MeanAge = sum / float64(n)
	}
	return st
}
