package engine

// Simulation is advanced by its owning frame driver once per frame.
// dt is the wall-clock delta in seconds since the previous tick.
type Simulation interface {
	Tick(dt float64)
}

// SimulationFunc adapts a plain function to a Simulation.
type SimulationFunc func(dt float64)

func (f SimulationFunc) Tick(dt float64) { f(dt) }
