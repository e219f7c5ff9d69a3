package metrics

// Recycling is the particle recycle rate per simulated second. Counters
// restart when a viewer is retried, so a drop resets the baseline.
type Recycling struct {
	name    string
	last    uint64
	total   uint64
	elapsed float64
}

func NewRecycling() *Recycling {
	return &Recycling{name: "recycled_per_s"}
}

func (r *Recycling) Name() string { return r.name }

func (r *Recycling) Observe(f Frame) {
	if f.Recycled >= r.last {
		r.total += f.Recycled - r.last
	} else {
		r.total += f.Recycled
	}
	r.last = f.Recycled
	r.elapsed += f.Delta
}

func (r *Recycling) Value() float64 {
	if r.elapsed == 0 {
		return 0
	}
	return float64(r.total) / r.elapsed
}

func (r *Recycling) Reset() {
	r.last = 0
	r.total = 0
	r.elapsed = 0
}
