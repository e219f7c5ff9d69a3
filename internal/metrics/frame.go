// Package metrics accumulates per-frame statistics reported by viewers.
package metrics

// Frame is what a viewer reports after each drawn frame.
type Frame struct {
	Viewer         string  `json:"viewer,omitempty"`
	Index          int     `json:"index"`
	Delta          float64 `json:"dt"`
	Particles      int     `json:"particles"`
	Recycled       uint64  `json:"recycled"`
	MeanAge        float64 `json:"mean_age"`
	BiofilmOpacity float64 `json:"biofilm_opacity"`
}

// Observer receives every drawn frame.
type Observer interface {
	ObserveFrame(f Frame)
}

type ObserverFunc func(Frame)

func (fn ObserverFunc) ObserveFrame(f Frame) { fn(f) }

// Observers fans each frame out to several observers in order.
type Observers []Observer

func (o Observers) ObserveFrame(f Frame) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveFrame(f)
		}
	}
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

// extras is implemented by metrics that report more than one value.
type extras interface {
	Extras() map[string]float64
}

// Set fans each frame out to its metrics.
type Set []Metric

func NewSet(maxDelta float64) Set {
	return Set{NewFrameRate(), NewMeanDelta(), NewRecycling(), NewStability(maxDelta)}
}

func (s Set) ObserveFrame(f Frame) {
	for _, m := range s {
		m.Observe(f)
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
		if x, ok := m.(extras); ok {
			for k, v := range x.Extras() {
				out[k] = v
			}
		}
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Recorder keeps the most recent frames, oldest first.
type Recorder struct {
	limit  int
	frames []Frame
}

func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) ObserveFrame(f Frame) {
	r.frames = append(r.frames, f)
	if r.limit > 0 && len(r.frames) > r.limit {
		r.frames = r.frames[len(r.frames)-r.limit:]
	}
}

func (r *Recorder) Frames() []Frame { return r.frames }

// Series extracts one column for plotting.
func (r *Recorder) Series(pick func(Frame) float64) []float64 {
	out := make([]float64, len(r.frames))
	for i, f := range r.frames {
		out[i] = pick(f)
	}
	return out
}
