package metrics

type FrameRate struct {
	name    string
	elapsed float64
	frames  int
}

func NewFrameRate() *FrameRate {
	return &FrameRate{
		name: "fps",
	}
}

func (r *FrameRate) Name() string {
	return r.name
}

func (r *FrameRate) Observe(f Frame) {
	r.elapsed += f.Delta
	r.frames++
}

// Value is the effective frame rate over everything observed.
func (r *FrameRate) Value() float64 {
	if r.elapsed == 0 {
		return 0
	}
	return float64(r.frames) / r.elapsed
}

func (r *FrameRate) Reset() {
	r.elapsed = 0
	r.frames = 0
}

type MeanDelta struct {
	name    string
	sum     float64
	samples int
}

func NewMeanDelta() *MeanDelta {
	return &MeanDelta{name: "mean_dt"}
}

func (m *MeanDelta) Name() string { return m.name }

func (m *MeanDelta) Observe(f Frame) {
	m.sum += f.Delta
	m.samples++
}

func (m *MeanDelta) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDelta) Reset() {
	m.sum = 0
	m.samples = 0
}
