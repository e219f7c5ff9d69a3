package metrics

// Stability is the fraction of frames whose delta stayed under the stall
// threshold. A delta clamped to the threshold counts as a stall.
type Stability struct {
	threshold float64
	frames    int
	stalls    int
	run       int
	longest   int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (*Stability) Name() string { return "stability" }

func (s *Stability) Observe(f Frame) {
	s.frames++
	if s.threshold <= 0 || f.Delta < s.threshold {
		s.run = 0
		return
	}
	s.stalls++
	s.run++
	s.longest = max(s.longest, s.run)
}

func (s *Stability) Value() float64 {
	if s.frames == 0 {
		return 1.0
	}
	return 1.0 - float64(s.stalls)/float64(s.frames)
}

// LongestStall is the longest run of consecutive stalled frames.
func (s *Stability) LongestStall() int { return s.longest }

func (s *Stability) Extras() map[string]float64 {
	return map[string]float64{"longest_stall": float64(s.longest)}
}

func (s *Stability) Reset() {
	*s = Stability{threshold: s.threshold}
}
