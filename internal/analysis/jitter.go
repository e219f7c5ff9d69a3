// Package analysis summarizes recorded frame timings: percentiles of the
// frame interval and the strongest periodic component of its jitter, which
// points at stalls that recur every few frames.
package analysis

import (
	"math"
	"sort"

	"github.com/san-kum/mesviz/internal/metrics"
)

// Jitter describes the frame intervals of one capture.
type Jitter struct {
	Frames int
	Mean   float64
	P50    float64
	P95    float64
	Max    float64
	StdDev float64
	// Period is the dominant repeat interval of the jitter in frames, or 0
	// when no bin stands out from the rest of the spectrum.
	Period   float64
	Strength float64
}

// periodThreshold is how many times the mean spectral magnitude a bin must
// reach to count as periodic.
const periodThreshold = 4

// FrameJitter analyses the Delta column of frames. The first frame is
// skipped because its interval is zero by construction.
func FrameJitter(frames []metrics.Frame) Jitter {
	if len(frames) < 2 {
		return Jitter{Frames: len(frames)}
	}
	dts := make([]float64, 0, len(frames)-1)
	for _, f := range frames[1:] {
		dts = append(dts, f.Delta)
	}

	j := Jitter{Frames: len(frames)}
	sum := 0.0
	for _, v := range dts {
		sum += v
	}
	j.Mean = sum / float64(len(dts))
	variance := 0.0
	for _, v := range dts {
		variance += (v - j.Mean) * (v - j.Mean)
	}
	j.StdDev = math.Sqrt(variance / float64(len(dts)))

	sorted := append([]float64(nil), dts...)
	sort.Float64s(sorted)
	j.P50 = percentile(sorted, 0.50)
	j.P95 = percentile(sorted, 0.95)
	j.Max = sorted[len(sorted)-1]

	if j.StdDev <= 1e-9*j.Mean || len(dts) < 8 {
		return j
	}
	centered := make([]float64, len(dts))
	for i, v := range dts {
		centered[i] = v - j.Mean
	}
	ps := PowerSpectrum(centered)
	n := nextPow2(len(centered))
	peak, mean := 0.0, 0.0
	for k := 1; k < len(ps); k++ {
		mean += ps[k]
		peak = max(peak, ps[k])
	}
	// harmonics of a pulse train are equally strong; the fundamental is the
	// lowest of them
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] >= peak*(1-1e-6) {
			best = k
			break
		}
	}
	mean /= float64(len(ps) - 1)
	if best > 0 && mean > 0 && ps[best] >= periodThreshold*mean {
		j.Period = float64(n) / float64(best)
		j.Strength = ps[best] / mean
	}
	return j
}

// percentile interpolates linearly within sorted.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
