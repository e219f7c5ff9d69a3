package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/mesviz/internal/metrics"
)

func TestFFTPadsToPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1}, {1, 1}, {3, 4}, {8, 8}, {9, 16},
	}
	for _, tt := range tests {
		if got := len(FFT(make([]float64, tt.in))); got != tt.want {
			t.Errorf("len(FFT(%d)) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPowerSpectrumPeak(t *testing.T) {
	data := make([]float64, 64)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 4 * float64(i) / 64)
	}
	ps := PowerSpectrum(data)
	peak := 0
	for k := range ps {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	if peak != 4 {
		t.Errorf("peak bin = %d, want 4", peak)
	}
}

func frames(dts []float64) []metrics.Frame {
	out := []metrics.Frame{{Index: 0}}
	for i, dt := range dts {
		out = append(out, metrics.Frame{Index: i + 1, Delta: dt})
	}
	return out
}

func TestFrameJitterSteady(t *testing.T) {
	dts := make([]float64, 60)
	for i := range dts {
		dts[i] = 1.0 / 60
	}
	j := FrameJitter(frames(dts))
	if j.Frames != 61 {
		t.Errorf("frames = %d", j.Frames)
	}
	if math.Abs(j.Mean-1.0/60) > 1e-12 || j.StdDev > 1e-12 {
		t.Errorf("mean/std = %v/%v", j.Mean, j.StdDev)
	}
	if j.Period != 0 {
		t.Errorf("steady timing reported period %v", j.Period)
	}
}

func TestFrameJitterPeriodicStall(t *testing.T) {
	dts := make([]float64, 64)
	for i := range dts {
		dts[i] = 0.016
		if i%8 == 0 {
			dts[i] = 0.050
		}
	}
	j := FrameJitter(frames(dts))
	if j.Max != 0.050 {
		t.Errorf("max = %v", j.Max)
	}
	if j.P50 != 0.016 {
		t.Errorf("p50 = %v", j.P50)
	}
	if j.Period != 8 {
		t.Errorf("period = %v, want 8", j.Period)
	}
	if j.Strength < periodThreshold {
		t.Errorf("strength = %v", j.Strength)
	}
}

func TestFrameJitterShort(t *testing.T) {
	if j := FrameJitter(nil); j.Frames != 0 || j.Mean != 0 {
		t.Errorf("empty = %+v", j)
	}
	if j := FrameJitter(frames(nil)); j.Frames != 1 {
		t.Errorf("single = %+v", j)
	}
}
