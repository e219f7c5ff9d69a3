package automation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/mesviz/internal/analysis"
	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/scene"
)

// Sweep parameters.
const (
	ParamParticleCount = "particle_count"
	ParamVelocity      = "velocity"
	ParamCoverage      = "coverage"
	ParamThickness     = "thickness"
	ParamCells         = "cells"
)

// SweepParams lists the parameters a sweep can vary.
var SweepParams = []string{ParamParticleCount, ParamVelocity, ParamCoverage, ParamThickness, ParamCells}

// ParameterSweep renders Base once per value evenly spaced over [Min, Max].
type ParameterSweep struct {
	Base     Job
	Param    string
	Min, Max float64
	Steps    int
}

// SweepPoint is one rendered value.
type SweepPoint struct {
	Value     float64
	Tier      string
	Particles int
	// FrameCost is the mean wall time spent per frame.
	FrameCost time.Duration
	Metrics   map[string]float64
	Jitter    analysis.Jitter
}

// Values returns the swept parameter values.
func (s *ParameterSweep) Values() []float64 {
	if s.Steps <= 1 {
		return []float64{s.Min}
	}
	out := make([]float64, s.Steps)
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	return out
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, s *ParameterSweep) ([]SweepPoint, error) {
	if s.Max < s.Min {
		return nil, &engine.ConfigError{Field: "sweep.max", Message: "must not be below min"}
	}
	values := s.Values()
	points := make([]SweepPoint, 0, len(values))
	for i, val := range values {
		job := s.Base
		def, err := applyParam(job.Definition, s.Param, val)
		if err != nil {
			return nil, err
		}
		job.Definition = def
		job.Name = fmt.Sprintf("%s[%s=%g]", s.Base.Name, s.Param, val)

		res, err := Render(ctx, job)
		if err != nil {
			return points, fmt.Errorf("%s=%g: %w", s.Param, val, err)
		}
		p := SweepPoint{
			Value:   val,
			Tier:    res.Meta.Tier.String(),
			Metrics: res.Meta.Metrics,
			Jitter:  analysis.FrameJitter(res.Frames),
		}
		if n := len(res.Frames); n > 0 {
			p.Particles = res.Frames[n-1].Particles
			p.FrameCost = res.Elapsed / time.Duration(n)
		}
		points = append(points, p)
		engine.Logger().Debug("sweep point", "step", i+1, "of", len(values), "param", s.Param, "value", val)
	}
	return points, nil
}

// applyParam returns a copy of def with param set to val.
func applyParam(def scene.ModelDefinition, param string, val float64) (scene.ModelDefinition, error) {
	out := def
	switch param {
	case ParamParticleCount, ParamVelocity:
		f := flow.Pattern{Velocity: 1}
		if def.Flow != nil {
			f = *def.Flow
		}
		if param == ParamParticleCount {
			f.ParticleCount = int(math.Round(val))
		} else {
			f.Velocity = val
		}
		out.Flow = &f
	case ParamCoverage, ParamThickness:
		b := biofilm.Spec{Thickness: 0.2, Coverage: 0.5}
		if def.Biofilm != nil {
			b = *def.Biofilm
		}
		if param == ParamCoverage {
			b.Coverage = val
		} else {
			b.Thickness = val
		}
		out.Biofilm = &b
	case ParamCells:
		out.Cells = int(math.Round(val))
	default:
		return def, &engine.ConfigError{Field: "sweep.param", Message: fmt.Sprintf("unknown parameter %q (available: %v)", param, SweepParams)}
	}
	return out, out.Validate()
}
