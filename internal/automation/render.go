// Package automation runs viewers headlessly: single renders driven by a
// synthetic clock, scripted scenarios that act on the viewer at given
// frames, parameter sweeps and seed ensembles.
package automation

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/config"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/export"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
	"github.com/san-kum/mesviz/internal/viewer"
)

// Job is one headless render.
type Job struct {
	Name          string
	Definition    scene.ModelDefinition
	Host          string
	Quality       *quality.Tier
	Capacity      int
	Seed          int64
	Frames        int
	FPS           int
	MaxFrameDelta time.Duration
	Surface       viewer.Surface
	Actions       []Action
}

// JobFromConfig fills a job from the configuration defaults.
func JobFromConfig(cfg *config.Config, name string, def scene.ModelDefinition) (Job, error) {
	qc, err := cfg.QualityCap()
	if err != nil {
		return Job{}, err
	}
	return Job{
		Name:          name,
		Definition:    def,
		Host:          cfg.Host,
		Quality:       qc,
		Capacity:      cfg.Capacity,
		Seed:          cfg.Seed,
		Frames:        cfg.Frames,
		FPS:           cfg.FPS,
		MaxFrameDelta: cfg.MaxFrameDelta,
		Surface: viewer.Surface{
			Width:      cfg.Surface.Width,
			Height:     cfg.Surface.Height,
			PixelRatio: cfg.Surface.PixelRatio,
		},
	}, nil
}

// Result is what one render produced.
type Result struct {
	Job     string
	Meta    storage.CaptureMetadata
	Frames  []metrics.Frame
	Image   *image.RGBA
	SVG     string
	Message string
	// Elapsed is the wall time spent inside the frame loop.
	Elapsed time.Duration
}

// SelectHost maps a host name to a host. "auto" is the software rasterizer.
func SelectHost(name string) (backend.Host, error) {
	switch name {
	case "", "auto":
		return backend.NewSoftware(), nil
	}
	return backend.Lookup(name)
}

// Render mounts job.Definition and flushes job.Frames host frames from a
// synthetic clock, then captures the last presented frame. A render error
// ends the run unless a later retry action is scripted.
func Render(ctx context.Context, job Job) (*Result, error) {
	for _, a := range job.Actions {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	host, err := SelectHost(job.Host)
	if err != nil {
		return nil, err
	}
	fps := job.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	interval := time.Second / time.Duration(fps)

	now := time.Unix(0, 0)
	set := metrics.NewSet(job.maxDelta().Seconds())
	rec := metrics.NewRecorder(0)
	eng := viewer.New(viewer.Options{
		Host:          host,
		Capacity:      job.Capacity,
		Seed:          job.Seed,
		MaxFrameDelta: job.MaxFrameDelta,
		Quality:       job.Quality,
		Clock:         func() time.Time { return now },
		Observer:      metrics.Observers{set, rec},
	})
	defer eng.Close()

	v, err := eng.Mount(job.Surface, job.Definition)
	if err != nil {
		return nil, err
	}
	var renderErr error
	v.OnError(func(err error) { renderErr = err })

	start := time.Now()
	for i := 1; i <= job.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, a := range job.Actions {
			if a.Frame != i {
				continue
			}
			if err := a.Apply(v); err != nil {
				return nil, fmt.Errorf("frame %d: %s: %w", i, a.Do, err)
			}
		}
		now = now.Add(interval)
		eng.Flush()
		if renderErr != nil {
			if !job.retriesAfter(i) {
				return nil, renderErr
			}
			engine.Logger().Info("render error before scripted retry", "job", job.Name, "frame", i, "err", renderErr)
			renderErr = nil
		}
	}
	elapsed := time.Since(start)

	res := &Result{
		Job: job.Name,
		Meta: storage.CaptureMetadata{
			Model:   job.Name,
			Variant: job.Definition.Variant().Name(),
			Host:    host.Name(),
			Tier:    v.Tier(),
			Quality: v.Settings(),
			Seed:    job.Seed,
			Frames:  v.Frames(),
			Width:   job.Surface.Width,
			Height:  job.Surface.Height,
			Metrics: set.Values(),
		},
		Frames:  rec.Frames(),
		Message: v.Message(),
		Elapsed: elapsed,
	}
	if g := v.Graph(); g != nil && g.Placeholder {
		res.Message = g.Message
	}
	if svg, ok := host.(*export.SVG); ok {
		res.SVG = svg.Document()
	}
	img, err := v.CaptureFrame()
	if err != nil {
		engine.Logger().Warn("no frame captured", "viewer", v.ID(), "err", err)
		if res.Message == "" {
			res.Message = err.Error()
		}
		return res, nil
	}
	res.Image = img
	return res, nil
}

func (j Job) maxDelta() time.Duration {
	if j.MaxFrameDelta > 0 {
		return j.MaxFrameDelta
	}
	return viewer.DefaultMaxFrameDelta
}

func (j Job) retriesAfter(frame int) bool {
	for _, a := range j.Actions {
		if a.Do == ActionRetry && a.Frame > frame {
			return true
		}
	}
	return false
}

// Save stores the result and attaches its SVG document when there is one.
func (r *Result) Save(st *storage.Store) (string, error) {
	if err := st.Init(); err != nil {
		return "", err
	}
	id, err := st.Save(r.Meta, r.Frames, r.Image)
	if err != nil {
		return "", err
	}
	if r.SVG != "" {
		if err := st.Attach(id, "frame.svg", []byte(r.SVG)); err != nil {
			return id, err
		}
	}
	return id, nil
}
