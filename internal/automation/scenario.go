package automation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mesviz/internal/config"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/scene"
)

// Scenario is a scripted sequence of headless renders.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Parallel runs every step at once, each on its own engine.
	Parallel bool   `yaml:"parallel"`
	Steps    []Step `yaml:"steps"`
}

// Step renders one model. Zero fields fall back to the base configuration.
type Step struct {
	Name    string   `yaml:"name"`
	Model   string   `yaml:"model"`
	Preset  string   `yaml:"preset"`
	File    string   `yaml:"file"`
	Host    string   `yaml:"host"`
	Quality string   `yaml:"quality"`
	Seed    int64    `yaml:"seed"`
	Frames  int      `yaml:"frames"`
	Width   int      `yaml:"width"`
	Height  int      `yaml:"height"`
	Actions []Action `yaml:"actions"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, &engine.ConfigError{Field: "steps", Message: "scenario has no steps"}
	}
	for i, st := range sc.Steps {
		for _, a := range st.Actions {
			if err := a.Validate(); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &sc, nil
}

// Job resolves the step against base.
func (s Step) Job(base *config.Config) (Job, error) {
	cfg := *base
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.Preset != "" {
		cfg.Preset = s.Preset
	}
	if s.Host != "" {
		cfg.Host = s.Host
	}
	if s.Quality != "" {
		cfg.Quality = s.Quality
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.Frames > 0 {
		cfg.Frames = s.Frames
	}
	if s.Width > 0 {
		cfg.Surface.Width = s.Width
	}
	if s.Height > 0 {
		cfg.Surface.Height = s.Height
	}

	var (
		def  scene.ModelDefinition
		name = cfg.Model
		err  error
	)
	if s.File != "" {
		def, err = config.LoadDefinition(s.File)
		name = def.Variant().Name()
	} else {
		def, err = cfg.Definition()
	}
	if err != nil {
		return Job{}, err
	}
	if s.Name != "" {
		name = s.Name
	}
	job, err := JobFromConfig(&cfg, name, def)
	if err != nil {
		return Job{}, err
	}
	job.Actions = s.Actions
	return job, nil
}

// RunScenario executes all steps. Results keep step order. Sequential runs
// stop at the first failing step and return the results so far.
func RunScenario(ctx context.Context, sc *Scenario, base *config.Config) ([]*Result, error) {
	jobs := make([]Job, len(sc.Steps))
	for i, st := range sc.Steps {
		job, err := st.Job(base)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		jobs[i] = job
	}
	if sc.Parallel {
		return runParallel(ctx, jobs)
	}

	results := make([]*Result, 0, len(jobs))
	for i, job := range jobs {
		engine.Logger().Info("scenario step", "scenario", sc.Name, "step", i+1, "of", len(jobs), "job", job.Name)
		res, err := Render(ctx, job)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func runParallel(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = Render(ctx, jobs[idx])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return results, nil
}

// Ensemble renders the same job under consecutive seeds in parallel.
func Ensemble(ctx context.Context, job Job, runs int, seedStart int64) ([]*Result, error) {
	if runs <= 0 {
		return nil, &engine.ConfigError{Field: "runs", Message: "must be positive"}
	}
	jobs := make([]Job, runs)
	for i := range jobs {
		j := job
		j.Seed = seedStart + int64(i)
		j.Name = fmt.Sprintf("%s#%d", job.Name, j.Seed)
		jobs[i] = j
	}
	return runParallel(ctx, jobs)
}

// Summary is a one-line description of a result.
func Summary(res *Result) string {
	s := fmt.Sprintf("%s: %s on %s, %d frames in %s", res.Job, res.Meta.Tier, res.Meta.Host, res.Meta.Frames, res.Elapsed.Round(time.Microsecond))
	if res.Message != "" {
		s += " (" + res.Message + ")"
	}
	return s
}
