package automation_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mesviz/internal/automation"
	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/config"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
	"github.com/san-kum/mesviz/internal/viewer"
)

func mfc() scene.ModelDefinition {
	return scene.ModelDefinition{
		Type:    scene.ModelType{Variant: scene.MFC{}},
		Flow:    &flow.Pattern{Kind: flow.Laminar, ParticleCount: 20, Velocity: 1},
		Biofilm: &biofilm.Spec{Thickness: 0.3, Coverage: 0.5, Animated: true},
	}
}

func smallJob() automation.Job {
	return automation.Job{
		Name:       "mfc",
		Definition: mfc(),
		Seed:       3,
		Frames:     12,
		FPS:        60,
		Surface:    viewer.Surface{Width: 160, Height: 120, PixelRatio: 1},
	}
}

var _ = Describe("Render", func() {
	It("draws every frame on the software host", func() {
		res, err := automation.Render(context.Background(), smallJob())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Meta.Tier).To(Equal(quality.Basic))
		Expect(res.Meta.Host).To(Equal("software"))
		Expect(res.Meta.Frames).To(Equal(12))
		Expect(res.Meta.Variant).To(Equal("mfc"))
		Expect(res.Frames).To(HaveLen(12))
		Expect(res.Frames[0].Delta).To(BeZero())
		Expect(res.Frames[1].Delta).To(BeNumerically("~", 1.0/60, 1e-9))
		Expect(res.Image).NotTo(BeNil())
		Expect(res.Image.Bounds().Dx()).To(Equal(160))
		Expect(res.SVG).To(BeEmpty())
	})

	It("keeps the document of the svg host", func() {
		job := smallJob()
		job.Host = "svg"
		res, err := automation.Render(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Meta.Host).To(Equal("svg"))
		Expect(res.SVG).To(ContainSubstring("<svg"))
		Expect(res.SVG).To(ContainSubstring("<circle"))
	})

	It("rejects an unknown host", func() {
		job := smallJob()
		job.Host = "vulkan"
		_, err := automation.Render(context.Background(), job)
		Expect(err).To(HaveOccurred())
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := automation.Render(ctx, smallJob())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("renders the fallback message when quality is capped to none", func() {
		job := smallJob()
		none := quality.None
		job.Quality = &none
		res, err := automation.Render(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Meta.Frames).To(BeZero())
		Expect(res.Image).To(BeNil())
		Expect(res.Message).NotTo(BeEmpty())
	})

	It("skips frames while paused", func() {
		job := smallJob()
		job.Actions = []automation.Action{
			{Frame: 3, Do: automation.ActionPause},
			{Frame: 7, Do: automation.ActionResume},
		}
		res, err := automation.Render(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Meta.Frames).To(BeNumerically("<", 12))
		Expect(res.Meta.Frames).To(BeNumerically(">", 2))
	})

	It("selects parts and fails on unknown ones", func() {
		job := smallJob()
		job.Actions = []automation.Action{{Frame: 2, Do: automation.ActionSelect, Part: "anode"}}
		_, err := automation.Render(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())

		job.Actions = []automation.Action{{Frame: 2, Do: automation.ActionSelect, Part: "no-such-part"}}
		_, err = automation.Render(context.Background(), job)
		Expect(err).To(MatchError(ContainSubstring("frame 2")))
	})

	It("saves the result with its svg attachment", func() {
		job := smallJob()
		job.Host = "svg"
		res, err := automation.Render(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())

		dir := GinkgoT().TempDir()
		st := storage.New(dir)
		id, err := res.Save(st)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(dir, id, "frame.svg")).To(BeARegularFile())
		meta, err := st.Load(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(meta.Frames).To(Equal(12))
	})
})

var _ = Describe("Action", func() {
	DescribeTable("Validate",
		func(a automation.Action, ok bool) {
			if ok {
				Expect(a.Validate()).To(Succeed())
			} else {
				Expect(a.Validate()).NotTo(Succeed())
			}
		},
		Entry("pause", automation.Action{Frame: 1, Do: automation.ActionPause}, true),
		Entry("frame zero", automation.Action{Frame: 0, Do: automation.ActionPause}, false),
		Entry("select without part", automation.Action{Frame: 1, Do: automation.ActionSelect}, false),
		Entry("negative speed", automation.Action{Frame: 1, Do: automation.ActionSpeed, Value: -1}, false),
		Entry("unknown", automation.Action{Frame: 1, Do: "explode"}, false),
	)
})

var _ = Describe("Scenario", func() {
	var base *config.Config

	BeforeEach(func() {
		base = config.DefaultConfig()
		base.Frames = 6
		base.Surface.Width = 120
		base.Surface.Height = 90
	})

	writeScenario := func(body string) string {
		path := filepath.Join(GinkgoT().TempDir(), "scenario.yaml")
		Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
		return path
	}

	It("loads steps with actions", func() {
		path := writeScenario(`
name: tour
steps:
  - model: mfc
    actions:
      - {frame: 2, do: orbit, yaw: 0.3}
      - {frame: 4, do: zoom_in}
  - model: mec
    preset: standard
    frames: 3
`)
		sc, err := automation.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Name).To(Equal("tour"))
		Expect(sc.Steps).To(HaveLen(2))
		Expect(sc.Steps[0].Actions[0].Yaw).To(BeNumerically("~", 0.3))
	})

	It("rejects an empty scenario", func() {
		_, err := automation.LoadScenario(writeScenario("name: empty\n"))
		Expect(errors.Is(err, engine.ErrConfiguration)).To(BeTrue())
	})

	It("rejects invalid actions", func() {
		_, err := automation.LoadScenario(writeScenario(`
steps:
  - model: mfc
    actions:
      - {frame: 1, do: explode}
`))
		Expect(err).To(MatchError(ContainSubstring("step 1")))
	})

	for _, parallel := range []bool{false, true} {
		It(fmt.Sprintf("runs every step in order (parallel=%v)", parallel), func() {
			sc := &automation.Scenario{
				Name:     "pair",
				Parallel: parallel,
				Steps: []automation.Step{
					{Name: "first", Model: "mfc"},
					{Name: "second", Model: "mdc", Frames: 4},
				},
			}
			results, err := automation.RunScenario(context.Background(), sc, base)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Job).To(Equal("first"))
			Expect(results[0].Meta.Frames).To(Equal(6))
			Expect(results[1].Job).To(Equal("second"))
			Expect(results[1].Meta.Frames).To(Equal(4))
			Expect(automation.Summary(results[1])).To(ContainSubstring("basic"))
		})
	}

	It("fails a step with an unknown preset", func() {
		sc := &automation.Scenario{Steps: []automation.Step{{Model: "mfc", Preset: "missing"}}}
		_, err := automation.RunScenario(context.Background(), sc, base)
		Expect(err).To(MatchError(ContainSubstring("step 1")))
	})

	It("loads a definition file for a step", func() {
		path := filepath.Join(GinkgoT().TempDir(), "cell.yaml")
		Expect(os.WriteFile(path, []byte("type: mec\nflow: {kind: diffusive, particle_count: 5, velocity: 1}\n"), 0o644)).To(Succeed())
		job, err := automation.Step{File: path}.Job(base)
		Expect(err).NotTo(HaveOccurred())
		Expect(job.Name).To(Equal("mec"))
		Expect(job.Definition.Flow.ParticleCount).To(Equal(5))
	})
})

var _ = Describe("Ensemble", func() {
	It("renders one result per seed", func() {
		results, err := automation.Ensemble(context.Background(), smallJob(), 3, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, res := range results {
			Expect(res.Meta.Seed).To(Equal(int64(10 + i)))
			Expect(strings.HasPrefix(res.Job, "mfc#")).To(BeTrue())
		}
	})

	It("needs at least one run", func() {
		_, err := automation.Ensemble(context.Background(), smallJob(), 0, 1)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Sweep", func() {
	It("spaces values evenly", func() {
		s := &automation.ParameterSweep{Min: 1, Max: 2, Steps: 5}
		Expect(s.Values()).To(Equal([]float64{1, 1.25, 1.5, 1.75, 2}))
		s.Steps = 1
		Expect(s.Values()).To(Equal([]float64{1}))
	})

	It("varies the particle count", func() {
		s := &automation.ParameterSweep{Base: smallJob(), Param: automation.ParamParticleCount, Min: 10, Max: 30, Steps: 3}
		points, err := automation.RunSweep(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(3))
		for i, want := range []int{10, 20, 30} {
			Expect(points[i].Particles).To(Equal(want))
			Expect(points[i].Tier).To(Equal("basic"))
			Expect(points[i].Jitter.Frames).To(Equal(12))
		}
	})

	It("rejects out-of-range coverage", func() {
		s := &automation.ParameterSweep{Base: smallJob(), Param: automation.ParamCoverage, Min: 0.5, Max: 1.5, Steps: 3}
		_, err := automation.RunSweep(context.Background(), s)
		Expect(errors.Is(err, engine.ErrConfiguration)).To(BeTrue())
	})

	It("rejects unknown parameters and inverted ranges", func() {
		_, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{Base: smallJob(), Param: "voltage", Min: 0, Max: 1, Steps: 2})
		Expect(err).To(HaveOccurred())
		_, err = automation.RunSweep(context.Background(), &automation.ParameterSweep{Base: smallJob(), Param: automation.ParamVelocity, Min: 2, Max: 1, Steps: 2})
		Expect(err).To(HaveOccurred())
	})
})
