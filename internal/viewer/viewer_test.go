package viewer_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/backend/backendtest"
	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/viewer"
)

var gpu = backend.Info{Name: "gpu", Renderer: "fake", MaxTextureSize: 16384, MaxSamples: 8, FloatTextures: true}

func mfc() scene.ModelDefinition {
	return scene.ModelDefinition{
		Type:    scene.ModelType{Variant: scene.MFC{}},
		Flow:    &flow.Pattern{Kind: flow.ElectronPath, ParticleCount: 40, Velocity: 3},
		Biofilm: &biofilm.Spec{Thickness: 0.3, Coverage: 0.5, Animated: true},
	}
}

var _ = Describe("Engine", func() {
	var (
		host     *backendtest.Host
		clock    *hostClock
		eng      *viewer.Engine
		recorder *metrics.Recorder
		capacity int
		surface  viewer.Surface
	)

	frame := func() {
		clock.Advance(16 * time.Millisecond)
		eng.Flush()
	}

	JustBeforeEach(func() {
		recorder = metrics.NewRecorder(0)
		eng = viewer.New(viewer.Options{
			Host:     host,
			Capacity: capacity,
			Seed:     42,
			Clock:    clock.Now,
			Observer: recorder,
		})
	})

	BeforeEach(func() {
		host = backendtest.New(gpu)
		clock = &hostClock{now: time.Unix(1700000000, 0)}
		capacity = 4
		surface = viewer.Surface{Width: 320, Height: 240, PixelRatio: 2}
	})

	Describe("Mount", func() {
		It("draws and fires OnReady exactly once", func() {
			v, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			Expect(v.State()).To(Equal(viewer.Running))

			ready := 0
			v.OnReady(func() { ready++ })
			frame()
			frame()
			Expect(ready).To(Equal(1))
			Expect(v.Frames()).To(Equal(2))

			late := false
			v.OnReady(func() { late = true })
			Expect(late).To(BeTrue())
		})

		It("requests a context that keeps its drawing buffer", func() {
			v, _ := eng.Mount(surface, mfc())
			ctx := host.Contexts()[0]
			Expect(ctx.Config.PreserveDrawingBuffer).To(BeTrue())
			Expect(ctx.Config.Antialias).To(BeTrue())
			Expect(ctx.Config.PixelRatio).To(Equal(2.0))
			Expect(ctx.Config.Label).To(Equal(v.HandleID()))
		})

		It("reports frames to the observer", func() {
			v, _ := eng.Mount(surface, mfc())
			frame()
			frame()
			Expect(recorder.Frames()).To(HaveLen(2))
			f := recorder.Frames()[1]
			Expect(f.Viewer).To(Equal(v.ID()))
			Expect(f.Particles).To(Equal(40))
			Expect(f.BiofilmOpacity).To(BeNumerically(">", 0))
		})

		It("rejects an invalid definition without acquiring", func() {
			def := mfc()
			def.Biofilm.Coverage = 3
			_, err := eng.Mount(surface, def)
			Expect(err).To(MatchError(engine.ErrConfiguration))
			Expect(host.Created).To(BeZero())
		})

		It("rejects a duplicate surface id", func() {
			surface.ID = "panel"
			_, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.Mount(surface, mfc())
			Expect(err).To(MatchError(engine.ErrConfiguration))
		})

		It("renders an unsupported model as a placeholder", func() {
			def := mfc()
			def.Type = scene.ModelType{Variant: scene.ParseVariant("algae_pond")}
			v, err := eng.Mount(surface, def)
			Expect(err).NotTo(HaveOccurred())
			frame()
			Expect(v.State()).To(Equal(viewer.Running))
			Expect(v.Graph().Placeholder).To(BeTrue())
			Expect(v.Graph().Message).To(ContainSubstring("algae_pond"))
			Expect(v.Flow()).To(BeNil())
		})
	})

	Describe("capability fallback", func() {
		It("never acquires a renderer when the probe finds nothing", func() {
			host.FailQuery = true
			v, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			Expect(v.State()).To(Equal(viewer.Fallback))
			Expect(v.Err()).To(MatchError(engine.ErrCapability))
			Expect(v.Message()).NotTo(BeEmpty())
			Expect(host.Created).To(BeZero())
			Expect(eng.Pool().Stats().Acquired).To(BeZero())

			frame()
			_, err = v.CaptureFrame()
			Expect(err).To(MatchError(engine.ErrCapability))
			Expect(v.Retry()).To(MatchError(engine.ErrCapability))
		})

		It("falls back when the override is None", func() {
			v, _ := eng.Mount(surface, mfc(), viewer.WithQuality(quality.None))
			Expect(v.State()).To(Equal(viewer.Fallback))
			Expect(host.Created).To(BeZero())
		})

		It("probes the host once per session", func() {
			eng.Mount(viewer.Surface{Width: 10, Height: 10}, mfc())
			eng.Mount(viewer.Surface{Width: 10, Height: 10}, mfc())
			Expect(host.Queries).To(Equal(1))
		})
	})

	Describe("quality override", func() {
		It("lowers the tier", func() {
			v, _ := eng.Mount(surface, mfc(), viewer.WithQuality(quality.Basic))
			Expect(v.Tier()).To(Equal(quality.Basic))
			Expect(v.Settings().Antialias).To(BeFalse())
			Expect(host.Contexts()[0].Config.PixelRatio).To(Equal(1.0))
		})

		It("never raises the tier above the probe", func() {
			host.Info.FloatTextures = false
			v, _ := eng.Mount(surface, mfc(), viewer.WithQuality(quality.Full))
			Expect(v.Tier()).To(Equal(quality.Standard))
			Expect(v.Settings().Shadows).To(BeFalse())
		})
	})

	Describe("Unmount", func() {
		It("cancels frames and releases the renderer together", func() {
			v, _ := eng.Mount(surface, mfc())
			frame()
			ticks := v.Ticks()
			Expect(ticks).To(BeNumerically(">", 0))

			v.Unmount()
			Expect(v.State()).To(Equal(viewer.Unmounted))
			Expect(host.Live()).To(BeZero())
			Expect(eng.Queue().Len()).To(BeZero())

			for i := 0; i < 5; i++ {
				frame()
			}
			Expect(v.Ticks()).To(Equal(ticks))
			_, err := v.CaptureFrame()
			Expect(err).To(MatchError(engine.ErrUnmounted))
		})

		It("does not run a callback already collected by the host", func() {
			a, _ := eng.Mount(surface, mfc())
			b, _ := eng.Mount(surface, mfc())
			a.OnReady(func() { eng.Unmount(b) })

			frame()
			Expect(b.State()).To(Equal(viewer.Unmounted))
			Expect(b.Ticks()).To(BeZero())
			Expect(b.Frames()).To(BeZero())
		})

		It("remounts a surface after unmount", func() {
			surface.ID = "panel"
			first, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			frame()
			released := first.HandleID()
			first.Unmount()

			second, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID()).To(Equal("panel"))
			Expect(second.State()).To(Equal(viewer.Running))
			Expect(second.Err()).NotTo(HaveOccurred())
			Expect(second.HandleID()).NotTo(Equal(released))
			frame()
			Expect(second.Frames()).To(Equal(1))
			Expect(host.Live()).To(Equal(1))
		})

		It("is idempotent", func() {
			v, _ := eng.Mount(surface, mfc())
			v.Unmount()
			eng.Unmount(v)
			Expect(host.Destroyed).To(Equal(1))
		})
	})

	Describe("render errors", func() {
		It("stop only the failing viewer and allow a retry", func() {
			a, _ := eng.Mount(surface, mfc())
			b, _ := eng.Mount(surface, mfc())
			frame()
			failedID := a.HandleID()

			var reported []error
			a.OnError(func(err error) { reported = append(reported, err) })
			host.Contexts()[0].FailNextPresent = true
			frame()

			Expect(a.State()).To(Equal(viewer.Failed))
			Expect(reported).To(HaveLen(1))
			var re *engine.RenderError
			Expect(a.Err()).To(BeAssignableToTypeOf(re))
			Expect(engine.IsRetryable(a.Err())).To(BeTrue())
			Expect(host.Contexts()[0].Destroyed).To(BeTrue())

			before := b.Frames()
			frame()
			frame()
			Expect(b.State()).To(Equal(viewer.Running))
			Expect(b.Frames()).To(Equal(before + 2))

			Expect(a.Retry()).To(Succeed())
			Expect(a.State()).To(Equal(viewer.Running))
			Expect(a.HandleID()).To(HavePrefix(a.ID() + "#"))
			Expect(a.HandleID()).NotTo(Equal(failedID))
			frame()
			Expect(a.Frames()).To(Equal(2))
		})
	})

	Describe("capacity", func() {
		BeforeEach(func() { capacity = 2 })

		It("queues the third viewer until one unmounts", func() {
			a, _ := eng.Mount(surface, mfc())
			_, _ = eng.Mount(surface, mfc())
			c, err := eng.Mount(surface, mfc())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.State()).To(Equal(viewer.Pending))
			Expect(c.HandleID()).To(BeEmpty())

			frame()
			Expect(c.Frames()).To(BeZero())

			a.Unmount()
			Expect(c.State()).To(Equal(viewer.Running))
			frame()
			Expect(c.Frames()).To(Equal(1))
			Expect(host.Live()).To(Equal(2))
		})

		It("lets a paused viewer's renderer be evicted and reacquired", func() {
			eng = viewer.New(viewer.Options{Host: host, Capacity: 1, Clock: clock.Now})
			a, _ := eng.Mount(surface, mfc())
			frame()
			first := a.HandleID()
			a.Pause()
			Expect(a.State()).To(Equal(viewer.Paused))

			b, _ := eng.Mount(surface, mfc())
			Expect(b.State()).To(Equal(viewer.Running))
			Expect(eng.Pool().Stats().Evicted).To(BeEquivalentTo(1))

			a.Resume()
			Expect(a.State()).To(Equal(viewer.Pending))

			b.Unmount()
			Expect(a.State()).To(Equal(viewer.Running))
			Expect(a.HandleID()).To(HavePrefix(a.ID() + "#"))
			Expect(a.HandleID()).NotTo(Equal(first))
			frame()
			Expect(a.Frames()).To(Equal(2))
		})
	})

	Describe("Pause", func() {
		It("stops ticking and resumes without backlog", func() {
			v, _ := eng.Mount(surface, mfc())
			frame()
			frame()
			v.Pause()
			ticks := v.Ticks()
			clock.Advance(10 * time.Second)
			eng.Flush()
			Expect(v.Ticks()).To(Equal(ticks))

			simTime := v.Flow().Time()
			v.Resume()
			frame()
			Expect(v.Flow().Time() - simTime).To(BeNumerically("~", 0.016, 1e-9))
		})
	})

	Describe("CaptureFrame", func() {
		It("works between frames and while paused", func() {
			v, _ := eng.Mount(surface, mfc())
			_, err := v.CaptureFrame()
			Expect(err).NotTo(HaveOccurred())

			frame()
			v.Pause()
			img, err := v.CaptureFrame()
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(320))
		})

		It("fails while pending", func() {
			eng = viewer.New(viewer.Options{Host: host, Capacity: 1, Clock: clock.Now})
			eng.Mount(surface, mfc())
			v, _ := eng.Mount(surface, mfc())
			_, err := v.CaptureFrame()
			Expect(err).To(MatchError(viewer.ErrNotReady))
		})
	})

	Describe("selection", func() {
		It("picks the part under the cursor", func() {
			def := mfc()
			def.Biofilm = nil
			v, _ := eng.Mount(surface, def)
			var picked []string
			v.OnSelect(func(id string) { picked = append(picked, id) })

			anode, ok := v.Graph().Find("anode")
			Expect(ok).To(BeTrue())
			x, y, _, visible := v.Camera().Project(anode.Bounds().Center(), surface.Width, surface.Height)
			Expect(visible).To(BeTrue())

			id, ok := v.PickAt(x, y)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal("anode"))
			Expect(picked).To(Equal([]string{"anode"}))
			Expect(v.Selected()).To(Equal("anode"))
		})

		It("misses empty space", func() {
			v, _ := eng.Mount(surface, mfc())
			_, ok := v.PickAt(-100, -100)
			Expect(ok).To(BeFalse())
		})

		It("rejects unknown parts", func() {
			v, _ := eng.Mount(surface, mfc())
			Expect(v.Select("flux-capacitor")).NotTo(Succeed())
			Expect(v.Select("membrane")).To(Succeed())
		})
	})
})
