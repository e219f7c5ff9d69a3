package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mesviz/internal/analysis"
	"github.com/san-kum/mesviz/internal/automation"
	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/config"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/gui"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
	"github.com/san-kum/mesviz/internal/viz"
)

var (
	configFile string
	logLevel   string
	dataDir    string
	preset     string
	hostName   string
	qualityCap string
	seed       int64
	capacity   int
	frames     int
	fps        int
	width      int
	height     int
	pixelRatio float64
	theme      string
	runs       int
	saveSteps  bool
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mesviz",
		Short:        "adaptive 3D viewer for microbial electrochemical systems",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		RunE: runLive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&logLevel, "log-level", "off", "log level (off, debug, info, warn, error)")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "capture directory")
	pf.StringVar(&preset, "preset", "standard", "model preset")
	pf.StringVar(&qualityCap, "quality", "auto", "quality cap (auto, none, basic, standard, full)")
	pf.Int64Var(&seed, "seed", 1, "random seed")
	pf.IntVar(&capacity, "capacity", config.DefaultCapacity, "renderer pool capacity")
	pf.IntVar(&fps, "fps", config.DefaultFPS, "target frames per second")

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "report the capability tier of every rendering host",
		RunE:  probeHosts,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list supported model types",
		RunE:  listModels,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list model presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	renderCmd := &cobra.Command{
		Use:   "render [model|file]",
		Short: "render headless frames and save a capture",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRender,
	}
	headlessFlags(renderCmd)
	renderCmd.Flags().IntVar(&runs, "runs", 1, "render this many consecutive seeds in parallel")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario of headless renders",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	headlessFlags(scenarioCmd)
	scenarioCmd.Flags().BoolVar(&saveSteps, "save", true, "save a capture per step")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model|file]",
		Short: "time headless rendering across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	headlessFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", automation.ParamParticleCount, fmt.Sprintf("parameter to vary %v", automation.SweepParams))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 100, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2000, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	liveCmd := &cobra.Command{
		Use:   "live [model|file]",
		Short: "run the terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&theme, "theme", "lab", fmt.Sprintf("panel theme %v", viz.ThemeNames()))

	guiCmd := &cobra.Command{
		Use:   "gui [model|file]",
		Short: "run the desktop viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	guiCmd.Flags().IntVar(&width, "width", 1280, "window width")
	guiCmd.Flags().IntVar(&height, "height", 720, "window height")
	guiCmd.Flags().Float64Var(&pixelRatio, "pixel-ratio", 1, "device pixel ratio")

	capturesCmd := &cobra.Command{
		Use:   "captures",
		Short: "list saved captures",
		RunE:  listCaptures,
	}

	statsCmd := &cobra.Command{
		Use:   "stats [capture_id]",
		Short: "plot per-frame statistics of a capture",
		Args:  cobra.ExactArgs(1),
		RunE:  plotCapture,
	}

	exportCmd := &cobra.Command{
		Use:   "export [capture_id]",
		Short: "write a capture as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCapture,
	}

	rootCmd.AddCommand(probeCmd, modelsCmd, presetsCmd, renderCmd, scenarioCmd, sweepCmd,
		liveCmd, guiCmd, capturesCmd, statsCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func headlessFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&hostName, "host", "auto", fmt.Sprintf("rendering host (auto, %s)", strings.Join(backend.Names(), ", ")))
	f.IntVar(&frames, "frames", config.DefaultFrames, "frames to render")
	f.IntVar(&width, "width", config.DefaultWidth, "surface width")
	f.IntVar(&height, "height", config.DefaultHeight, "surface height")
	f.Float64Var(&pixelRatio, "pixel-ratio", 1, "device pixel ratio")
}

func setupLogging(level string) error {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "", "off", "none":
		return nil
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	engine.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
	return nil
}

// loadConfig reads --config when given and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("quality") {
		cfg.Quality = qualityCap
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("capacity") {
		cfg.Capacity = capacity
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("host") {
		cfg.Host = hostName
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("width") {
		cfg.Surface.Width = width
	}
	if flags.Changed("height") {
		cfg.Surface.Height = height
	}
	if flags.Changed("pixel-ratio") {
		cfg.Surface.PixelRatio = pixelRatio
	}
	return cfg, nil
}

// resolveDefinition turns the optional [model|file] argument into a model
// definition. Paths ending in .yaml, .yml or .json are read from disk.
func resolveDefinition(cfg *config.Config, args []string) (scene.ModelDefinition, string, error) {
	if len(args) == 0 {
		def, err := cfg.Definition()
		return def, cfg.Model, err
	}
	arg := args[0]
	if config.IsDefinitionFile(arg) {
		def, err := config.LoadDefinition(arg)
		if err != nil {
			return scene.ModelDefinition{}, "", err
		}
		return def, def.Variant().Name(), nil
	}
	cfg.Model = arg
	def, err := cfg.Definition()
	return def, arg, err
}

func probeHosts(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tTIER\tRENDERER\tMAX TEXTURE\tSAMPLES\tSETTINGS")
	for _, name := range backend.Names() {
		h, err := backend.Lookup(name)
		if err != nil {
			return err
		}
		info, qerr := h.Query()
		tier := quality.Probe(h)
		renderer := info.Renderer
		if qerr != nil {
			renderer = qerr.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%+v\n", name, tier, renderer, info.MaxTextureSize, info.MaxSamples, quality.Adapt(tier))
	}
	return w.Flush()
}

func listModels(cmd *cobra.Command, args []string) error {
	for _, name := range scene.Variants() {
		fmt.Printf("  %-16s presets: %s\n", name, strings.Join(config.ListPresets(name), ", "))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := config.Models()
	if len(args) == 1 {
		models = []string{args[0]}
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESET\tFLOW\tPARTICLES\tBIOFILM")
	for _, m := range models {
		names := config.ListPresets(m)
		if len(names) == 0 {
			return fmt.Errorf("no presets for %q (available: %v)", m, config.Models())
		}
		for _, p := range names {
			def := config.GetPreset(m, p)
			flowDesc, particles, film := "-", "-", "-"
			if def.Flow != nil {
				flowDesc = def.Flow.Kind.String()
				particles = fmt.Sprint(def.Flow.ParticleCount)
			}
			if def.Biofilm != nil {
				film = fmt.Sprintf("%.0f%%", def.Biofilm.Coverage*100)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m, p, flowDesc, particles, film)
		}
	}
	return w.Flush()
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	def, name, err := resolveDefinition(cfg, args)
	if err != nil {
		return err
	}
	job, err := automation.JobFromConfig(cfg, name, def)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []*automation.Result
	if runs > 1 {
		results, err = automation.Ensemble(ctx, job, runs, cfg.Seed)
	} else {
		var res *automation.Result
		res, err = automation.Render(ctx, job)
		results = append(results, res)
	}
	if err != nil {
		return err
	}
	return saveResults(storage.New(cfg.DataDir), results)
}

func saveResults(st *storage.Store, results []*automation.Result) error {
	for _, res := range results {
		id, err := res.Save(st)
		if err != nil {
			return err
		}
		fmt.Printf("capture: %s\n", id)
		fmt.Printf("  %s\n", automation.Summary(res))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := automation.RunScenario(ctx, sc, cfg)
	if !saveSteps {
		for _, res := range results {
			fmt.Println(automation.Summary(res))
		}
		return err
	}
	if serr := saveResults(storage.New(cfg.DataDir), results); serr != nil {
		return serr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	def, name, err := resolveDefinition(cfg, args)
	if err != nil {
		return err
	}
	job, err := automation.JobFromConfig(cfg, name, def)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	points, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:  job,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTIER\tPARTICLES\tFRAME COST\tRECYCLED/S\tSTABILITY\n", strings.ToUpper(sweepParam))
	cost := make([]float64, len(points))
	for i, p := range points {
		cost[i] = float64(p.FrameCost.Microseconds()) / 1000
		fmt.Fprintf(w, "%g\t%s\t%d\t%s\t%.1f\t%.3f\n",
			p.Value, p.Tier, p.Particles, p.FrameCost, p.Metrics["recycled_per_s"], p.Metrics["stability"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(cost) > 1 && !flat(cost) {
		fmt.Println()
		fmt.Println(asciigraph.Plot(cost,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("frame cost (ms) by "+sweepParam),
		))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	def, name, err := resolveDefinition(cfg, args)
	if err != nil {
		return err
	}
	qc, err := cfg.QualityCap()
	if err != nil {
		return err
	}
	return viz.Run(viz.Options{
		Definition:    def,
		Name:          name,
		Quality:       qc,
		Capacity:      cfg.Capacity,
		Seed:          cfg.Seed,
		FPS:           cfg.FPS,
		MaxFrameDelta: cfg.MaxFrameDelta,
		Theme:         theme,
		Store:         storage.New(cfg.DataDir),
	})
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	def, name, err := resolveDefinition(cfg, args)
	if err != nil {
		return err
	}
	qc, err := cfg.QualityCap()
	if err != nil {
		return err
	}
	w, h := width, height
	if !cmd.Flags().Changed("width") && configFile != "" {
		w = cfg.Surface.Width
	}
	if !cmd.Flags().Changed("height") && configFile != "" {
		h = cfg.Surface.Height
	}
	return gui.Run(gui.Options{
		Definition:    def,
		Name:          name,
		Width:         w,
		Height:        h,
		FPS:           cfg.FPS,
		Capacity:      cfg.Capacity,
		Seed:          cfg.Seed,
		Quality:       qc,
		MaxFrameDelta: cfg.MaxFrameDelta,
		PixelRatio:    cfg.Surface.PixelRatio,
		Store:         storage.New(cfg.DataDir),
	})
}

func listCaptures(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	caps, err := st.List()
	if err != nil {
		return err
	}
	if len(caps) == 0 {
		fmt.Println("no captures found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tHOST\tTIER\tFRAMES\tSIZE\tFPS")
	for _, c := range caps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%dx%d\t%.1f\n",
			c.ID,
			c.Model,
			c.Timestamp.Format(time.DateTime),
			c.Host,
			c.Tier,
			c.Frames,
			c.Width, c.Height,
			c.Metrics["fps"],
		)
	}
	return w.Flush()
}

func plotCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	fmt.Printf("capture: %s\n", meta.ID)
	fmt.Printf("model: %s (%s)  tier: %s\n", meta.Model, meta.Variant, meta.Tier)
	fmt.Printf("frames: %d\n\n", len(rows))

	rec := metrics.NewRecorder(0)
	for _, f := range rows {
		rec.ObserveFrame(f)
	}
	series := []struct {
		caption string
		pick    func(metrics.Frame) float64
	}{
		{"frame dt (ms)", func(f metrics.Frame) float64 { return f.Delta * 1000 }},
		{"particles", func(f metrics.Frame) float64 { return float64(f.Particles) }},
		{"recycled (cumulative)", func(f metrics.Frame) float64 { return float64(f.Recycled) }},
		{"mean particle age (s)", func(f metrics.Frame) float64 { return f.MeanAge }},
		{"biofilm opacity", func(f metrics.Frame) float64 { return f.BiofilmOpacity }},
	}
	for _, s := range series {
		data := rec.Series(s.pick)
		if len(data) == 0 {
			continue
		}
		if flat(data) {
			fmt.Printf("%s: %.3f (constant)\n\n", s.caption, data[0])
			continue
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
		fmt.Println()
	}

	j := analysis.FrameJitter(rows)
	fmt.Printf("frame timing: mean %.2fms  p50 %.2fms  p95 %.2fms  max %.2fms  stddev %.2fms\n",
		j.Mean*1000, j.P50*1000, j.P95*1000, j.Max*1000, j.StdDev*1000)
	if j.Period > 0 {
		fmt.Printf("periodic stall every %.1f frames (strength %.2f)\n", j.Period, j.Strength)
	}
	return nil
}

func exportCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return storage.New(cfg.DataDir).Export(args[0], os.Stdout)
}

func flat(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}
