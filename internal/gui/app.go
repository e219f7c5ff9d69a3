// Package gui is the desktop front end of mesviz. It opens a raylib window,
// mounts one viewer on the window's OpenGL context and flushes the frame
// queue once per window frame.
package gui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
	"github.com/san-kum/mesviz/internal/viewer"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColWarn    = rl.NewColor(230, 170, 60, 255)
	ColError   = rl.NewColor(230, 90, 90, 255)
)

const (
	hudWidth    = 260
	orbitPerPx  = 0.005
	keyOrbit    = 0.03
	telemetryN  = 200
	defaultFPS  = 60
	defaultW    = 1280
	defaultH    = 720
	windowTitle = "mesviz"
)

// Options configures a desktop session.
type Options struct {
	Definition    scene.ModelDefinition
	Name          string
	Width, Height int
	FPS           int
	Capacity      int
	Seed          int64
	Quality       *quality.Tier
	MaxFrameDelta time.Duration
	PixelRatio    float64
	Store         *storage.Store
}

// App owns the window session: one engine, one viewer and the HUD state.
type App struct {
	opts      Options
	host      *Host
	eng       *viewer.Engine
	view      *viewer.Viewer
	set       metrics.Set
	rec       *metrics.Recorder
	telemetry []float64
	status    string
	partIndex int
}

func initWindow(opts Options) {
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(opts.Width), int32(opts.Height), windowTitle)
	rl.SetTargetFPS(int32(opts.FPS))
	rl.SetExitKey(0)
}

// Run opens the window and blocks until it is closed.
func Run(opts Options) error {
	if opts.Width <= 0 {
		opts.Width = defaultW
	}
	if opts.Height <= 0 {
		opts.Height = defaultH
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	initWindow(opts)
	defer rl.CloseWindow()

	a, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer a.eng.Close()
	a.RunLoop()
	return nil
}

// NewApp mounts opts.Definition. The window must already be open.
func NewApp(opts Options) (*App, error) {
	a := &App{
		opts:      opts,
		host:      NewHost(),
		set:       metrics.NewSet(opts.MaxFrameDelta.Seconds()),
		rec:       metrics.NewRecorder(telemetryN),
		partIndex: -1,
	}
	a.eng = viewer.New(viewer.Options{
		Host:          a.host,
		Capacity:      opts.Capacity,
		Seed:          opts.Seed,
		MaxFrameDelta: opts.MaxFrameDelta,
		Quality:       opts.Quality,
		Observer:      metrics.Observers{a.set, a.rec, metrics.ObserverFunc(a.observe)},
	})
	v, err := a.eng.Mount(viewer.Surface{
		Width:      opts.Width - hudWidth,
		Height:     opts.Height,
		PixelRatio: opts.PixelRatio,
	}, opts.Definition)
	if err != nil {
		return nil, err
	}
	a.view = v
	v.OnReady(func() {
		engine.Logger().Info("gui viewer ready", "viewer", v.ID(), "tier", v.Tier())
	})
	v.OnSelect(func(id string) { a.status = "selected " + id })
	v.OnError(func(err error) { a.status = err.Error() })
	return a, nil
}

func (a *App) observe(metrics.Frame) {
	a.telemetry = append(a.telemetry, a.set.Values()["fps"])
	if len(a.telemetry) > telemetryN {
		a.telemetry = a.telemetry[len(a.telemetry)-telemetryN:]
	}
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if a.Update() {
			return
		}
		a.eng.Queue().Flush(time.Now())
		a.Draw()
	}
}

// Update handles input. It reports true when the user asked to quit.
func (a *App) Update() bool {
	v := a.view
	if rl.IsKeyPressed(rl.KeyQ) {
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		if v.State() == viewer.Paused {
			v.Resume()
		} else {
			v.Pause()
		}
	}
	if rl.IsKeyPressed(rl.KeyR) {
		if err := v.Retry(); err != nil {
			a.status = err.Error()
		}
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.cycleSelection()
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		v.ClearSelection()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		a.capture()
	}
	if f := v.Flow(); f != nil {
		if rl.IsKeyPressed(rl.KeyLeftBracket) {
			f.SetSpeed(max(f.Speed()/1.5, 0.1))
		}
		if rl.IsKeyPressed(rl.KeyRightBracket) {
			f.SetSpeed(min(f.Speed()*1.5, 10))
		}
	}

	cam := v.Camera()
	if cam == nil {
		return false
	}
	if rl.IsKeyDown(rl.KeyA) || rl.IsKeyDown(rl.KeyLeft) {
		cam.Orbit(-keyOrbit, 0)
	}
	if rl.IsKeyDown(rl.KeyD) || rl.IsKeyDown(rl.KeyRight) {
		cam.Orbit(keyOrbit, 0)
	}
	if rl.IsKeyDown(rl.KeyW) || rl.IsKeyDown(rl.KeyUp) {
		cam.Orbit(0, keyOrbit)
	}
	if rl.IsKeyDown(rl.KeyS) || rl.IsKeyDown(rl.KeyDown) {
		cam.Orbit(0, -keyOrbit)
	}
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		d := rl.GetMouseDelta()
		cam.Orbit(float64(d.X)*orbitPerPx, float64(d.Y)*orbitPerPx)
	}
	if wheel := rl.GetMouseWheelMove(); wheel > 0 {
		cam.ZoomIn()
	} else if wheel < 0 {
		cam.ZoomOut()
	}
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		p := rl.GetMousePosition()
		if int(p.X) < v.Surface().Width {
			if _, ok := v.PickAt(float64(p.X), float64(p.Y)); !ok {
				v.ClearSelection()
			}
		}
	}
	return false
}

func (a *App) cycleSelection() {
	g := a.view.Graph()
	if g == nil {
		return
	}
	ids := g.Selectable()
	if len(ids) == 0 {
		return
	}
	a.partIndex = (a.partIndex + 1) % len(ids)
	_ = a.view.Select(ids[a.partIndex])
}

func (a *App) capture() {
	v := a.view
	img, err := v.CaptureFrame()
	if err != nil {
		a.status = err.Error()
		return
	}
	if a.opts.Store == nil {
		a.status = "no capture store"
		return
	}
	id, err := a.opts.Store.Save(storage.CaptureMetadata{
		Model:   a.opts.Name,
		Variant: v.Definition().Variant().Name(),
		Host:    a.host.Name(),
		Tier:    v.Tier(),
		Quality: v.Settings(),
		Seed:    a.opts.Seed,
		Frames:  v.Frames(),
		Width:   v.Surface().Width,
		Height:  v.Surface().Height,
		Metrics: a.set.Values(),
	}, a.rec.Frames(), img)
	if err != nil {
		a.status = err.Error()
		return
	}
	a.status = "saved " + id
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)
	if rt, ok := a.host.Texture(); ok {
		// render textures are stored bottom-up
		src := rl.NewRectangle(0, 0, float32(rt.Texture.Width), -float32(rt.Texture.Height))
		dst := rl.NewRectangle(0, 0, float32(a.view.Surface().Width), float32(a.view.Surface().Height))
		rl.DrawTexturePro(rt.Texture, src, dst, rl.NewVector2(0, 0), 0, rl.White)
	} else {
		a.drawMessage()
	}
	a.DrawHUD()
	rl.EndDrawing()
}

// drawMessage centres the fallback or failure text over the scene area.
func (a *App) drawMessage() {
	v := a.view
	msg := "waiting for renderer"
	col := ColText
	switch v.State() {
	case viewer.Fallback:
		msg, col = v.Message(), ColWarn
	case viewer.Failed:
		msg, col = "render failed: press R to retry", ColError
	}
	w := rl.MeasureText(msg, 20)
	x := int32(v.Surface().Width)/2 - w/2
	rl.DrawText(msg, x, int32(v.Surface().Height)/2-10, 20, col)
}

func (a *App) DrawHUD() {
	v := a.view
	x := int32(v.Surface().Width + 20)
	y := int32(24)
	line := func(text string, size int32, col rl.Color) {
		rl.DrawText(text, x, y, size, col)
		y += size + 8
	}
	line(v.Definition().Title(), 20, ColAccent)
	line(v.State().String(), 14, stateColor(v.State()))
	y += 8
	line(fmt.Sprintf("host   %s", a.host.Name()), 14, ColText)
	line(fmt.Sprintf("tier   %s", v.Tier()), 14, ColText)
	line(fmt.Sprintf("frames %d", v.Frames()), 14, ColText)
	line(fmt.Sprintf("fps    %d", rl.GetFPS()), 14, ColText)
	if f := v.Flow(); f != nil {
		st := f.Stats()
		line(fmt.Sprintf("flow   %s x%.2f", v.Definition().Flow.Kind, f.Speed()), 14, ColText)
		line(fmt.Sprintf("parts  %d", st.Particles), 14, ColText)
		line(fmt.Sprintf("recyc  %d", st.Recycled), 14, ColText)
	}
	if b := v.Biofilm(); b != nil {
		line(fmt.Sprintf("film   %.2f", b.Opacity), 14, ColText)
	}
	if sel := v.Selected(); sel != "" {
		line("sel    "+sel, 14, ColAccent)
	}
	a.drawTelemetry(x, y+10, hudWidth-40, 60)
	if a.status != "" {
		rl.DrawText(a.status, x, int32(rl.GetScreenHeight())-90, 12, ColTextDim)
	}
	rl.DrawText("SPACE pause  R retry  TAB select", x, int32(rl.GetScreenHeight())-60, 12, ColTextDim)
	rl.DrawText("WASD/RMB orbit  wheel zoom  C capture", x, int32(rl.GetScreenHeight())-40, 12, ColTextDim)
}

func stateColor(s viewer.State) rl.Color {
	switch s {
	case viewer.Running:
		return ColAccent
	case viewer.Failed:
		return ColError
	case viewer.Paused, viewer.Pending, viewer.Fallback:
		return ColWarn
	}
	return ColTextDim
}

// drawTelemetry plots the recent frame rate as a line strip.
func (a *App) drawTelemetry(x, y, w, h int32) {
	pts := telemetryPoints(a.telemetry, float32(x), float32(y), float32(w), float32(h))
	if len(pts) < 2 {
		return
	}
	rl.DrawRectangleLines(x, y, w, h, ColTextDim)
	rl.DrawLineStrip(pts, ColAccent)
}

func telemetryPoints(values []float64, x, y, w, h float32) []rl.Vector2 {
	if len(values) < 2 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	pts := make([]rl.Vector2, len(values))
	for i, v := range values {
		px := x + w*float32(i)/float32(len(values)-1)
		py := y + h - h*float32((v-lo)/rng)
		pts[i] = rl.NewVector2(px, py)
	}
	return pts
}
