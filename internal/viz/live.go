package viz

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/quality"
	"github.com/san-kum/mesviz/internal/scene"
	"github.com/san-kum/mesviz/internal/storage"
	"github.com/san-kum/mesviz/internal/viewer"
)

const (
	defaultCols     = 80
	defaultRows     = 24
	panelWidth      = 40
	historyCapacity = 240
	maxGIFFrames    = 600
	orbitStep       = 0.12
)

type TickMsg time.Time

// Options configures a live terminal session.
type Options struct {
	Definition    scene.ModelDefinition
	Name          string
	Quality       *quality.Tier
	Capacity      int
	Seed          int64
	FPS           int
	MaxFrameDelta time.Duration
	Theme         string
	// Store receives captures taken with 'c'. Nil disables captures.
	Store *storage.Store
	// Cols and Rows size the canvas in terminal cells until the first
	// window size message arrives.
	Cols, Rows int
	Clock      func() time.Time
}

// session holds everything viewer callbacks mutate. Model is copied by
// bubbletea on every update, so this lives behind a pointer.
type session struct {
	opts     Options
	host     *TermHost
	eng      *viewer.Engine
	view     *viewer.Viewer
	set      metrics.Set
	rec      *metrics.Recorder
	fps      []float64
	events   []string
	ready    bool
	gif      []*image.Paletted
	delays   []int
	lastSnap time.Time
}

// Model is the bubbletea model of the live terminal viewer.
type Model struct {
	s         *session
	cols      int
	rows      int
	theme     int
	partIndex int
	recording bool
	showHelp  bool
}

// NewModel mounts opts.Definition on a terminal host.
func NewModel(opts Options) (Model, error) {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.MaxFrameDelta <= 0 {
		opts.MaxFrameDelta = viewer.DefaultMaxFrameDelta
	}
	if opts.Cols <= 0 {
		opts.Cols = defaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = defaultRows
	}
	s := &session{
		opts: opts,
		host: NewTermHost(),
		set:  metrics.NewSet(opts.MaxFrameDelta.Seconds()),
		rec:  metrics.NewRecorder(historyCapacity),
	}
	s.eng = viewer.New(viewer.Options{
		Host:          s.host,
		Capacity:      opts.Capacity,
		Seed:          opts.Seed,
		MaxFrameDelta: opts.MaxFrameDelta,
		Quality:       opts.Quality,
		Clock:         opts.Clock,
		Observer:      metrics.Observers{s.set, s.rec, metrics.ObserverFunc(s.observe)},
	})
	m := Model{s: s, cols: opts.Cols, rows: opts.Rows, theme: themeIndex(opts.Theme), partIndex: -1}
	if err := m.mount(); err != nil {
		s.eng.Close()
		return Model{}, err
	}
	return m, nil
}

// surface sizes the scene to the terminal area left of the stats panel.
func (m Model) surface() viewer.Surface {
	cols := max(m.cols-panelWidth-4, 10)
	rows := max(m.rows-2, 4)
	return viewer.Surface{Width: cols * 2, Height: rows * 4, PixelRatio: 1}
}

func (m Model) mount() error {
	s := m.s
	v, err := s.eng.Mount(m.surface(), s.opts.Definition)
	if err != nil {
		return err
	}
	s.view = v
	s.ready = false
	v.OnReady(func() {
		s.ready = true
		s.event("ready at %s tier", v.Tier())
	})
	v.OnSelect(func(id string) { s.event("selected %s", id) })
	v.OnError(func(err error) { s.event("render error: %v", err) })
	if v.State() == viewer.Fallback {
		s.event("%s", v.Message())
	}
	return nil
}

// remount swaps the viewer for one sized to the current terminal, keeping
// the camera and selection.
func (m Model) remount() error {
	s := m.s
	old := s.view
	if old != nil && old.Surface().Width == m.surface().Width && old.Surface().Height == m.surface().Height {
		return nil
	}
	var cam *viewer.Viewer
	selected := ""
	if old != nil {
		cam, selected = old, old.Selected()
		old.Unmount()
	}
	if err := m.mount(); err != nil {
		return err
	}
	if cam != nil && cam.Camera() != nil && s.view.Camera() != nil {
		*s.view.Camera() = *cam.Camera()
	}
	if selected != "" {
		_ = s.view.Select(selected)
	}
	return nil
}

func (s *session) event(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
	if len(s.events) > 4 {
		s.events = s.events[len(s.events)-4:]
	}
}

func (s *session) observe(metrics.Frame) {
	s.fps = append(s.fps, s.set.Values()["fps"])
	if len(s.fps) > historyCapacity {
		s.fps = s.fps[len(s.fps)-historyCapacity:]
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.s.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Update flushes the frame queue on every tick and maps keys onto the
// viewer API.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := m.s
	switch msg := msg.(type) {
	case TickMsg:
		s.eng.Queue().Flush(time.Time(msg))
		if m.recording {
			m.snapshot(time.Time(msg))
		}
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		if err := m.remount(); err != nil {
			s.event("remount: %v", err)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.s
	v := s.view
	switch msg.String() {
	case "q", "ctrl+c":
		if m.recording {
			m.saveGIF()
		}
		s.eng.Close()
		return m, tea.Quit
	case " ":
		if v.State() == viewer.Paused {
			v.Resume()
		} else {
			v.Pause()
		}
	case "r":
		if err := v.Retry(); err != nil {
			s.event("retry: %v", err)
		}
	case "left", "h":
		m.orbit(-orbitStep, 0)
	case "right", "l":
		m.orbit(orbitStep, 0)
	case "up", "k":
		m.orbit(0, orbitStep)
	case "down", "j":
		m.orbit(0, -orbitStep)
	case "+", "=":
		if c := v.Camera(); c != nil {
			c.ZoomIn()
		}
	case "-", "_":
		if c := v.Camera(); c != nil {
			c.ZoomOut()
		}
	case "tab":
		m.cycleSelection(1)
	case "shift+tab":
		m.cycleSelection(-1)
	case "esc":
		v.ClearSelection()
	case "[":
		if f := v.Flow(); f != nil {
			f.SetSpeed(max(f.Speed()/1.5, 0.1))
		}
	case "]":
		if f := v.Flow(); f != nil {
			f.SetSpeed(min(f.Speed()*1.5, 10))
		}
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
	case "c":
		m.capture()
	case "g":
		if m.recording {
			m.saveGIF()
		} else {
			s.gif, s.delays, s.lastSnap = nil, nil, time.Time{}
			s.event("recording gif")
		}
		m.recording = !m.recording
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m Model) orbit(dyaw, dpitch float64) {
	if c := m.s.view.Camera(); c != nil {
		c.Orbit(dyaw, dpitch)
	}
}

// selectable lists part ids in graph order, skipping groups.
func (m Model) selectable() []string {
	g := m.s.view.Graph()
	if g == nil {
		return nil
	}
	return g.Selectable()
}

func (m *Model) cycleSelection(dir int) {
	ids := m.selectable()
	if len(ids) == 0 {
		return
	}
	m.partIndex = ((m.partIndex+dir)%len(ids) + len(ids)) % len(ids)
	if err := m.s.view.Select(ids[m.partIndex]); err != nil {
		m.s.event("select: %v", err)
	}
}

func (m Model) capture() {
	s := m.s
	img, err := s.view.CaptureFrame()
	if err != nil {
		s.event("capture: %v", err)
		return
	}
	if s.opts.Store == nil {
		s.event("capture: no store configured")
		return
	}
	v := s.view
	id, err := s.opts.Store.Save(storage.CaptureMetadata{
		Model:   s.opts.Name,
		Variant: v.Definition().Variant().Name(),
		Host:    s.host.Name(),
		Tier:    v.Tier(),
		Quality: v.Settings(),
		Seed:    s.opts.Seed,
		Frames:  v.Frames(),
		Width:   v.Surface().Width,
		Height:  v.Surface().Height,
		Metrics: s.set.Values(),
	}, s.rec.Frames(), img)
	if err != nil {
		s.event("capture: %v", err)
		return
	}
	s.event("saved %s", id)
}

func (m Model) snapshot(now time.Time) {
	s := m.s
	if len(s.gif) >= maxGIFFrames {
		return
	}
	img, err := s.view.CaptureFrame()
	if err != nil {
		return
	}
	frame := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(frame, img.Bounds(), img, image.Point{})
	delay := 100 / m.s.opts.FPS
	if !s.lastSnap.IsZero() {
		delay = int(now.Sub(s.lastSnap) / (10 * time.Millisecond))
	}
	s.lastSnap = now
	s.gif = append(s.gif, frame)
	s.delays = append(s.delays, max(delay, 2))
}

func (m Model) saveGIF() {
	s := m.s
	if len(s.gif) == 0 {
		s.event("gif: no frames")
		return
	}
	name := fmt.Sprintf("mesviz_%d.gif", time.Now().Unix())
	f, err := os.Create(name)
	if err != nil {
		s.event("gif: %v", err)
		return
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &gif.GIF{Image: s.gif, Delay: s.delays}); err != nil {
		s.event("gif: %v", err)
		return
	}
	s.event("saved %s (%d frames)", name, len(s.gif))
	s.gif, s.delays = nil, nil
}

// View renders the canvas beside the stats panel.
func (m Model) View() string {
	s := m.s
	st := newStyles(Themes[m.theme])
	v := s.view

	canvas := s.host.Frame()
	if canvas == "" {
		canvas = m.placeholder(st)
	}

	var b strings.Builder
	title := v.Definition().Title()
	b.WriteString(st.title.Render(strings.ToUpper(title)) + "\n")
	b.WriteString(m.status(st) + "\n\n")

	row := func(label, value string) {
		b.WriteString(st.label.Render(fmt.Sprintf("%-10s", label)) + st.value.Render(value) + "\n")
	}
	row("Host", s.host.Name())
	row("Tier", v.Tier().String())
	row("Frames", fmt.Sprintf("%d", v.Frames()))
	vals := s.set.Values()
	row("FPS", fmt.Sprintf("%.1f", vals["fps"]))
	if f := v.Flow(); f != nil {
		fs := f.Stats()
		row("Flow", v.Definition().Flow.Kind.String())
		row("Particles", fmt.Sprintf("%d", fs.Particles))
		row("Recycled", fmt.Sprintf("%d (%.1f/s)", fs.Recycled, vals["recycled_per_s"]))
		row("Mean age", fmt.Sprintf("%.2fs", fs.MeanAge))
		row("Speed", fmt.Sprintf("%.2fx", f.Speed()))
	}
	if a := v.Biofilm(); a != nil {
		b.WriteString(st.label.Render(fmt.Sprintf("%-10s", "Biofilm")) + st.ProgressBar(a.Opacity, 14) + "\n")
	}
	if sel := v.Selected(); sel != "" {
		row("Selected", sel)
	}
	b.WriteString("\n" + st.Sparkline(s.fps, panelWidth-6) + "\n")
	if series := s.rec.Series(func(f metrics.Frame) float64 { return float64(f.Particles) }); len(series) > 1 {
		b.WriteString(asciigraph.Plot(series, asciigraph.Height(3), asciigraph.Width(panelWidth-12), asciigraph.Caption("particles")) + "\n")
	}
	if len(s.events) > 0 {
		b.WriteString("\n")
		for _, e := range s.events {
			b.WriteString(st.hint.Render(e) + "\n")
		}
	}
	b.WriteString("\n" + st.Separator(panelWidth-4) + "\n")
	b.WriteString(st.hint.Render("SP:pause R:retry TAB:select C:capture\n←↑↓→:orbit +-:zoom []:speed\nT:theme G:gif ?:help Q:quit"))

	panel := st.panel.Width(panelWidth).Render(b.String())
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvas, panel)
	if m.showHelp {
		return helpText + "\n\n" + main
	}
	return main
}

func (m Model) status(st styles) string {
	v := m.s.view
	state := v.State()
	label := strings.ToUpper(state.String())
	if m.recording {
		label += " ● REC"
	}
	switch state {
	case viewer.Running:
		return st.good.Render(label)
	case viewer.Paused, viewer.Pending:
		return st.warning.Render(label)
	case viewer.Failed:
		msg := label
		if err := v.Err(); err != nil {
			msg += ": " + err.Error()
		}
		return st.err.Render(msg)
	case viewer.Fallback:
		return st.err.Render(label)
	}
	return st.label.Render(label)
}

// placeholder fills the canvas area when nothing has been presented.
func (m Model) placeholder(st styles) string {
	surf := m.surface()
	v := m.s.view
	msg := "waiting for renderer"
	switch {
	case v.State() == viewer.Fallback:
		msg = v.Message()
	case v.State() == viewer.Failed && engine.IsRetryable(v.Err()):
		msg = "render failed, press r to retry"
	case v.State() == viewer.Failed:
		msg = "render failed"
	}
	return lipgloss.Place(surf.Width/2, surf.Height/4, lipgloss.Center, lipgloss.Center, st.hint.Render(msg))
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Retry after a failure    ║
║  Arrows   - Orbit camera             ║
║  + / -    - Zoom                     ║
║  Tab      - Select next part         ║
║  Esc      - Clear selection          ║
║  [ / ]    - Flow speed               ║
║  C        - Save capture             ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts a live session in the alternate screen.
func Run(opts Options) error {
	m, err := NewModel(opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
