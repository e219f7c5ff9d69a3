package viewer

import (
	"math"

	"github.com/san-kum/mesviz/internal/backend"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/geom"
	"github.com/san-kum/mesviz/internal/metrics"
	"github.com/san-kum/mesviz/internal/scene"
)

const biofilmOpacity = 0.85

var (
	background = geom.ParseColor("#10141c")
	highlight  = geom.ParseColor("#ffb703")
	shadow     = geom.Color{A: 0.3}
)

func (v *Viewer) draw(f Frame) error {
	if v.handle == nil || v.handle.Context() == nil {
		return &engine.RenderError{Viewer: v.id, Frame: f.Index, Wrapped: ErrNotReady}
	}
	ctx := v.handle.Context()
	v.render(ctx)
	if err := ctx.Present(); err != nil {
		return &engine.RenderError{Viewer: v.id, Frame: f.Index, Wrapped: err}
	}
	v.drawn++
	v.engine.observe(v.frameStats(f))

	if !v.ready {
		v.ready = true
		ready := v.onReady
		v.onReady = nil
		for _, fn := range ready {
			fn()
		}
	}
	return nil
}

func (v *Viewer) frameStats(f Frame) metrics.Frame {
	m := metrics.Frame{Viewer: v.id, Index: f.Index, Delta: f.Delta}
	if v.flow != nil {
		st := v.flow.Stats()
		m.Particles, m.Recycled, m.MeanAge = st.Particles, st.Recycled, st.MeanAge
	}
	if v.anim != nil {
		m.BiofilmOpacity = v.anim.Opacity
	}
	return m
}

// render draws the scene as projected wireframe with particles on top.
func (v *Viewer) render(ctx backend.Context) {
	w, h := ctx.Size()
	ctx.Clear(background)

	width := 1.0
	if v.settings.Antialias {
		width = 1.25
	}
	if v.settings.Shadows {
		v.drawShadows(ctx, w, h)
	}

	v.graph.Walk(func(n *scene.Node) bool {
		if n.Mesh.VertexCount() == 0 {
			return true
		}
		col := n.Material.Color.WithAlpha(0.35 + 0.65*n.Material.Opacity)
		lw := width
		if n.Kind == scene.KindBiofilm && v.anim != nil {
			col = col.WithAlpha(v.anim.Opacity).Brighten(1 + v.anim.Emissive)
		}
		if n.ID == v.selected {
			col, lw = highlight, width*2
		}
		v.drawEdges(ctx, n.Mesh, col, lw, w, h, nil)
		return true
	})

	if v.flow != nil {
		v.drawParticles(ctx, w, h)
	}
}

func (v *Viewer) drawEdges(ctx backend.Context, m *geom.Mesh, col geom.Color, lw float64, w, h int, flatten func(geom.Vec3) geom.Vec3) {
	for _, e := range m.Edges {
		a, b := m.Vertices[e[0]], m.Vertices[e[1]]
		if flatten != nil {
			a, b = flatten(a), flatten(b)
		}
		x0, y0, _, ok0 := v.camera.Project(a, w, h)
		x1, y1, _, ok1 := v.camera.Project(b, w, h)
		if ok0 && ok1 {
			ctx.Line(x0, y0, x1, y1, lw, col)
		}
	}
}

// drawShadows projects solid parts straight down onto the floor plane.
func (v *Viewer) drawShadows(ctx backend.Context, w, h int) {
	floor := v.graph.Bounds().Min.Y
	flatten := func(p geom.Vec3) geom.Vec3 { p.Y = floor; return p }
	v.graph.Walk(func(n *scene.Node) bool {
		if n.Material.Wireframe || n.Mesh.VertexCount() == 0 || n.Kind == scene.KindBiofilm {
			return true
		}
		v.drawEdges(ctx, n.Mesh, shadow, 1, w, h, flatten)
		return true
	})
}

func (v *Viewer) drawParticles(ctx backend.Context, w, h int) {
	p := v.flow.Pattern()
	color := p.Color
	if color == "" {
		color = flow.DefaultColor(p.Kind)
	}
	col := geom.ParseColor(color)
	glow := col.WithAlpha(0.2)
	r := 1.5
	if p.Kind == flow.ElectronPath {
		r = 2
	}
	for _, pt := range v.flow.Particles() {
		x, y, _, ok := v.camera.Project(pt.Position, w, h)
		if !ok {
			continue
		}
		if v.settings.PostProcessing {
			ctx.Disc(x, y, r*3, glow)
		}
		ctx.Disc(x, y, r, col)
	}
}

// PickAt selects the part whose projected outline contains the surface
// point (x, y), preferring the tightest outline and then the nearest, and
// reports its id.
func (v *Viewer) PickAt(x, y float64) (string, bool) {
	if v.graph == nil {
		return "", false
	}
	w, h := v.surface.Width, v.surface.Height
	best, bestDepth, bestArea := "", math.Inf(-1), math.Inf(1)
	v.graph.Walk(func(n *scene.Node) bool {
		if n.Kind == scene.KindGroup || n.Kind == scene.KindLabel || n.Mesh.VertexCount() == 0 {
			return true
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		depth := math.Inf(-1)
		for _, p := range n.Mesh.Vertices {
			px, py, d, ok := v.camera.Project(p, w, h)
			if !ok {
				continue
			}
			minX, maxX = math.Min(minX, px), math.Max(maxX, px)
			minY, maxY = math.Min(minY, py), math.Max(maxY, py)
			depth = math.Max(depth, d)
		}
		if x < minX || x > maxX || y < minY || y > maxY {
			return true
		}
		area := (maxX - minX) * (maxY - minY)
		if area < bestArea || (area == bestArea && depth > bestDepth) {
			best, bestDepth, bestArea = n.ID, depth, area
		}
		return true
	})
	if best == "" {
		return "", false
	}
	_ = v.Select(best)
	return best, true
}
