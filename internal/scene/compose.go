package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mesviz/internal/biofilm"
	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/geom"
)

// Composer turns model definitions into graphs. Biofilm meshes come from
// the shared generator so repeated compositions reuse them.
type Composer struct {
	biofilm *biofilm.Generator
}

func NewComposer(gen *biofilm.Generator) *Composer {
	if gen == nil {
		gen = biofilm.NewGenerator(1)
	}
	return &Composer{biofilm: gen}
}

func (c *Composer) Biofilm() *biofilm.Generator { return c.biofilm }

// Compose builds the graph for def. It never fails: an unsupported variant
// yields a placeholder graph with Placeholder set.
func (c *Composer) Compose(def ModelDefinition) *Graph {
	def = def.withDefaults()
	v := def.Variant()
	g := &Graph{
		Root:    &Node{ID: "root", Kind: KindGroup, Label: def.Title()},
		Variant: v,
		Title:   def.Title(),
		index:   make(map[string]*Node),
	}
	b := &builder{def: def, g: g, parent: g.Root}
	v.build(b)

	if def.Biofilm != nil && !g.Placeholder && !g.AnodeSurface.Empty() {
		spec := *def.Biofilm
		color := spec.Color
		if color == "" {
			color = "#8bc34a"
		}
		b.parent = g.Root
		b.add(&Node{
			ID:       "biofilm",
			Kind:     KindBiofilm,
			Label:    "Biofilm",
			Mesh:     c.biofilm.Generate(spec, g.AnodeSurface),
			Material: Material{Color: geom.ParseColor(color), Opacity: 0.85},
		})
	}

	engine.Logger().Debug("scene composed", "variant", v.Name(), "parts", len(g.order), "placeholder", g.Placeholder)
	return g
}

// Compose uses a composer with its own biofilm generator.
func Compose(def ModelDefinition) *Graph {
	return NewComposer(nil).Compose(def)
}

type builder struct {
	def    ModelDefinition
	g      *Graph
	parent *Node
}

func (b *builder) add(n *Node) *Node {
	id := n.ID
	for i := 2; ; i++ {
		if _, dup := b.g.index[id]; !dup {
			break
		}
		id = fmt.Sprintf("%s-%d", n.ID, i)
	}
	n.ID = id
	b.g.index[id] = n
	b.g.order = append(b.g.order, id)
	b.parent.Children = append(b.parent.Children, n)
	return n
}

func (b *builder) group(id, label string, fn func(prefix string)) {
	n := b.add(&Node{ID: id, Kind: KindGroup, Label: label})
	prev := b.parent
	b.parent = n
	fn(id + "/")
	b.parent = prev
}

func (b *builder) box(id string, kind PartKind, label string, bounds geom.Bounds, color string, opacity float64) *Node {
	return b.add(&Node{
		ID:       id,
		Kind:     kind,
		Label:    label,
		Mesh:     geom.BoxMesh(bounds),
		Material: Material{Color: geom.ParseColor(color), Opacity: opacity},
	})
}

func (b *builder) chamber() geom.Bounds {
	c := b.def.Chamber
	return geom.Box(geom.Vec3{}, geom.V(c.Width, c.Height, c.Depth))
}

// electrode places a plate of the given spec centred at x inside region.
func (b *builder) electrode(id, label string, spec ElectrodeSpec, region geom.Bounds, x float64) geom.Bounds {
	size := region.Size()
	c := region.Center()
	bounds := geom.Box(geom.V(x, c.Y, c.Z), geom.V(spec.Thickness, size.Y*spec.Height, size.Z*spec.Width))
	b.box(id, KindElectrode, fmt.Sprintf("%s (%s)", label, spec.Material), bounds, spec.Color, 1)
	return bounds
}

func (b *builder) membrane(id string, spec MembraneSpec, region geom.Bounds, x float64) {
	size := region.Size()
	bounds := geom.Box(geom.V(x, region.Center().Y, region.Center().Z), geom.V(spec.Thickness, size.Y, size.Z))
	b.box(id, KindMembrane, strings.ToUpper(spec.Kind)+" membrane", bounds, spec.Color, 0.6)
}

func (b *builder) wire(id string, r flow.Route) {
	const segments = 16
	m := &geom.Mesh{}
	for i := 0; i <= segments; i++ {
		m.Vertices = append(m.Vertices, r.Arc(float64(i)/segments))
		if i > 0 {
			m.Edges = append(m.Edges, [2]uint32{uint32(i - 1), uint32(i)})
		}
	}
	b.add(&Node{ID: id, Kind: KindWire, Label: "External circuit", Mesh: m,
		Material: Material{Color: geom.ParseColor("#e07a5f"), Opacity: 1, Wireframe: true}})
}

// dualChamber lays out anode chamber, membrane and cathode chamber across
// region along X and returns the anode chamber with both electrodes.
func (b *builder) dualChamber(prefix string, region geom.Bounds) (chamber, anode, cathode geom.Bounds) {
	d := b.def
	mid := region.Center().X
	left := geom.Bounds{Min: region.Min, Max: geom.V(mid, region.Max.Y, region.Max.Z)}
	right := geom.Bounds{Min: geom.V(mid, region.Min.Y, region.Min.Z), Max: region.Max}

	b.box(prefix+"anode-chamber", KindChamber, "Anode chamber", left, d.Chamber.Color, d.Chamber.Opacity)
	b.box(prefix+"cathode-chamber", KindChamber, "Cathode chamber", right, d.Chamber.Color, d.Chamber.Opacity)
	if d.Membrane != nil {
		b.membrane(prefix+"membrane", *d.Membrane, region, mid)
	}
	anode = b.electrode(prefix+"anode", "Anode", d.Electrodes.Anode, left, left.Center().X)
	cathode = b.electrode(prefix+"cathode", "Cathode", d.Electrodes.Cathode, right, right.Center().X)
	return left, anode, cathode
}

func (b *builder) circuit(anode, cathode geom.Bounds) flow.Route {
	lift := b.def.Chamber.Height / 2
	r := flow.RouteBetween(anode, cathode, lift)
	b.g.Anode, b.g.Cathode, b.g.Route = anode, cathode, r
	b.g.AnodeSurface = anode
	return r
}

func (MFC) build(b *builder) {
	region := b.chamber()
	ch, a, c := b.dualChamber("", region)
	b.wire("wire", b.circuit(a, c))
	b.g.FlowDomain = ch.Inset(0.2)
}

func (MEC) build(b *builder) {
	region := b.chamber()
	ch, a, c := b.dualChamber("", region)
	r := b.circuit(a, c)
	b.wire("wire", r)

	top := r.Arc(0.5)
	size := b.def.Chamber.Height / 6
	b.box("power-supply", KindSupply, "Power supply", geom.Box(top, geom.V(size*1.6, size, size)), "#f6bd60", 1)
	b.g.FlowDomain = ch.Inset(0.2)
}

func (Stacked) build(b *builder) {
	region := b.chamber()
	n := b.def.Cells
	w := region.Size().X / float64(n)

	var first, last geom.Bounds
	var prevCathode geom.Bounds
	for i := 0; i < n; i++ {
		cell := geom.Bounds{
			Min: geom.V(region.Min.X+float64(i)*w, region.Min.Y, region.Min.Z),
			Max: geom.V(region.Min.X+float64(i+1)*w, region.Max.Y, region.Max.Z),
		}
		b.group(fmt.Sprintf("cell-%d", i+1), fmt.Sprintf("Cell %d", i+1), func(prefix string) {
			_, a, c := b.dualChamber(prefix, cell)
			if i == 0 {
				first = a
			} else {
				link := flow.RouteBetween(prevCathode, a, b.def.Chamber.Height/8)
				b.wire(prefix+"link", link)
			}
			prevCathode, last = c, c
		})
	}
	b.wire("wire", b.circuit(first, last))
	b.g.FlowDomain = region.Inset(0.2)
}

func (SingleChamber) build(b *builder) {
	d := b.def
	region := b.chamber()
	b.box("chamber", KindChamber, "Chamber", region, d.Chamber.Color, d.Chamber.Opacity)

	size := region.Size()
	a := b.electrode("anode", "Anode", d.Electrodes.Anode, region, region.Min.X+size.X/4)
	cx := region.Max.X - d.Electrodes.Cathode.Thickness/2
	c := b.electrode("cathode", "Air cathode", d.Electrodes.Cathode, region, cx)
	if d.Membrane != nil {
		b.membrane("membrane", *d.Membrane, region, c.Min.X-d.Membrane.Thickness/2)
	}
	b.wire("wire", b.circuit(a, c))
	b.g.FlowDomain = region.Inset(0.2)
}

func (Bioreactor) build(b *builder) {
	d := b.def
	r := math.Min(d.Chamber.Width, d.Chamber.Depth) / 2
	h := d.Chamber.Height
	b.add(&Node{
		ID: "vessel", Kind: KindChamber, Label: "Reactor vessel",
		Mesh:     geom.CylinderMesh(geom.Vec3{}, r, h, 24),
		Material: Material{Color: geom.ParseColor(d.Chamber.Color), Opacity: d.Chamber.Opacity},
	})

	rod := func(id, label string, spec ElectrodeSpec, x float64) geom.Bounds {
		radius := spec.Width * r / 2
		height := spec.Height * h
		b.add(&Node{
			ID: id, Kind: KindElectrode, Label: fmt.Sprintf("%s (%s)", label, spec.Material),
			Mesh:     geom.CylinderMesh(geom.V(x, 0, 0), radius, height, 12),
			Material: Material{Color: geom.ParseColor(spec.Color), Opacity: 1},
		})
		return geom.Box(geom.V(x, 0, 0), geom.V(2*radius, height, 2*radius))
	}
	a := rod("anode", "Anode rod", d.Electrodes.Anode, -r/2)
	c := rod("cathode", "Cathode rod", d.Electrodes.Cathode, r/2)

	pipe := r / 6
	for _, p := range []struct {
		id, label string
		y         float64
	}{{"inlet", "Inlet", -h / 3}, {"outlet", "Outlet", h / 3}} {
		x := r + pipe
		if p.id == "outlet" {
			x = -x
		}
		b.box(p.id, KindChamber, p.label, geom.Box(geom.V(x, p.y, 0), geom.V(2*pipe, pipe, pipe)), d.Chamber.Color, 0.5)
	}

	b.wire("wire", b.circuit(a, c))
	side := r * math.Sqrt2
	b.g.FlowDomain = geom.Box(geom.Vec3{}, geom.V(side, h, side)).Inset(0.2)
}

func (MDC) build(b *builder) {
	d := b.def
	region := b.chamber()
	w := region.Size().X / 3
	x0 := region.Min.X
	third := func(i int) geom.Bounds {
		return geom.Bounds{
			Min: geom.V(x0+float64(i)*w, region.Min.Y, region.Min.Z),
			Max: geom.V(x0+float64(i+1)*w, region.Max.Y, region.Max.Z),
		}
	}
	left, middle, right := third(0), third(1), third(2)
	b.box("anode-chamber", KindChamber, "Anode chamber", left, d.Chamber.Color, d.Chamber.Opacity)
	b.box("desalination-chamber", KindChamber, "Desalination chamber", middle, "#bde0fe", d.Chamber.Opacity)
	b.box("cathode-chamber", KindChamber, "Cathode chamber", right, d.Chamber.Color, d.Chamber.Opacity)

	aem := *d.Membrane
	aem.Kind = "AEM"
	cem := MembraneSpec{Kind: "CEM", Thickness: aem.Thickness, Color: "#84a59d"}
	b.membrane("aem", aem, region, middle.Min.X)
	b.membrane("cem", cem, region, middle.Max.X)

	a := b.electrode("anode", "Anode", d.Electrodes.Anode, left, left.Center().X)
	c := b.electrode("cathode", "Cathode", d.Electrodes.Cathode, right, right.Center().X)
	b.wire("wire", b.circuit(a, c))
	b.g.FlowDomain = middle.Inset(0.2)
}

func (u Unsupported) build(b *builder) {
	region := b.chamber()
	b.add(&Node{
		ID: "placeholder", Kind: KindPlaceholder, Label: "Placeholder",
		Mesh:     geom.WireBox(region),
		Material: Material{Color: geom.Gray, Opacity: 1, Wireframe: true},
	})
	msg := fmt.Sprintf("Unsupported model type: %q", u.Requested)
	b.add(&Node{ID: "label", Kind: KindLabel, Label: msg})
	b.g.Placeholder = true
	b.g.Message = msg
	b.g.FlowDomain = region
	engine.Logger().Warn("unsupported model variant", "type", u.Requested)
}
