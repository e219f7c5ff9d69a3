package biofilm

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/san-kum/mesviz/internal/engine"
	"github.com/san-kum/mesviz/internal/geom"
)

const (
	// DefaultGrid is the number of colony sites along the longer face edge.
	DefaultGrid = 12
	// MaxLayers bounds how many tapered layers one colony stacks.
	MaxLayers = 4
)

type key struct {
	thickness float64
	coverage  float64
	bounds    geom.Bounds
}

type Stats struct {
	Entries int
	Hits    int
	Misses  int
}

// Generator builds biofilm meshes and remembers every result by
// (thickness, coverage, bounds). Not safe for concurrent use.
type Generator struct {
	seed  int64
	grid  int
	memo  map[key]*geom.Mesh
	stats Stats
}

func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed, grid: DefaultGrid, memo: make(map[key]*geom.Mesh)}
}

// SetGrid changes colony density for meshes generated afterwards.
// Previously memoized meshes are kept.
func (g *Generator) SetGrid(n int) {
	if n > 0 {
		g.grid = n
	}
}

func (g *Generator) Stats() Stats {
	s := g.stats
	s.Entries = len(g.memo)
	return s
}

// Generate returns the biofilm grown over the two broad faces of surface.
// Repeated calls with the same thickness, coverage and bounds return the
// same mesh. The returned mesh must not be modified.
func (g *Generator) Generate(spec Spec, surface geom.Bounds) *geom.Mesh {
	k := key{thickness: spec.Thickness, coverage: spec.Coverage, bounds: surface}
	if m, ok := g.memo[k]; ok {
		g.stats.Hits++
		return m
	}
	g.stats.Misses++

	m := g.grow(spec, surface, g.rngFor(k))
	g.memo[k] = m
	engine.Logger().Debug("biofilm generated", "coverage", spec.Coverage, "thickness", spec.Thickness, "vertices", len(m.Vertices))
	return m
}

// rngFor derives a source from the generator seed and the key so a mesh
// does not depend on the order keys were requested in.
func (g *Generator) rngFor(k key) *rand.Rand {
	h := fnv.New64a()
	var buf [8]byte
	b := k.bounds
	for _, f := range [...]float64{k.thickness, k.coverage, b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z} {
		bits := math.Float64bits(f)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	return rand.New(rand.NewSource(g.seed ^ int64(h.Sum64())))
}

func (g *Generator) grow(spec Spec, surface geom.Bounds, rng *rand.Rand) *geom.Mesh {
	m := &geom.Mesh{}
	if spec.Coverage <= 0 || surface.Empty() {
		return m
	}

	size := surface.Size()
	normal := thinnestAxis(size)
	u, v := (normal+1)%3, (normal+2)%3
	su, sv := size.Axis(u), size.Axis(v)

	cell := math.Max(su, sv) / float64(g.grid)
	nu := max(1, int(math.Round(su/cell)))
	nv := max(1, int(math.Round(sv/cell)))
	cu, cv := su/float64(nu), sv/float64(nv)

	step := spec.Thickness / MaxLayers
	for _, side := range [2]float64{-1, 1} {
		face := surface.Min.Axis(normal)
		if side > 0 {
			face = surface.Max.Axis(normal)
		}
		for i := 0; i < nu; i++ {
			for j := 0; j < nv; j++ {
				if rng.Float64() >= spec.Coverage {
					continue
				}
				height := spec.Thickness * (0.5 + 0.5*rng.Float64())
				layers := 1
				if step > 0 {
					layers = min(MaxLayers, max(1, int(math.Ceil(height/step))))
				}
				var centre geom.Vec3
				centre = centre.SetAxis(u, surface.Min.Axis(u)+(float64(i)+0.5)*cu)
				centre = centre.SetAxis(v, surface.Min.Axis(v)+(float64(j)+0.5)*cv)
				for l := 0; l < layers; l++ {
					off := face + side*float64(l)*step
					taper := 1 - float64(l)/float64(layers+1)
					p := centre.SetAxis(normal, off)
					addQuad(m, p, u, v, cu/2*taper, cv/2*taper)
				}
			}
		}
	}
	return m
}

func addQuad(m *geom.Mesh, c geom.Vec3, u, v int, hu, hv float64) {
	base := uint32(len(m.Vertices))
	for _, s := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		p := c.SetAxis(u, c.Axis(u)+s[0]*hu)
		p = p.SetAxis(v, p.Axis(v)+s[1]*hv)
		m.Vertices = append(m.Vertices, p)
	}
	m.Edges = append(m.Edges,
		[2]uint32{base, base + 1}, [2]uint32{base + 1, base + 2},
		[2]uint32{base + 2, base + 3}, [2]uint32{base + 3, base})
	m.Faces = append(m.Faces, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
}

func thinnestAxis(s geom.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if s.Axis(i) < s.Axis(axis) {
			axis = i
		}
	}
	return axis
}
