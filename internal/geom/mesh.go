package geom

import "math"

// Mesh is an indexed triangle mesh with an explicit edge list used for
// wireframe drawing.
type Mesh struct {
	Vertices []Vec3
	Edges    [][2]uint32
	Faces    [][3]uint32
}

func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}

func (m *Mesh) Bounds() Bounds {
	if m == nil || len(m.Vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b = b.Union(Bounds{Min: v, Max: v})
	}
	return b
}

// Append merges o into m, rebasing its indices.
func (m *Mesh) Append(o *Mesh) {
	if o == nil {
		return
	}
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, o.Vertices...)
	for _, e := range o.Edges {
		m.Edges = append(m.Edges, [2]uint32{e[0] + base, e[1] + base})
	}
	for _, f := range o.Faces {
		m.Faces = append(m.Faces, [3]uint32{f[0] + base, f[1] + base, f[2] + base})
	}
}

var (
	cubeCorners = [8]Vec3{{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1}, {-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}
	cubeEdges   = [12][2]uint32{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	cubeFaces   = [12][3]uint32{
		{0, 2, 1}, {0, 3, 2}, {4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4}, {3, 7, 6}, {3, 6, 2},
		{0, 4, 7}, {0, 7, 3}, {1, 2, 6}, {1, 6, 5},
	}
)

// BoxMesh builds an axis-aligned box filling b.
func BoxMesh(b Bounds) *Mesh {
	c, h := b.Center(), b.Size().Scale(0.5)
	m := &Mesh{Vertices: make([]Vec3, 0, 8)}
	for _, k := range cubeCorners {
		m.Vertices = append(m.Vertices, c.Add(k.Mul(h)))
	}
	m.Edges = append(m.Edges, cubeEdges[:]...)
	m.Faces = append(m.Faces, cubeFaces[:]...)
	return m
}

// WireBox is BoxMesh without faces.
func WireBox(b Bounds) *Mesh {
	m := BoxMesh(b)
	m.Faces = nil
	return m
}

// CylinderMesh builds a Y-aligned cylinder centred on c.
func CylinderMesh(c Vec3, radius, height float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	m := &Mesh{Vertices: make([]Vec3, 0, segments*2)}
	hy := height / 2
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		x, z := radius*math.Cos(a), radius*math.Sin(a)
		m.Vertices = append(m.Vertices, c.Add(Vec3{x, -hy, z}), c.Add(Vec3{x, hy, z}))
	}
	n := uint32(segments)
	for i := uint32(0); i < n; i++ {
		lo, hi := 2*i, 2*i+1
		nlo, nhi := 2*((i+1)%n), 2*((i+1)%n)+1
		m.Edges = append(m.Edges, [2]uint32{lo, hi}, [2]uint32{lo, nlo}, [2]uint32{hi, nhi})
		m.Faces = append(m.Faces, [3]uint32{lo, nlo, hi}, [3]uint32{hi, nlo, nhi})
	}
	return m
}
