// Package scene composes renderable part graphs from model definitions.
package scene

import (
	"github.com/san-kum/mesviz/internal/flow"
	"github.com/san-kum/mesviz/internal/geom"
)

type PartKind int

const (
	KindGroup PartKind = iota
	KindChamber
	KindElectrode
	KindMembrane
	KindBiofilm
	KindWire
	KindSupply
	KindPlaceholder
	KindLabel
)

func (k PartKind) String() string {
	switch k {
	case KindChamber:
		return "chamber"
	case KindElectrode:
		return "electrode"
	case KindMembrane:
		return "membrane"
	case KindBiofilm:
		return "biofilm"
	case KindWire:
		return "wire"
	case KindSupply:
		return "supply"
	case KindPlaceholder:
		return "placeholder"
	case KindLabel:
		return "label"
	default:
		return "group"
	}
}

type Material struct {
	Color     geom.Color
	Opacity   float64
	Emissive  float64
	Wireframe bool
}

// Node is one selectable part. Meshes are in world space.
type Node struct {
	ID       string
	Kind     PartKind
	Label    string
	Mesh     *geom.Mesh
	Material Material
	Children []*Node
}

func (n *Node) Bounds() geom.Bounds { return n.Mesh.Bounds() }

// Graph is the composed scene for one model definition.
type Graph struct {
	Root    *Node
	Variant Variant
	Title   string

	// Placeholder is set when the variant is unsupported; Message then
	// explains why.
	Placeholder bool
	Message     string

	FlowDomain   geom.Bounds
	Anode        geom.Bounds
	Cathode      geom.Bounds
	AnodeSurface geom.Bounds
	Route        flow.Route

	index map[string]*Node
	order []string
}

func (g *Graph) Find(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Parts lists part IDs in composition order.
func (g *Graph) Parts() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Selectable lists, in composition order, the parts a user can select:
// everything except groups and text labels.
func (g *Graph) Selectable() []string {
	var ids []string
	for _, id := range g.order {
		if n := g.index[id]; n.Kind != KindGroup && n.Kind != KindLabel {
			ids = append(ids, id)
		}
	}
	return ids
}

// Walk visits nodes depth first. Returning false from fn stops the walk.
func (g *Graph) Walk(fn func(*Node) bool) {
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	if g.Root != nil {
		visit(g.Root)
	}
}

// Bounds covers every mesh in the graph.
func (g *Graph) Bounds() geom.Bounds {
	var b geom.Bounds
	first := true
	g.Walk(func(n *Node) bool {
		if n.Mesh.VertexCount() == 0 {
			return true
		}
		if first {
			b, first = n.Bounds(), false
		} else {
			b = b.Union(n.Bounds())
		}
		return true
	})
	return b
}

// VertexCount sums the vertices of every part.
func (g *Graph) VertexCount() int {
	total := 0
	g.Walk(func(n *Node) bool {
		total += n.Mesh.VertexCount()
		return true
	})
	return total
}
