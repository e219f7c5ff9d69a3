package geom

// Bounds is an axis-aligned box. Min is inclusive on every axis and Max is
// treated as the far edge.
type Bounds struct {
	Min, Max Vec3
}

// Box returns bounds of the given size centred on c.
func Box(c, size Vec3) Bounds {
	h := size.Scale(0.5)
	return Bounds{Min: c.Sub(h), Max: c.Add(h)}
}

func (b Bounds) Size() Vec3   { return b.Max.Sub(b.Min) }
func (b Bounds) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

func (b Bounds) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Clamp returns p moved onto the nearest point inside b.
func (b Bounds) Clamp(p Vec3) Vec3 {
	return Vec3{clamp(p.X, b.Min.X, b.Max.X), clamp(p.Y, b.Min.Y, b.Max.Y), clamp(p.Z, b.Min.Z, b.Max.Z)}
}

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		Min: Vec3{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)},
		Max: Vec3{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)},
	}
}

func (b Bounds) Translate(d Vec3) Bounds {
	return Bounds{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Inset shrinks b by d on every side. The result never inverts.
func (b Bounds) Inset(d float64) Bounds {
	c := b.Center()
	s := b.Size()
	s = Vec3{max(s.X-2*d, 0), max(s.Y-2*d, 0), max(s.Z-2*d, 0)}
	return Box(c, s)
}

// Lerp maps t (each component in [0,1]) to a point inside b.
func (b Bounds) Lerp(t Vec3) Vec3 {
	s := b.Size()
	return b.Min.Add(s.Mul(t))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
