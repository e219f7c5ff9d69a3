package geom

import "math"

// Camera orbits a target and projects world points to a pixel surface.
type Camera struct {
	Target     Vec3
	Distance   float64
	Yaw, Pitch float64
	Zoom       float64
	Near       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 50, Yaw: -0.6, Pitch: 0.35, Zoom: 1, Near: 0.1}
}

// Fit centres the camera on b and sets the zoom so b spans roughly 70% of
// the smaller surface dimension.
func (c *Camera) Fit(b Bounds) {
	c.Target = b.Center()
	r := b.Size().Length() / 2
	if r <= 0 {
		r = 1
	}
	c.Distance = r * 4
	c.Zoom = 0.7 * 1.5 / r
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = clamp(c.Pitch+dpitch, -1.4, 1.4)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(c.Zoom*1.2, 100) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(c.Zoom/1.2, 0.001) }

// view rotates p into camera space: yaw about Y, then pitch about X.
func (c *Camera) view(p Vec3) Vec3 {
	p = p.Sub(c.Target)
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.Pitch), math.Sin(c.Pitch)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project converts world coordinates to surface pixels.
// Returns x, y, depth (larger is nearer) and whether the point is in front
// of the near plane.
func (c *Camera) Project(p Vec3, w, h int) (float64, float64, float64, bool) {
	v := c.view(p)
	dist := c.Distance
	if v.Z >= dist-c.Near {
		return 0, 0, 0, false
	}
	persp := dist / (dist - v.Z)
	scale := float64(min(w, h)) / 3 * c.Zoom * persp
	return v.X*scale + float64(w)/2, -v.Y*scale + float64(h)/2, v.Z, true
}
