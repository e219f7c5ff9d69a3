package geom

import (
	"math"
	"testing"
)

func TestBoundsClampContains(t *testing.T) {
	b := Bounds{Min: V(-1, -2, -3), Max: V(1, 2, 3)}

	tests := []struct {
		in   Vec3
		want Vec3
	}{
		{V(0, 0, 0), V(0, 0, 0)},
		{V(5, 0, 0), V(1, 0, 0)},
		{V(-5, -5, 9), V(-1, -2, 3)},
	}
	for _, tt := range tests {
		got := b.Clamp(tt.in)
		if got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if !b.Contains(got) {
			t.Errorf("clamped point %v not contained", got)
		}
	}
}

func TestBoundsInsetNeverInverts(t *testing.T) {
	b := Box(V(0, 0, 0), V(1, 1, 1)).Inset(5)
	s := b.Size()
	if s.X < 0 || s.Y < 0 || s.Z < 0 {
		t.Errorf("inset inverted bounds: %v", s)
	}
}

func TestBoxMesh(t *testing.T) {
	b := Box(V(1, 1, 1), V(2, 4, 6))
	m := BoxMesh(b)

	if m.VertexCount() != 8 || len(m.Edges) != 12 || len(m.Faces) != 12 {
		t.Fatalf("unexpected box topology: %d verts, %d edges, %d faces", m.VertexCount(), len(m.Edges), len(m.Faces))
	}
	if got := m.Bounds(); got != b {
		t.Errorf("mesh bounds = %v, want %v", got, b)
	}
}

func TestMeshAppendRebases(t *testing.T) {
	m := BoxMesh(Box(V(0, 0, 0), V(1, 1, 1)))
	m.Append(WireBox(Box(V(5, 0, 0), V(1, 1, 1))))

	if m.VertexCount() != 16 {
		t.Fatalf("expected 16 vertices, got %d", m.VertexCount())
	}
	last := m.Edges[len(m.Edges)-1]
	if last[0] < 8 || last[1] < 8 {
		t.Errorf("appended edge not rebased: %v", last)
	}
}

func TestCylinderMesh(t *testing.T) {
	m := CylinderMesh(V(0, 0, 0), 2, 4, 16)
	if m.VertexCount() != 32 {
		t.Errorf("expected 32 vertices, got %d", m.VertexCount())
	}
	b := m.Bounds()
	if math.Abs(b.Size().Y-4) > 1e-9 {
		t.Errorf("expected height 4, got %f", b.Size().Y)
	}
}

func TestCameraProjectCenter(t *testing.T) {
	c := NewCamera()
	c.Fit(Box(V(10, 0, 0), V(4, 4, 4)))

	x, y, _, ok := c.Project(V(10, 0, 0), 200, 100)
	if !ok {
		t.Fatal("target should be visible")
	}
	if math.Abs(x-100) > 1e-9 || math.Abs(y-50) > 1e-9 {
		t.Errorf("target projected to (%f, %f), want surface centre", x, y)
	}
}

func TestCameraBehindNearPlane(t *testing.T) {
	c := NewCamera()
	c.Yaw, c.Pitch = 0, 0
	if _, _, _, ok := c.Project(V(0, 0, c.Distance+1), 100, 100); ok {
		t.Error("point behind the camera should not be visible")
	}
}

func TestParseColor(t *testing.T) {
	c := ParseColor("#ff8000")
	if c.R != 1 || math.Abs(c.G-128.0/255) > 1e-9 || c.B != 0 || c.A != 1 {
		t.Errorf("unexpected color %+v", c)
	}
	if got := ParseColor("zz12345"); got != Black {
		t.Errorf("invalid color should parse to black, got %+v", got)
	}
}
