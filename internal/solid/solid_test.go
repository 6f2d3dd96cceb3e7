package solid

import (
	"math"
	"testing"

	"github.com/forgeworks/stencilforge/internal/geom"
)

var testOpts = map[string]Options{
	BackendEarcut:   {Backend: BackendEarcut, LinearDeflection: 0.01, AngularDeflection: 0.5},
	BackendScanline: {Backend: BackendScanline, LinearDeflection: 0.01, AngularDeflection: 0.5},
}

// signedVolume sums the divergence-theorem contribution of every facet.
// It equals the enclosed volume only when the mesh is closed and
// consistently outward-wound, so it doubles as a watertightness check.
func signedVolume(m *Mesh) float64 {
	total := 0.0
	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		b := m.Vertices[f[1]]
		c := m.Vertices[f[2]]
		total += a.X*(b.Y*c.Z-b.Z*c.Y) - a.Y*(b.X*c.Z-b.Z*c.X) + a.Z*(b.X*c.Y-b.Y*c.X)
	}
	return total / 6
}

func boxShape(w, h float64) geom.Shape {
	return geom.Shape{geom.RectRing(geom.Point{}, w, h)}
}

func TestBuildMeshBoxVolume(t *testing.T) {
	t.Parallel()
	for backend, opts := range testOpts {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()
			mesh, err := BuildMesh([]Prism{{Shape: boxShape(10, 6), Z0: 0, Z1: 0.12}}, opts)
			if err != nil {
				t.Fatalf("BuildMesh: %v", err)
			}
			want := 10 * 6 * 0.12
			if got := signedVolume(mesh); math.Abs(got-want) > 1e-9 {
				t.Errorf("volume = %v, want %v", got, want)
			}
		})
	}
}

func TestBuildMeshBackendsAgreeOnHoles(t *testing.T) {
	t.Parallel()
	profile := geom.Difference(boxShape(10, 10), boxShape(4, 4))
	profile = geom.Difference(profile, geom.Shape{geom.RectRing(geom.Point{X: 3.5, Y: 3.5}, 1, 1)})

	volumes := make(map[string]float64, len(testOpts))
	for backend, opts := range testOpts {
		mesh, err := BuildMesh([]Prism{{Shape: profile, Z0: 0, Z1: 1}}, opts)
		if err != nil {
			t.Fatalf("%s: BuildMesh: %v", backend, err)
		}
		volumes[backend] = signedVolume(mesh)
	}
	want := 100.0 - 16.0 - 1.0
	for backend, got := range volumes {
		if math.Abs(got-want)/want > 1e-6 {
			t.Errorf("%s volume = %v, want %v", backend, got, want)
		}
	}
	if math.Abs(volumes[BackendEarcut]-volumes[BackendScanline]) > 1e-9 {
		t.Errorf("backends disagree: %v vs %v", volumes[BackendEarcut], volumes[BackendScanline])
	}
}

func TestBuildMeshCircleVolume(t *testing.T) {
	t.Parallel()
	profile := geom.Circle(geom.Point{}, 5, 64)
	for backend, opts := range testOpts {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()
			mesh, err := BuildMesh([]Prism{{Shape: profile, Z0: 0, Z1: 2}}, opts)
			if err != nil {
				t.Fatalf("BuildMesh: %v", err)
			}
			want := math.Pi * 25 * 2
			// The polygonal profile and simplification both shave a
			// little off the ideal cylinder.
			if got := signedVolume(mesh); math.Abs(got-want)/want > 0.02 {
				t.Errorf("volume = %v, want about %v", got, want)
			}
		})
	}
}

func TestDeflectionControlsTriangleCount(t *testing.T) {
	t.Parallel()
	profile := geom.Circle(geom.Point{}, 5, 128)
	coarse, err := BuildMesh([]Prism{{Shape: profile, Z0: 0, Z1: 1}},
		Options{Backend: BackendEarcut, LinearDeflection: 0.5, AngularDeflection: 1.0})
	if err != nil {
		t.Fatalf("coarse BuildMesh: %v", err)
	}
	fine, err := BuildMesh([]Prism{{Shape: profile, Z0: 0, Z1: 1}},
		Options{Backend: BackendEarcut, LinearDeflection: 0.001, AngularDeflection: 0.05})
	if err != nil {
		t.Fatalf("fine BuildMesh: %v", err)
	}
	if fine.TriangleCount() < coarse.TriangleCount() {
		t.Errorf("fine mesh has %d triangles, coarse has %d",
			fine.TriangleCount(), coarse.TriangleCount())
	}
}

func TestBuildMeshSkipsEmptyPrisms(t *testing.T) {
	t.Parallel()
	prisms := []Prism{
		{Shape: nil, Z0: 0, Z1: 1},
		{Shape: boxShape(2, 2), Z0: 1, Z1: 1}, // zero height
		{Shape: boxShape(2, 2), Z0: 0, Z1: 1},
	}
	mesh, err := BuildMesh(prisms, testOpts[BackendEarcut])
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if got, want := signedVolume(mesh), 4.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("volume = %v, want %v", got, want)
	}
}

func TestBuildMeshRejectsEmptyInput(t *testing.T) {
	t.Parallel()
	if _, err := BuildMesh(nil, testOpts[BackendEarcut]); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestBuildMeshRejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := BuildMesh([]Prism{{Shape: boxShape(1, 1), Z0: 0, Z1: 1}},
		Options{Backend: "delaunay", LinearDeflection: 0.01, AngularDeflection: 0.5})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestMeshVertexInterning(t *testing.T) {
	t.Parallel()
	m := NewMesh()
	m.Add(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	m.Add(Vec3{1, 0, 0}, Vec3{1, 1, 0}, Vec3{0, 1, 0})
	if got := len(m.Vertices); got != 4 {
		t.Errorf("vertices = %d, want 4 after interning", got)
	}
	if got := m.TriangleCount(); got != 2 {
		t.Errorf("triangles = %d, want 2", got)
	}
}

func TestMeshTranslateToOrigin(t *testing.T) {
	t.Parallel()
	mesh, err := BuildMesh([]Prism{{Shape: geom.Shape{geom.RectRing(geom.Point{X: 7, Y: -3}, 2, 2)}, Z0: 5, Z1: 6}},
		testOpts[BackendEarcut])
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	mesh.TranslateToOrigin()
	lo, _ := mesh.Bounds()
	if lo.X != 0 || lo.Y != 0 || lo.Z != 0 {
		t.Errorf("min corner = %+v, want origin", lo)
	}
	// The vertex index must survive translation for later additions.
	mesh.Add(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
}
