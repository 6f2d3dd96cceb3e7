package solid

import (
	"fmt"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Backend names.
const (
	BackendEarcut   = "earcut"
	BackendScanline = "scanline"
)

// Options tune tessellation. LinearDeflection is the maximum chord
// error and AngularDeflection the maximum turn kept when simplifying
// profile rings before triangulation; smaller values keep more vertices
// and therefore more triangles.
type Options struct {
	Backend           string
	LinearDeflection  float64
	AngularDeflection float64
}

// Prism is one flat profile extruded over a z range.
type Prism struct {
	Shape  geom.Shape
	Z0, Z1 float64
}

// BuildMesh extrudes the prisms into a single closed mesh. Empty prism
// shapes contribute nothing; an entirely empty input is an error since
// a stencil with no material cannot be printed.
func BuildMesh(prisms []Prism, opts Options) (*Mesh, error) {
	tess, err := capTessellator(opts.Backend)
	if err != nil {
		return nil, err
	}
	mesh := NewMesh()
	for _, prism := range prisms {
		if prism.Shape.IsEmpty() || prism.Z1 <= prism.Z0 {
			continue
		}
		shape := geom.SimplifyShape(prism.Shape, opts.LinearDeflection, opts.AngularDeflection)
		extrude(mesh, shape, prism.Z0, prism.Z1, tess)
	}
	mesh.RemoveDegenerate()
	if mesh.TriangleCount() == 0 {
		return nil, fmt.Errorf("solid: no geometry to extrude")
	}
	return mesh, nil
}

type tessFunc func(outer geom.Ring, holes []geom.Ring) [][3]geom.Point

func capTessellator(backend string) (tessFunc, error) {
	switch backend {
	case BackendEarcut, "":
		return triangulateEarcut, nil
	case BackendScanline:
		return triangulateScanline, nil
	}
	return nil, fmt.Errorf("solid: unknown backend %q", backend)
}

// extrude emits top and bottom caps plus side walls for every region of
// the shape. Regions() normalizes outers CCW and holes CW, which makes
// the wall winding uniform: walking each ring in stored order keeps the
// solid on the left, so quads built the same way always face outward.
func extrude(mesh *Mesh, shape geom.Shape, z0, z1 float64, tess tessFunc) {
	for _, region := range shape.Regions() {
		tris := tess(region.Outer, region.Holes)
		for _, t := range tris {
			// Top cap faces +Z, bottom cap -Z.
			mesh.Add(
				Vec3{t[0].X, t[0].Y, z1},
				Vec3{t[1].X, t[1].Y, z1},
				Vec3{t[2].X, t[2].Y, z1},
			)
			mesh.Add(
				Vec3{t[0].X, t[0].Y, z0},
				Vec3{t[2].X, t[2].Y, z0},
				Vec3{t[1].X, t[1].Y, z0},
			)
		}
		wallRing(mesh, region.Outer, z0, z1)
		for _, hole := range region.Holes {
			wallRing(mesh, hole, z0, z1)
		}
	}
}

// wallRing emits two triangles per ring edge, oriented outward for a
// CCW outer ring and into the hole for a CW hole ring.
func wallRing(mesh *Mesh, ring geom.Ring, z0, z1 float64) {
	n := len(ring)
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		pb := Vec3{p.X, p.Y, z0}
		qb := Vec3{q.X, q.Y, z0}
		qt := Vec3{q.X, q.Y, z1}
		pt := Vec3{p.X, p.Y, z1}
		mesh.Add(pb, qb, qt)
		mesh.Add(pb, qt, pt)
	}
}
