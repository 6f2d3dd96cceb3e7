package geom

import "github.com/ctessum/polyclip-go"

// The boolean engine is polyclip-go's Vatti clipper. Self-intersections
// introduced by arc sampling are tolerated: the clipper resolves them
// under even-odd semantics instead of failing.

func toClip(s Shape) polyclip.Polygon {
	poly := make(polyclip.Polygon, 0, len(s))
	for _, r := range s {
		if len(r) < 3 {
			continue
		}
		c := make(polyclip.Contour, len(r))
		for i, p := range r {
			c[i] = polyclip.Point{X: p.X, Y: p.Y}
		}
		poly = append(poly, c)
	}
	return poly
}

func fromClip(poly polyclip.Polygon) Shape {
	s := make(Shape, 0, len(poly))
	for _, c := range poly {
		if len(c) < 3 {
			continue
		}
		r := make(Ring, len(c))
		for i, p := range c {
			r[i] = Point{p.X, p.Y}
		}
		s = append(s, r)
	}
	s, _ = dropDegenerate(s)
	return s
}

func construct(op polyclip.Op, a, b Shape) Shape {
	return fromClip(toClip(a).Construct(op, toClip(b)))
}

// Union returns the area covered by a or b.
func Union(a, b Shape) Shape {
	if a.IsEmpty() {
		return b.Clone()
	}
	if b.IsEmpty() {
		return a.Clone()
	}
	return construct(polyclip.UNION, a, b)
}

// Difference returns the area of a not covered by b.
func Difference(a, b Shape) Shape {
	if a.IsEmpty() {
		return nil
	}
	if b.IsEmpty() {
		return a.Clone()
	}
	return construct(polyclip.DIFFERENCE, a, b)
}

// Intersection returns the area covered by both a and b.
func Intersection(a, b Shape) Shape {
	if a.IsEmpty() || b.IsEmpty() {
		return nil
	}
	return construct(polyclip.INTERSECTION, a, b)
}

// UnionAll folds a union over all shapes. Overlapping shapes merge into
// coherent regions; empty shapes are skipped.
func UnionAll(shapes []Shape) Shape {
	var acc Shape
	for _, s := range shapes {
		if s.IsEmpty() {
			continue
		}
		if acc == nil {
			acc = s.Clone()
			continue
		}
		acc = Union(acc, s)
	}
	return acc
}
