// Package geom is the 2D geometry engine for the stencil pipeline.
//
// All coordinates are millimeters in board space. A Ring is an ordered,
// implicitly-closed loop of points; a Shape is a set of rings interpreted
// with even-odd fill semantics, which is how results come back from the
// boolean clipper. Regions() regroups a Shape into explicit outer/hole
// pairs for stages that need them (extrusion, QFN detection).
package geom

import "math"

// Epsilon below which a ring's area is considered degenerate and the ring
// is dropped from boolean/offset results.
const degenerateArea = 1e-9

// Point is a 2D point in mm.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Ring is an ordered loop of points. The closing edge from the last point
// back to the first is implicit; rings never repeat their first point.
type Ring []Point

// Shape is a set of rings with even-odd fill semantics.
type Shape []Ring

// Rect is an axis-aligned bounding rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the X extent of r.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the Y extent of r.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the midpoint of r.
func (r Rect) Center() Point { return Point{(r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2} }

// SignedArea returns the signed area of the ring: positive for
// counter-clockwise winding, negative for clockwise.
func (r Ring) SignedArea() float64 {
	if len(r) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Area returns the absolute area of the ring.
func (r Ring) Area() float64 { return math.Abs(r.SignedArea()) }

// Reverse flips the winding direction of the ring in place.
func (r Ring) Reverse() {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// Clone returns a deep copy of the ring.
func (r Ring) Clone() Ring {
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Bounds returns the bounding rectangle of the ring. A zero Rect is
// returned for an empty ring.
func (r Ring) Bounds() Rect {
	if len(r) == 0 {
		return Rect{}
	}
	b := Rect{r[0].X, r[0].Y, r[0].X, r[0].Y}
	for _, p := range r[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Contains reports whether p lies inside the ring (even-odd rule).
// Points exactly on the boundary are not guaranteed either way.
func (r Ring) Contains(p Point) bool {
	inside := false
	n := len(r)
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Centroid returns the area centroid of the ring.
func (r Ring) Centroid() Point {
	a := r.SignedArea()
	if a == 0 {
		// Degenerate: fall back to the vertex average.
		var c Point
		for _, p := range r {
			c.X += p.X
			c.Y += p.Y
		}
		n := float64(len(r))
		if n > 0 {
			c.X /= n
			c.Y /= n
		}
		return c
	}
	var cx, cy float64
	for i, p := range r {
		q := r[(i+1)%len(r)]
		cross := p.X*q.Y - q.X*p.Y
		cx += (p.X + q.X) * cross
		cy += (p.Y + q.Y) * cross
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// IsEmpty reports whether the shape has no rings with usable area.
func (s Shape) IsEmpty() bool {
	for _, r := range s {
		if r.Area() > degenerateArea {
			return false
		}
	}
	return true
}

// Bounds returns the bounding rectangle of all rings in the shape.
func (s Shape) Bounds() Rect {
	first := true
	var b Rect
	for _, r := range s {
		if len(r) == 0 {
			continue
		}
		rb := r.Bounds()
		if first {
			b = rb
			first = false
			continue
		}
		b.MinX = math.Min(b.MinX, rb.MinX)
		b.MinY = math.Min(b.MinY, rb.MinY)
		b.MaxX = math.Max(b.MaxX, rb.MaxX)
		b.MaxY = math.Max(b.MaxY, rb.MaxY)
	}
	return b
}

// Contains reports whether p is inside the filled area under even-odd
// semantics.
func (s Shape) Contains(p Point) bool {
	inside := false
	for _, r := range s {
		if r.Contains(p) {
			inside = !inside
		}
	}
	return inside
}

// Area returns the filled area of the shape under even-odd semantics.
func (s Shape) Area() float64 {
	total := 0.0
	for _, reg := range s.Regions() {
		a := reg.Outer.Area()
		for _, h := range reg.Holes {
			a -= h.Area()
		}
		total += a
	}
	return total
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, 0, len(s))
	for _, r := range s {
		out = append(out, r.Clone())
	}
	return out
}

// Translate returns the shape shifted by (dx, dy).
func (s Shape) Translate(dx, dy float64) Shape {
	out := make(Shape, 0, len(s))
	for _, r := range s {
		nr := make(Ring, len(r))
		for i, p := range r {
			nr[i] = Point{p.X + dx, p.Y + dy}
		}
		out = append(out, nr)
	}
	return out
}

// Rotate returns the shape rotated by angle radians about origin.
func (s Shape) Rotate(angle float64, origin Point) Shape {
	sin, cos := math.Sincos(angle)
	out := make(Shape, 0, len(s))
	for _, r := range s {
		nr := make(Ring, len(r))
		for i, p := range r {
			dx, dy := p.X-origin.X, p.Y-origin.Y
			nr[i] = Point{origin.X + dx*cos - dy*sin, origin.Y + dx*sin + dy*cos}
		}
		out = append(out, nr)
	}
	return out
}

// Scale returns the shape scaled by factor about the coordinate origin.
// Used to normalize inch-unit Gerber layers to mm.
func (s Shape) Scale(factor float64) Shape {
	out := make(Shape, 0, len(s))
	for _, r := range s {
		nr := make(Ring, len(r))
		for i, p := range r {
			nr[i] = Point{p.X * factor, p.Y * factor}
		}
		out = append(out, nr)
	}
	return out
}

// dropDegenerate removes rings whose area has collapsed below the
// degeneracy threshold. Returns the surviving shape and the count dropped.
func dropDegenerate(s Shape) (Shape, int) {
	out := s[:0]
	dropped := 0
	for _, r := range s {
		if len(r) < 3 || r.Area() <= degenerateArea {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}
