package geom

import "math"

// Shape constructors for the standard Gerber aperture family. Circular
// arcs are approximated with `resolution` segments per quarter turn, the
// same convention the offset engine uses for round joins.

// CircleRing returns a circle approximated by 4*resolution segments.
func CircleRing(center Point, radius float64, resolution int) Ring {
	if resolution < 1 {
		resolution = 1
	}
	n := 4 * resolution
	r := make(Ring, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		r[i] = Point{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)}
	}
	return r
}

// Circle returns a circle as a single-ring shape.
func Circle(center Point, radius float64, resolution int) Shape {
	return Shape{CircleRing(center, radius, resolution)}
}

// RectRing returns an axis-aligned rectangle centered at center.
func RectRing(center Point, width, height float64) Ring {
	hw, hh := width/2, height/2
	return Ring{
		{center.X - hw, center.Y - hh},
		{center.X + hw, center.Y - hh},
		{center.X + hw, center.Y + hh},
		{center.X - hw, center.Y + hh},
	}
}

// Box returns the rectangle spanning the given corners as a shape.
func Box(minX, minY, maxX, maxY float64) Shape {
	return Shape{Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}}
}

// RegularPolygonRing returns an n-vertex regular polygon. rotation is in
// radians; the first vertex starts on the +X axis before rotation, per
// the Gerber polygon aperture definition.
func RegularPolygonRing(center Point, outerDiameter float64, vertices int, rotation float64) Ring {
	if vertices < 3 {
		vertices = 3
	}
	radius := outerDiameter / 2
	r := make(Ring, vertices)
	for i := 0; i < vertices; i++ {
		a := rotation + 2*math.Pi*float64(i)/float64(vertices)
		r[i] = Point{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)}
	}
	return r
}

// ObroundRing returns a stadium: a rectangle with semicircular caps on
// its two short ends.
func ObroundRing(center Point, width, height float64, resolution int) Ring {
	if width == height {
		return CircleRing(center, width/2, resolution)
	}
	n := 2 * resolution // segments per semicircle
	var r Ring
	if width > height {
		// Caps on left/right.
		radius := height / 2
		dx := width/2 - radius
		for i := 0; i <= n; i++ {
			a := -math.Pi/2 + math.Pi*float64(i)/float64(n)
			r = append(r, Point{center.X + dx + radius*math.Cos(a), center.Y + radius*math.Sin(a)})
		}
		for i := 0; i <= n; i++ {
			a := math.Pi/2 + math.Pi*float64(i)/float64(n)
			r = append(r, Point{center.X - dx + radius*math.Cos(a), center.Y + radius*math.Sin(a)})
		}
	} else {
		// Caps on top/bottom.
		radius := width / 2
		dy := height/2 - radius
		for i := 0; i <= n; i++ {
			a := math.Pi * float64(i) / float64(n)
			r = append(r, Point{center.X + radius*math.Cos(a), center.Y + dy + radius*math.Sin(a)})
		}
		for i := 0; i <= n; i++ {
			a := math.Pi + math.Pi*float64(i)/float64(n)
			r = append(r, Point{center.X + radius*math.Cos(a), center.Y - dy + radius*math.Sin(a)})
		}
	}
	return r
}

// StrokeSegment returns the area swept by a round pen of the given
// diameter moving from a to b: a rectangle along the segment plus a
// full-circle cap at each end.
func StrokeSegment(a, b Point, diameter float64, resolution int) Shape {
	radius := diameter / 2
	if radius <= 0 {
		return nil
	}
	if a == b {
		return Circle(a, radius, resolution)
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	nx, ny := -dy/length*radius, dx/length*radius
	quad := Ring{
		{a.X + nx, a.Y + ny},
		{b.X + nx, b.Y + ny},
		{b.X - nx, b.Y - ny},
		{a.X - nx, a.Y - ny},
	}
	out := Shape{quad}
	out = Union(out, Circle(a, radius, resolution))
	out = Union(out, Circle(b, radius, resolution))
	return out
}

// StrokePath strokes a polyline with a round pen. Consecutive segments
// share cap circles at the joints, so the result is one coherent area.
func StrokePath(points []Point, diameter float64, resolution int) Shape {
	if len(points) == 0 || diameter <= 0 {
		return nil
	}
	if len(points) == 1 {
		return Circle(points[0], diameter/2, resolution)
	}
	var acc Shape
	for i := 0; i+1 < len(points); i++ {
		acc = Union(acc, StrokeSegment(points[i], points[i+1], diameter, resolution))
	}
	return acc
}

// RectStroke returns the convex hull swept by a rectangular aperture
// moving from a to b, per the Gerber draw semantics for R apertures.
func RectStroke(a, b Point, width, height float64) Shape {
	corners := make([]Point, 0, 8)
	for _, c := range []Point{a, b} {
		corners = append(corners,
			Point{c.X - width/2, c.Y - height/2},
			Point{c.X + width/2, c.Y - height/2},
			Point{c.X + width/2, c.Y + height/2},
			Point{c.X - width/2, c.Y + height/2},
		)
	}
	hull := ConvexHull(corners)
	if len(hull) < 3 {
		return nil
	}
	return Shape{hull}
}
