package geom

import (
	"math"
	"sort"
)

// ConvexHull returns the convex hull of the points as a counter-clockwise
// ring (Andrew's monotone chain).
func ConvexHull(points []Point) Ring {
	if len(points) < 3 {
		return append(Ring(nil), points...)
	}
	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower, upper []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return Ring(hull)
}

// RotatedRect describes a minimum-area oriented bounding rectangle.
type RotatedRect struct {
	Center Point
	Long   float64 // longer side length
	Short  float64 // shorter side length
	Angle  float64 // orientation of the long side, radians in [0, pi)
	Area   float64
}

// MinRotatedRect computes the minimum-area oriented bounding rectangle of
// a ring by rotating calipers over its convex hull edges.
func MinRotatedRect(r Ring) (RotatedRect, bool) {
	hull := ConvexHull(r)
	if len(hull) < 3 {
		return RotatedRect{}, false
	}
	best := RotatedRect{Area: math.Inf(1)}
	n := len(hull)
	for i := 0; i < n; i++ {
		a, b := hull[i], hull[(i+1)%n]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length // edge direction
		// Project hull onto edge direction and its normal.
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := -p.X*uy + p.Y*ux
			minU = math.Min(minU, u)
			maxU = math.Max(maxU, u)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
		w, h := maxU-minU, maxV-minV
		area := w * h
		if area >= best.Area {
			continue
		}
		cu, cv := (minU+maxU)/2, (minV+maxV)/2
		center := Point{cu*ux - cv*uy, cu*uy + cv*ux}
		long, short := w, h
		angle := math.Atan2(uy, ux)
		if h > w {
			long, short = h, w
			angle += math.Pi / 2
		}
		angle = math.Mod(angle, math.Pi)
		if angle < 0 {
			angle += math.Pi
		}
		best = RotatedRect{Center: center, Long: long, Short: short, Angle: angle, Area: area}
	}
	if math.IsInf(best.Area, 1) {
		return RotatedRect{}, false
	}
	return best, true
}
