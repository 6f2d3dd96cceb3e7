package geom

import "math"

// SimplifyRing reduces a ring's vertex count under two tolerances:
// linearTol is the maximum chord deviation (Douglas-Peucker) and
// angularTol the maximum direction change, in radians, below which a
// vertex joining two near-collinear edges is merged away. Either
// tolerance may be zero to disable that pass. The result always keeps
// at least 3 vertices.
func SimplifyRing(r Ring, linearTol, angularTol float64) Ring {
	if len(r) <= 3 {
		return r.Clone()
	}
	out := r.Clone()
	if angularTol > 0 {
		out = mergeCollinear(out, angularTol)
	}
	if linearTol > 0 {
		out = douglasPeucker(out, linearTol)
	}
	if len(out) < 3 {
		return r.Clone()
	}
	return out
}

// SimplifyShape applies SimplifyRing to every ring of the shape.
func SimplifyShape(s Shape, linearTol, angularTol float64) Shape {
	out := make(Shape, 0, len(s))
	for _, r := range s {
		out = append(out, SimplifyRing(r, linearTol, angularTol))
	}
	return out
}

func mergeCollinear(r Ring, angularTol float64) Ring {
	n := len(r)
	out := make(Ring, 0, n)
	for i := 0; i < n; i++ {
		prev := r[(i-1+n)%n]
		cur := r[i]
		next := r[(i+1)%n]
		a1 := math.Atan2(cur.Y-prev.Y, cur.X-prev.X)
		a2 := math.Atan2(next.Y-cur.Y, next.X-cur.X)
		turn := math.Abs(angleDiff(a2, a1))
		if turn < angularTol && len(out) > 0 {
			continue
		}
		out = append(out, cur)
	}
	if len(out) < 3 {
		return r
	}
	return out
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// douglasPeucker runs on the closed ring by splitting it at its two
// mutually farthest anchor points, simplifying each open chain, and
// rejoining.
func douglasPeucker(r Ring, tol float64) Ring {
	n := len(r)
	if n <= 4 {
		return r
	}
	// Anchor at index 0 and the vertex farthest from it.
	far := 1
	best := 0.0
	for i := 1; i < n; i++ {
		if d := r[0].Dist(r[i]); d > best {
			best = d
			far = i
		}
	}
	chain1 := append(Ring(nil), r[:far+1]...)
	chain2 := append(Ring(nil), r[far:]...)
	chain2 = append(chain2, r[0])
	s1 := dpChain(chain1, tol)
	s2 := dpChain(chain2, tol)
	out := append(Ring(nil), s1...)
	out = append(out, s2[1:len(s2)-1]...)
	return out
}

func dpChain(pts Ring, tol float64) Ring {
	if len(pts) <= 2 {
		return pts
	}
	a, b := pts[0], pts[len(pts)-1]
	maxDist := 0.0
	idx := 0
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegDist(pts[i], a, b); d > maxDist {
			maxDist = d
			idx = i
		}
	}
	if maxDist <= tol {
		return Ring{a, b}
	}
	left := dpChain(pts[:idx+1], tol)
	right := dpChain(pts[idx:], tol)
	return append(left[:len(left)-1], right...)
}

func pointSegDist(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{a.X + t*dx, a.Y + t*dy})
}
