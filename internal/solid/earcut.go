package solid

import (
	"math"
	"sort"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// The earcut backend triangulates each cap by first splicing every hole
// into the outer ring with a bridge edge, then ear-clipping the
// resulting simple polygon.

// triangulateEarcut returns cap triangles for one polygon-with-holes.
// The outer ring must be CCW, holes CW.
func triangulateEarcut(outer geom.Ring, holes []geom.Ring) [][3]geom.Point {
	merged := bridgeHoles(outer, holes)
	return earClip(merged)
}

// bridgeHoles splices holes into the outer ring, rightmost hole first so
// earlier bridges cannot block later ones.
func bridgeHoles(outer geom.Ring, holes []geom.Ring) geom.Ring {
	if len(holes) == 0 {
		return outer
	}
	sorted := make([]geom.Ring, len(holes))
	copy(sorted, holes)
	sort.Slice(sorted, func(i, j int) bool {
		return maxX(sorted[i]) > maxX(sorted[j])
	})
	merged := outer.Clone()
	for _, hole := range sorted {
		merged = spliceHole(merged, hole)
	}
	return merged
}

func maxX(r geom.Ring) float64 {
	m := math.Inf(-1)
	for _, p := range r {
		m = math.Max(m, p.X)
	}
	return m
}

// spliceHole connects the hole's rightmost vertex to a mutually visible
// outer vertex and merges the rings along that bridge. The bridge edge
// appears twice with opposite directions, which ear clipping tolerates.
func spliceHole(outer, hole geom.Ring) geom.Ring {
	hi := 0
	for i, p := range hole {
		if p.X > hole[hi].X {
			hi = i
		}
	}
	m := hole[hi]

	// Try outer vertices nearest the hole vertex first.
	order := make([]int, len(outer))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return outer[order[a]].Dist(m) < outer[order[b]].Dist(m)
	})
	oi := -1
	for _, cand := range order {
		if bridgeClear(m, outer[cand], outer, hole) {
			oi = cand
			break
		}
	}
	if oi < 0 {
		oi = order[0]
	}

	merged := make(geom.Ring, 0, len(outer)+len(hole)+2)
	merged = append(merged, outer[:oi+1]...)
	for k := 0; k <= len(hole); k++ {
		merged = append(merged, hole[(hi+k)%len(hole)])
	}
	merged = append(merged, outer[oi:]...)
	return merged
}

// bridgeClear reports whether segment a-b crosses no ring edge except at
// its own endpoints.
func bridgeClear(a, b geom.Point, rings ...geom.Ring) bool {
	for _, r := range rings {
		n := len(r)
		for i := 0; i < n; i++ {
			p, q := r[i], r[(i+1)%n]
			if p == a || p == b || q == a || q == b {
				continue
			}
			if segmentsCross(a, b, p, q) {
				return false
			}
		}
	}
	return true
}

func segmentsCross(a, b, c, d geom.Point) bool {
	d1 := cross2(c, d, a)
	d2 := cross2(c, d, b)
	d3 := cross2(a, b, c)
	d4 := cross2(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross2(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// earClip triangulates a simple CCW polygon. When no ear is found
// (numeric noise on bridge edges) it falls back to clipping the least
// concave vertex so the loop always terminates.
func earClip(ring geom.Ring) [][3]geom.Point {
	n := len(ring)
	if n < 3 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]geom.Point
	for len(idx) > 3 {
		clipped := false
		for k := 0; k < len(idx); k++ {
			if isEar(ring, idx, k) {
				prev := idx[(k-1+len(idx))%len(idx)]
				next := idx[(k+1)%len(idx)]
				tris = append(tris, [3]geom.Point{ring[prev], ring[idx[k]], ring[next]})
				idx = append(idx[:k], idx[k+1:]...)
				clipped = true
				break
			}
		}
		if !clipped {
			k := leastConcave(ring, idx)
			prev := idx[(k-1+len(idx))%len(idx)]
			next := idx[(k+1)%len(idx)]
			tris = append(tris, [3]geom.Point{ring[prev], ring[idx[k]], ring[next]})
			idx = append(idx[:k], idx[k+1:]...)
		}
	}
	tris = append(tris, [3]geom.Point{ring[idx[0]], ring[idx[1]], ring[idx[2]]})
	return tris
}

func isEar(ring geom.Ring, idx []int, k int) bool {
	n := len(idx)
	a := ring[idx[(k-1+n)%n]]
	b := ring[idx[k]]
	c := ring[idx[(k+1)%n]]
	if cross2(a, b, c) <= 1e-12 {
		return false
	}
	for _, j := range idx {
		p := ring[j]
		if p == a || p == b || p == c {
			continue
		}
		if pointInTriangle(p, a, b, c) {
			return false
		}
	}
	return true
}

func pointInTriangle(p, a, b, c geom.Point) bool {
	d1 := cross2(a, b, p)
	d2 := cross2(b, c, p)
	d3 := cross2(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func leastConcave(ring geom.Ring, idx []int) int {
	n := len(idx)
	best, bestCross := 0, math.Inf(-1)
	for k := 0; k < n; k++ {
		a := ring[idx[(k-1+n)%n]]
		b := ring[idx[k]]
		c := ring[idx[(k+1)%n]]
		if cr := cross2(a, b, c); cr > bestCross {
			bestCross = cr
			best = k
		}
	}
	return best
}
