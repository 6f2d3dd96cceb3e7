package solid

import (
	"sort"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// The scanline backend decomposes each cap into horizontal trapezoids:
// one y band per pair of adjacent vertex ordinates, with the band's
// edge crossings paired even-odd to find the filled intervals.

type slEdge struct {
	x0, y0, x1, y1 float64 // y0 < y1
}

// xAt returns the edge's x at height y by linear interpolation.
func (e slEdge) xAt(y float64) float64 {
	t := (y - e.y0) / (e.y1 - e.y0)
	return e.x0 + t*(e.x1-e.x0)
}

// triangulateScanline returns cap triangles for one polygon-with-holes.
// Ring winding is irrelevant; the even-odd pairing handles holes.
func triangulateScanline(outer geom.Ring, holes []geom.Ring) [][3]geom.Point {
	var edges []slEdge
	var ys []float64
	collect := func(r geom.Ring) {
		n := len(r)
		for i := 0; i < n; i++ {
			p, q := r[i], r[(i+1)%n]
			ys = append(ys, p.Y)
			if p.Y == q.Y {
				continue // horizontal edges never cross a band midline
			}
			if p.Y > q.Y {
				p, q = q, p
			}
			edges = append(edges, slEdge{x0: p.X, y0: p.Y, x1: q.X, y1: q.Y})
		}
	}
	collect(outer)
	for _, h := range holes {
		collect(h)
	}
	if len(edges) == 0 {
		return nil
	}

	sort.Float64s(ys)
	var tris [][3]geom.Point
	for i := 1; i < len(ys); i++ {
		yLo, yHi := ys[i-1], ys[i]
		if yHi-yLo < 1e-12 {
			continue
		}
		tris = append(tris, bandTrapezoids(edges, yLo, yHi)...)
	}
	return tris
}

// bandTrapezoids slices one y band into filled trapezoids and emits two
// triangles per trapezoid, skipping collapsed corners.
func bandTrapezoids(edges []slEdge, yLo, yHi float64) [][3]geom.Point {
	yMid := (yLo + yHi) / 2
	var active []slEdge
	for _, e := range edges {
		if e.y0 <= yMid && yMid < e.y1 {
			active = append(active, e)
		}
	}
	if len(active) < 2 {
		return nil
	}
	sort.Slice(active, func(a, b int) bool {
		return active[a].xAt(yMid) < active[b].xAt(yMid)
	})

	var tris [][3]geom.Point
	for k := 0; k+1 < len(active); k += 2 {
		l, r := active[k], active[k+1]
		bl := geom.Point{X: l.xAt(yLo), Y: yLo}
		br := geom.Point{X: r.xAt(yLo), Y: yLo}
		tr := geom.Point{X: r.xAt(yHi), Y: yHi}
		tl := geom.Point{X: l.xAt(yHi), Y: yHi}
		if bl.X < br.X {
			tris = append(tris, [3]geom.Point{bl, br, tr})
		}
		if tl.X < tr.X {
			tris = append(tris, [3]geom.Point{bl, tr, tl})
		}
	}
	return tris
}
