// Package outline recovers the single board silhouette from an outline
// layer's stroked segments, or synthesizes one from paste bounds when no
// outline layer exists.
package outline

import (
	"errors"
	"math"
	"sort"

	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/gerber"
)

const (
	// snapEps quantizes endpoints so segments drawn by different CAD
	// exports still share vertices.
	snapEps = 0.001
	// gapBridge closes small draws left open by sloppy exports.
	gapBridge = 0.05
	// fallbackPen strokes segments when polygonization fails.
	fallbackPen = 0.05
)

// ErrNoOutline means the layer held no usable boundary geometry.
var ErrNoOutline = errors.New("outline: no closed boundary found")

// FromFile resolves the board silhouette from an outline layer. Segment
// chaining is tried first; if no closed ring emerges the segments are
// stroked and unioned and the largest resulting boundary is used.
func FromFile(f *gerber.File, arcSteps, resolution int) (geom.Shape, error) {
	segs := collectSegments(f, arcSteps)
	if len(segs) == 0 {
		return nil, ErrNoOutline
	}
	if ring, ok := polygonize(segs); ok {
		return geom.Shape{ring}, nil
	}
	return strokeFallback(segs, resolution)
}

// Fallback synthesizes a rectangular silhouette from the paste bounds
// grown by the configured margin.
func Fallback(paste geom.Shape, margin float64) (geom.Shape, error) {
	if paste.IsEmpty() {
		return nil, ErrNoOutline
	}
	b := paste.Bounds()
	return geom.Shape{geom.Ring{
		{X: b.MinX - margin, Y: b.MinY - margin},
		{X: b.MaxX + margin, Y: b.MinY - margin},
		{X: b.MaxX + margin, Y: b.MaxY + margin},
		{X: b.MinX - margin, Y: b.MaxY + margin},
	}}, nil
}

type segment struct {
	a, b geom.Point
}

// collectSegments flattens the layer's draw commands into line segments,
// sampling arcs. Flashes and polarity are irrelevant on outline layers.
func collectSegments(f *gerber.File, arcSteps int) []segment {
	if arcSteps < 8 {
		arcSteps = 8
	}
	var segs []segment
	var cur geom.Point
	for _, cmd := range f.Commands {
		switch cmd.Kind {
		case gerber.CmdMove:
			cur = cmd.Target
		case gerber.CmdDraw:
			pts := drawPoints(cur, cmd, arcSteps)
			for i := 1; i < len(pts); i++ {
				segs = append(segs, segment{a: pts[i-1], b: pts[i]})
			}
			cur = cmd.Target
		case gerber.CmdFlash:
			cur = cmd.Target
		}
	}
	return normalizeSegments(segs)
}

func drawPoints(start geom.Point, cmd gerber.Command, arcSteps int) []geom.Point {
	if cmd.Interp == gerber.InterpLinear {
		return []geom.Point{start, cmd.Target}
	}
	cw := cmd.Interp == gerber.InterpClockwise
	center := geom.Point{X: start.X + cmd.CenterOffset.X, Y: start.Y + cmd.CenterOffset.Y}
	if !cmd.MultiQuadrant {
		// Outline arcs in single-quadrant mode carry unsigned offsets;
		// pick the sign combination with matching radii.
		best := center
		bestErr := math.Inf(1)
		for _, sx := range []float64{1, -1} {
			for _, sy := range []float64{1, -1} {
				c := geom.Point{X: start.X + sx*math.Abs(cmd.CenterOffset.X), Y: start.Y + sy*math.Abs(cmd.CenterOffset.Y)}
				if d := math.Abs(start.Dist(c) - cmd.Target.Dist(c)); d < bestErr {
					bestErr = d
					best = c
				}
			}
		}
		center = best
	}
	radius := start.Dist(center)
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(cmd.Target.Y-center.Y, cmd.Target.X-center.X)
	if start == cmd.Target && !cmd.MultiQuadrant {
		return []geom.Point{start, cmd.Target}
	}
	a1 = geom.NormalizeSweep(a0, a1, cw)
	return geom.SampleArc(center, radius, a0, a1, arcSteps)
}

func snap(p geom.Point) geom.Point {
	return geom.Point{
		X: math.Round(p.X/snapEps) * snapEps,
		Y: math.Round(p.Y/snapEps) * snapEps,
	}
}

// normalizeSegments snaps endpoints, drops degenerate segments, and
// removes exact duplicates regardless of direction.
func normalizeSegments(segs []segment) []segment {
	seen := make(map[[4]float64]bool, len(segs))
	out := segs[:0]
	for _, s := range segs {
		a, b := snap(s.a), snap(s.b)
		if a == b {
			continue
		}
		key := [4]float64{a.X, a.Y, b.X, b.Y}
		if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
			key = [4]float64{b.X, b.Y, a.X, a.Y}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, segment{a: a, b: b})
	}
	return out
}

// polygonize chains segments end to end into closed rings, bridging
// endpoint gaps up to gapBridge, and returns the largest ring found.
func polygonize(segs []segment) (geom.Ring, bool) {
	used := make([]bool, len(segs))
	var best geom.Ring
	bestArea := 0.0
	for i := range segs {
		if used[i] {
			continue
		}
		ring, consumed, ok := chainFrom(segs, used, i)
		if !ok {
			for _, j := range consumed {
				used[j] = false
			}
			used[i] = true
			continue
		}
		if a := ring.Area(); a > bestArea {
			bestArea = a
			best = ring
		}
	}
	if bestArea <= snapEps*snapEps {
		return nil, false
	}
	if best.SignedArea() < 0 {
		best.Reverse()
	}
	return best, true
}

// chainFrom walks from segment i, always extending from the chain's free
// end to the nearest unused segment endpoint within gapBridge.
func chainFrom(segs []segment, used []bool, i int) (geom.Ring, []int, bool) {
	ring := geom.Ring{segs[i].a, segs[i].b}
	used[i] = true
	consumed := []int{i}
	for {
		tip := ring[len(ring)-1]
		if len(ring) > 2 && tip.Dist(ring[0]) <= gapBridge {
			return ring[:len(ring)-1], consumed, true
		}
		j, flip, ok := nearestSegment(segs, used, tip)
		if !ok {
			return nil, consumed, false
		}
		used[j] = true
		consumed = append(consumed, j)
		next := segs[j].b
		if flip {
			next = segs[j].a
		}
		ring = append(ring, next)
		if len(ring) > 4*len(segs)+8 {
			return nil, consumed, false
		}
	}
}

func nearestSegment(segs []segment, used []bool, tip geom.Point) (int, bool, bool) {
	bestIdx, bestFlip := -1, false
	bestDist := gapBridge
	for j := range segs {
		if used[j] {
			continue
		}
		if d := tip.Dist(segs[j].a); d <= bestDist {
			bestDist, bestIdx, bestFlip = d, j, false
		}
		if d := tip.Dist(segs[j].b); d <= bestDist {
			bestDist, bestIdx, bestFlip = d, j, true
		}
	}
	return bestIdx, bestFlip, bestIdx >= 0
}

// strokeFallback buffers every segment into a thin quad, unions them,
// and takes the outer boundary of the largest connected region.
func strokeFallback(segs []segment, resolution int) (geom.Shape, error) {
	var shapes []geom.Shape
	for _, s := range segs {
		shapes = append(shapes, geom.StrokeSegment(s.a, s.b, fallbackPen, resolution))
	}
	merged := geom.UnionAll(shapes)
	regions := merged.Regions()
	if len(regions) == 0 {
		return nil, ErrNoOutline
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Outer.Area() > regions[j].Outer.Area()
	})
	// A stroked closed loop encloses the board as its first hole; an
	// open scribble has no hole and its outer hull is the best guess.
	best := regions[0]
	if len(best.Holes) > 0 {
		hole := best.Holes[0]
		for _, h := range best.Holes[1:] {
			if h.Area() > hole.Area() {
				hole = h
			}
		}
		ring := hole.Clone()
		if ring.SignedArea() < 0 {
			ring.Reverse()
		}
		return geom.Shape{ring}, nil
	}
	return geom.Shape{best.Outer}, nil
}
