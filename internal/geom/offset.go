package geom

import "math"

// OffsetResult carries the offset shape plus the number of rings that
// collapsed and were dropped, so callers can log the recovery.
type OffsetResult struct {
	Shape   Shape
	Dropped int
}

// Offset grows (distance > 0) or shrinks (distance < 0) the filled area
// of a shape by a uniform distance. Round joins are approximated with
// `resolution` segments per quarter turn.
//
// The implementation buffers the shape boundary with a round pen of
// radius |distance| and unions it on (grow) or subtracts it (shrink),
// which matches a morphological dilation/erosion of the filled area.
// Rings that collapse under a large inward offset are dropped from the
// result rather than propagated as degenerate geometry.
func Offset(s Shape, distance float64, resolution int) OffsetResult {
	if s.IsEmpty() {
		return OffsetResult{}
	}
	if distance == 0 {
		return OffsetResult{Shape: s.Clone()}
	}
	pen := boundaryStroke(s, math.Abs(distance), resolution)
	var out Shape
	if distance > 0 {
		out = Union(s, pen)
	} else {
		out = Difference(s, pen)
	}
	out, dropped := dropDegenerate(out)
	out = dropSlivers(out, math.Abs(distance))
	if distance < 0 && len(out) < len(s) {
		// Rings erased entirely by the erosion leave no residue to
		// count above; infer them from the ring deficit.
		if deficit := len(s) - len(out); deficit > dropped {
			dropped = deficit
		}
	}
	return OffsetResult{Shape: out, Dropped: dropped}
}

// boundaryStroke returns the area within `radius` of any ring edge:
// one quad per edge plus a join circle per vertex.
func boundaryStroke(s Shape, radius float64, resolution int) Shape {
	var acc Shape
	for _, r := range s {
		n := len(r)
		if n < 3 {
			continue
		}
		for i := 0; i < n; i++ {
			acc = Union(acc, StrokeSegment(r[i], r[(i+1)%n], 2*radius, resolution))
		}
	}
	return acc
}

// dropSlivers removes rings so thin relative to the offset distance that
// they are boolean-arithmetic noise rather than real features.
func dropSlivers(s Shape, distance float64) Shape {
	minArea := distance * distance * 1e-6
	if minArea <= degenerateArea {
		return s
	}
	out := s[:0]
	for _, r := range s {
		if r.Area() < minArea {
			continue
		}
		out = append(out, r)
	}
	return out
}
