package geom

import "math"

// SampleArc samples a circular arc into steps straight segments spread
// uniformly over the subtended angle, returning steps+1 points from the
// start angle to the end angle inclusive. Sweep direction follows the
// sign convention of the angles: callers normalize a1 relative to a0
// (a1 > a0 counter-clockwise, a1 < a0 clockwise) before sampling.
func SampleArc(center Point, radius, a0, a1 float64, steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, steps+1)
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		pts[i] = Point{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)}
	}
	return pts
}

// NormalizeSweep returns the end angle adjusted so the sweep from start
// follows the requested direction: counter-clockwise sweeps are positive,
// clockwise sweeps negative. A zero sweep becomes a full circle, which is
// how Gerber encodes full-circle arcs in multi-quadrant mode.
func NormalizeSweep(start, end float64, clockwise bool) float64 {
	if clockwise {
		for end >= start {
			end -= 2 * math.Pi
		}
		if start-end > 2*math.Pi-1e-12 {
			end = start - 2*math.Pi
		}
	} else {
		for end <= start {
			end += 2 * math.Pi
		}
		if end-start > 2*math.Pi-1e-12 {
			end = start + 2*math.Pi
		}
	}
	return end
}
