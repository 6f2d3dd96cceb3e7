package geom

import (
	"math"
	"testing"
)

func square(cx, cy, side float64) Ring {
	h := side / 2
	return Ring{
		{cx - h, cy - h},
		{cx + h, cy - h},
		{cx + h, cy + h},
		{cx - h, cy + h},
	}
}

func TestRingSignedArea(t *testing.T) {
	t.Parallel()
	r := square(0, 0, 2)
	if got := r.SignedArea(); math.Abs(got-4) > 1e-12 {
		t.Errorf("SignedArea = %v, want 4", got)
	}
	r.Reverse()
	if got := r.SignedArea(); math.Abs(got+4) > 1e-12 {
		t.Errorf("SignedArea after Reverse = %v, want -4", got)
	}
}

func TestRingContains(t *testing.T) {
	t.Parallel()
	r := square(0, 0, 2)
	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{0, 0}, true},
		{"outside right", Point{2, 0}, false},
		{"outside above", Point{0, 5}, false},
		{"near corner inside", Point{0.9, 0.9}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Contains(tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestUnionMergesOverlap(t *testing.T) {
	t.Parallel()
	a := Shape{square(0, 0, 2)}
	b := Shape{square(1, 0, 2)}
	u := Union(a, b)
	// Two 2x2 squares overlapping in a 1x2 strip.
	if got, want := u.Area(), 6.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("union area = %v, want %v", got, want)
	}
}

func TestDifferenceCutsHole(t *testing.T) {
	t.Parallel()
	outer := Shape{square(0, 0, 4)}
	inner := Shape{square(0, 0, 2)}
	d := Difference(outer, inner)
	if got, want := d.Area(), 12.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("difference area = %v, want %v", got, want)
	}
	if got := d.CountHoles(); got != 1 {
		t.Errorf("CountHoles = %d, want 1", got)
	}
}

func TestRegionsNesting(t *testing.T) {
	t.Parallel()
	// Plate with a hole, and an island inside the hole.
	s := Difference(Shape{square(0, 0, 8)}, Shape{square(0, 0, 4)})
	s = Union(s, Shape{square(0, 0, 2)})
	regions := s.Regions()
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(regions))
	}
	holes := 0
	for _, reg := range regions {
		if reg.Outer.SignedArea() <= 0 {
			t.Errorf("outer ring not CCW")
		}
		// The hole belongs to the plate, not the island.
		if len(reg.Holes) > 0 && reg.Outer.Area() < 60 {
			t.Errorf("hole assigned to the island outer (area %v)", reg.Outer.Area())
		}
		for _, h := range reg.Holes {
			holes++
			if h.SignedArea() >= 0 {
				t.Errorf("hole ring not CW")
			}
		}
	}
	if holes != 1 {
		t.Errorf("holes = %d, want 1", holes)
	}
}

func TestCircleArea(t *testing.T) {
	t.Parallel()
	const radius = 1.5
	c := Circle(Point{2, 3}, radius, 32)
	want := math.Pi * radius * radius
	// A 128-gon underestimates the disc by under 0.2%.
	if got := c.Area(); math.Abs(got-want)/want > 0.002 {
		t.Errorf("circle area = %v, want about %v", got, want)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	t.Parallel()
	orig := Shape{square(0, 0, 10)}
	const d = 1.0
	grown := Offset(orig, d, 16)
	back := Offset(grown.Shape, -d, 16)
	if grown.Dropped != 0 || back.Dropped != 0 {
		t.Fatalf("unexpected drops: %d, %d", grown.Dropped, back.Dropped)
	}
	got, want := back.Shape.Area(), orig.Area()
	// Join approximation leaves a small corner error.
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("round-trip area = %v, want about %v", got, want)
	}
}

func TestOffsetDropsCollapsedRings(t *testing.T) {
	t.Parallel()
	small := Shape{square(0, 0, 1)}
	res := Offset(small, -2, 8)
	if !res.Shape.IsEmpty() {
		t.Errorf("expected empty shape, got area %v", res.Shape.Area())
	}
	if res.Dropped == 0 {
		t.Errorf("expected dropped ring count > 0")
	}
}

func TestOffsetGrowsCircleRadius(t *testing.T) {
	t.Parallel()
	c := Circle(Point{0, 0}, 2, 16)
	grown := Offset(c, 1, 16).Shape
	want := math.Pi * 9
	if got := grown.Area(); math.Abs(got-want)/want > 0.01 {
		t.Errorf("grown circle area = %v, want about %v", got, want)
	}
}

func TestMinRotatedRect(t *testing.T) {
	t.Parallel()
	// A 4x1 rectangle rotated 30 degrees.
	base := RectRing(Point{0, 0}, 4, 1)
	rot := Shape{base}.Rotate(math.Pi/6, Point{})
	rect, ok := MinRotatedRect(rot[0])
	if !ok {
		t.Fatal("MinRotatedRect failed")
	}
	if math.Abs(rect.Long-4) > 1e-9 || math.Abs(rect.Short-1) > 1e-9 {
		t.Errorf("sides = %v x %v, want 4 x 1", rect.Long, rect.Short)
	}
	if math.Abs(rect.Angle-math.Pi/6) > 1e-9 {
		t.Errorf("angle = %v, want %v", rect.Angle, math.Pi/6)
	}
}

func TestSimplifyRingRemovesCollinear(t *testing.T) {
	t.Parallel()
	r := Ring{
		{0, 0}, {1, 0}, {2, 0}, {4, 0},
		{4, 4}, {0, 4},
	}
	got := SimplifyRing(r, 0.001, 0.01)
	if len(got) != 4 {
		t.Errorf("simplified to %d vertices, want 4: %v", len(got), got)
	}
	if math.Abs(got.Area()-r.Area()) > 1e-9 {
		t.Errorf("area changed: %v -> %v", r.Area(), got.Area())
	}
}

func TestSimplifyToleranceMonotonic(t *testing.T) {
	t.Parallel()
	c := CircleRing(Point{0, 0}, 5, 32)
	fine := SimplifyRing(c, 0.001, 0.001)
	coarse := SimplifyRing(c, 0.1, 0.2)
	if len(coarse) > len(fine) {
		t.Errorf("coarse tolerance kept more vertices (%d) than fine (%d)", len(coarse), len(fine))
	}
	if len(fine) < 3 || len(coarse) < 3 {
		t.Errorf("simplification degenerated rings: %d, %d", len(fine), len(coarse))
	}
}

func TestStrokeSegmentArea(t *testing.T) {
	t.Parallel()
	s := StrokeSegment(Point{0, 0}, Point{10, 0}, 2, 32)
	// Rectangle 10x2 plus two half-circle caps of radius 1.
	want := 20 + math.Pi
	if got := s.Area(); math.Abs(got-want)/want > 0.005 {
		t.Errorf("stroke area = %v, want about %v", got, want)
	}
}

func TestObroundRingArea(t *testing.T) {
	t.Parallel()
	r := ObroundRing(Point{0, 0}, 4, 2, 32)
	// 2x2 core plus a radius-1 disc from the two caps.
	want := 4 + math.Pi
	if got := r.Area(); math.Abs(got-want)/want > 0.005 {
		t.Errorf("obround area = %v, want about %v", got, want)
	}
}

func TestConvexHull(t *testing.T) {
	t.Parallel()
	pts := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {0.5, 0.2}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull size = %d, want 4", len(hull))
	}
	if hull.SignedArea() <= 0 {
		t.Errorf("hull not CCW")
	}
}
