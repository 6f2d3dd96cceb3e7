package qfn

import (
	"math"
	"testing"

	"github.com/forgeworks/stencilforge/internal/geom"
)

var testParams = Params{MinFeature: 0.28, Confidence: 0.7, MaxPadWidth: 0.5}

func rectAt(cx, cy, w, h float64) geom.Ring {
	return geom.RectRing(geom.Point{X: cx, Y: cy}, w, h)
}

// syntheticQFN lays out four rows of fingers around an empty center:
// 10 pads top and bottom, 8 pads left and right, all pitched so the web
// between apertures is narrower than the printable minimum.
func syntheticQFN(pitch float64) geom.Shape {
	var s geom.Shape
	const (
		rowY  = 2.8
		colX  = 4.3
		long  = 0.6
		short = 0.4
		nRow  = 10
		nCol  = 8
	)
	rowStart := -pitch * float64(nRow-1) / 2
	for i := 0; i < nRow; i++ {
		x := rowStart + float64(i)*pitch
		s = append(s, rectAt(x, rowY, long, short))
		s = append(s, rectAt(x, -rowY, long, short))
	}
	colStart := -pitch * float64(nCol-1) / 2
	for i := 0; i < nCol; i++ {
		y := colStart + float64(i)*pitch
		s = append(s, rectAt(colX, y, short, long))
		s = append(s, rectAt(-colX, y, short, long))
	}
	return s
}

func TestRegenerateFinePitch(t *testing.T) {
	t.Parallel()
	paste := syntheticQFN(0.65)
	out, report := Regenerate(paste, testParams)
	if report == nil {
		t.Fatal("expected a detection report")
	}
	if report.Pads != 36 {
		t.Errorf("Pads = %d, want 36", report.Pads)
	}
	if report.Score < testParams.Confidence {
		t.Errorf("Score = %v, below threshold", report.Score)
	}
	if out.IsEmpty() {
		t.Fatal("regenerated shape is empty")
	}
	// Fingers collapse into a handful of slots per side.
	if got := len(out.Regions()); got >= 36 {
		t.Errorf("regions = %d, want fewer than the 36 input pads", got)
	}
	// A slot sits on each side, biased slightly outward.
	for _, p := range []geom.Point{{X: 0, Y: 2.9}, {X: 0, Y: -2.9}, {X: 4.4, Y: 0}, {X: -4.4, Y: 0}} {
		if !out.Contains(p) {
			t.Errorf("no slot material at %v", p)
		}
	}
	// The board interior stays clear.
	if out.Contains(geom.Point{X: 0, Y: 0}) {
		t.Errorf("unexpected material at the package center")
	}
}

func TestRegenerateCoarsePitchKeepsPads(t *testing.T) {
	t.Parallel()
	// Web of 0.4mm is printable; detection still fires but every side
	// is kept as-is.
	paste := syntheticQFN(0.8)
	out, report := Regenerate(paste, testParams)
	if report == nil {
		t.Fatal("expected a detection report")
	}
	if got := len(out.Regions()); got != 36 {
		t.Errorf("regions = %d, want all 36 pads kept", got)
	}
	if math.Abs(out.Area()-paste.Area())/paste.Area() > 1e-6 {
		t.Errorf("area changed: %v -> %v", paste.Area(), out.Area())
	}
}

func TestRegenerateIgnoresSparseInput(t *testing.T) {
	t.Parallel()
	var paste geom.Shape
	for i := 0; i < 4; i++ {
		paste = append(paste, rectAt(float64(i)*2, 0, 0.6, 0.4))
	}
	out, report := Regenerate(paste, testParams)
	if report != nil {
		t.Errorf("unexpected report for 4 pads: %+v", report)
	}
	if len(out) != len(paste) {
		t.Errorf("shape changed for non-QFN input")
	}
}

func TestRegenerateIgnoresSquarePads(t *testing.T) {
	t.Parallel()
	// A BGA-like grid: plenty of pads, none elongated.
	var paste geom.Shape
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			paste = append(paste, rectAt(float64(c), float64(r), 0.4, 0.4))
		}
	}
	out, report := Regenerate(paste, testParams)
	if report != nil {
		t.Errorf("unexpected report for square grid: %+v", report)
	}
	if len(out) != len(paste) {
		t.Errorf("shape changed for non-QFN input")
	}
}

func TestRegenerateEmptyShape(t *testing.T) {
	t.Parallel()
	out, report := Regenerate(nil, testParams)
	if report != nil || out != nil {
		t.Errorf("expected pass-through for empty input")
	}
}
