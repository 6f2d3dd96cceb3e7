package assemble

import (
	"math"
	"strings"
	"testing"

	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/gerber"
)

var testOpts = Options{ArcSteps: 64, CurveResolution: 16}

func layerFromSource(t *testing.T, src string) geom.Shape {
	t.Helper()
	f, err := gerber.Parse("test.gtp", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	shape, err := Layer(f, testOpts)
	if err != nil {
		t.Fatalf("Layer: %v", err)
	}
	return shape
}

const header = "%FSLAX25Y25*%\n%MOMM*%\n"

func TestFlashAreasMatchAnalytic(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		def  string
		want float64
		tol  float64
	}{
		{"circle", "%ADD10C,2*%", math.Pi, 0.005},
		{"rectangle", "%ADD10R,3X2*%", 6, 1e-9},
		{"obround", "%ADD10O,4X2*%", 4 + math.Pi, 0.005},
		{"square polygon", "%ADD10P,2X4X45*%", 2, 1e-9},
		{"circle with hole", "%ADD10C,2X1*%", math.Pi - math.Pi/4, 0.005},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			shape := layerFromSource(t, header+tc.def+"\nD10*\nX0Y0D03*\nM02*\n")
			if got := shape.Area(); math.Abs(got-tc.want)/tc.want > tc.tol {
				t.Errorf("area = %v, want %v within %v", got, tc.want, tc.tol)
			}
		})
	}
}

func TestOverlappingFlashesMerge(t *testing.T) {
	t.Parallel()
	shape := layerFromSource(t, header+
		"%ADD10R,2X2*%\nD10*\nX0Y0D03*\nX100000Y0D03*\nM02*\n")
	// Two 2x2 squares, centers 1mm apart, overlap 1x2.
	if got, want := shape.Area(), 6.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("merged area = %v, want %v", got, want)
	}
}

func TestClearPolaritySubtractsInOrder(t *testing.T) {
	t.Parallel()
	shape := layerFromSource(t, header+
		"%ADD10R,4X4*%\n%ADD11R,2X2*%\nD10*\nX0Y0D03*\n"+
		"%LPC*%\nD11*\nX0Y0D03*\n"+
		"%LPD*%\n%ADD12R,1X1*%\nD12*\nX0Y0D03*\nM02*\n")
	// 16 - 4 carved + 1 redrawn dark afterwards.
	if got, want := shape.Area(), 13.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestLinearStrokeRoundCaps(t *testing.T) {
	t.Parallel()
	shape := layerFromSource(t, header+
		"%ADD10C,1*%\nD10*\nX0Y0D02*\nX1000000Y0D01*\nM02*\n")
	// 10mm line with 1mm round pen: 10x1 plus a full cap circle.
	want := 10 + math.Pi*0.25
	if got := shape.Area(); math.Abs(got-want)/want > 0.01 {
		t.Errorf("stroke area = %v, want about %v", got, want)
	}
}

func TestRectangleStrokeSquareCaps(t *testing.T) {
	t.Parallel()
	shape := layerFromSource(t, header+
		"%ADD10R,1X1*%\nD10*\nX0Y0D02*\nX1000000Y0D01*\nM02*\n")
	// Dragging a 1x1 square 10mm sweeps an 11x1 rectangle.
	if got, want := shape.Area(), 11.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("stroke area = %v, want %v", got, want)
	}
}

func TestRegionFill(t *testing.T) {
	t.Parallel()
	shape := layerFromSource(t, header+
		"G36*\nX0Y0D02*\nX500000D01*\nY500000D01*\nX0D01*\nY0D01*\nG37*\nM02*\n")
	if got, want := shape.Area(), 25.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("region area = %v, want %v", got, want)
	}
}

func TestMultiQuadrantFullCircleArc(t *testing.T) {
	t.Parallel()
	// Start == end in G75 is a full circle of radius 5 drawn with a
	// 1mm pen: an annulus between r=4.5 and r=5.5.
	shape := layerFromSource(t, header+
		"%ADD10C,1*%\nD10*\nG75*\nX500000Y0D02*\nG03X500000Y0I-500000J0D01*\nM02*\n")
	want := math.Pi * (5.5*5.5 - 4.5*4.5)
	if got := shape.Area(); math.Abs(got-want)/want > 0.02 {
		t.Errorf("annulus area = %v, want about %v", got, want)
	}
}

func TestSingleQuadrantArc(t *testing.T) {
	t.Parallel()
	// Quarter arc from (5,0) to (0,5) about the origin, unsigned I/J.
	shape := layerFromSource(t, header+
		"%ADD10C,1*%\nD10*\nG74*\nX500000Y0D02*\nG03X0Y500000I500000J0D01*\nM02*\n")
	// Quarter annulus plus two end caps.
	quarter := math.Pi / 4 * (5.5*5.5 - 4.5*4.5)
	caps := math.Pi * 0.25
	want := quarter + caps
	if got := shape.Area(); math.Abs(got-want)/want > 0.03 {
		t.Errorf("arc stroke area = %v, want about %v", got, want)
	}
}

func TestDrawWithoutApertureFails(t *testing.T) {
	t.Parallel()
	f, err := gerber.Parse("test.gtp", strings.NewReader(header+"X0Y0D02*\nX100000D01*\nM02*\n"))
	if err == nil {
		// The parser already rejects this; if it ever loosens, the
		// assembler must catch it.
		if _, err := Layer(f, testOpts); err == nil {
			t.Fatal("expected error for draw without aperture")
		}
	}
}
