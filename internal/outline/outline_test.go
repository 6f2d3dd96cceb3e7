package outline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/gerber"
)

const header = "%FSLAX25Y25*%\n%MOMM*%\n%ADD10C,0.1*%\nD10*\n"

func parseOutline(t *testing.T, body string) *gerber.File {
	t.Helper()
	f, err := gerber.Parse("edge.gko", strings.NewReader(header+body+"M02*\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestFromFileClosedSquare(t *testing.T) {
	t.Parallel()
	f := parseOutline(t, "X0Y0D02*\nX1000000D01*\nY1000000D01*\nX0D01*\nY0D01*\n")
	shape, err := FromFile(f, 32, 16)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if got, want := shape.Area(), 100.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("area = %v, want %v", got, want)
	}
	if len(shape) != 1 || shape[0].SignedArea() <= 0 {
		t.Errorf("expected a single counter-clockwise ring")
	}
}

func TestFromFileBridgesSmallGap(t *testing.T) {
	t.Parallel()
	// The closing segment stops 0.03mm short of the start point.
	f := parseOutline(t, "X0Y0D02*\nX1000000D01*\nY1000000D01*\nX0D01*\nY3000D01*\n")
	shape, err := FromFile(f, 32, 16)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if got, want := shape.Area(), 100.0; math.Abs(got-want)/want > 0.01 {
		t.Errorf("area = %v, want about %v", got, want)
	}
}

func TestFromFileOutOfOrderSegments(t *testing.T) {
	t.Parallel()
	// Four edges drawn as independent strokes, not tip to tail.
	f := parseOutline(t, strings.Join([]string{
		"X0Y1000000D02*", "X0Y0D01*",
		"X1000000Y0D02*", "X1000000Y1000000D01*",
		"X0Y0D02*", "X1000000Y0D01*",
		"X1000000Y1000000D02*", "X0Y1000000D01*",
	}, "\n")+"\n")
	shape, err := FromFile(f, 32, 16)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if got, want := shape.Area(), 100.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestFromFileEmptyLayer(t *testing.T) {
	t.Parallel()
	f := parseOutline(t, "")
	if _, err := FromFile(f, 32, 16); !errors.Is(err, ErrNoOutline) {
		t.Errorf("err = %v, want ErrNoOutline", err)
	}
}

func TestFallbackRectangle(t *testing.T) {
	t.Parallel()
	paste := geom.Shape{geom.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 20}, {X: 0, Y: 20}}}
	shape, err := Fallback(paste, 5)
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	b := shape.Bounds()
	if b.MinX != -5 || b.MinY != -5 || b.MaxX != 15 || b.MaxY != 25 {
		t.Errorf("bounds = %+v, want (-5,-5)-(15,25)", b)
	}
	if got, want := shape.Area(), 20.0*30.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestFallbackEmptyPaste(t *testing.T) {
	t.Parallel()
	if _, err := Fallback(nil, 5); !errors.Is(err, ErrNoOutline) {
		t.Errorf("err = %v, want ErrNoOutline", err)
	}
}
