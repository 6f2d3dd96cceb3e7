// Package assemble converts a decoded Gerber command stream into the
// layer's filled area. Polarity is applied as an explicit left-fold of
// boolean operations over the ordered stream: dark primitives union into
// the accumulator, clear primitives subtract from it, so later polarity
// changes affect only subsequently drawn geometry.
package assemble

import (
	"fmt"
	"math"

	"github.com/forgeworks/stencilforge/internal/geom"
	"github.com/forgeworks/stencilforge/internal/gerber"
)

// Options control curve fidelity: ArcSteps segments per sampled draw
// arc, CurveResolution segments per quarter turn for round aperture
// geometry and stroke caps.
type Options struct {
	ArcSteps        int
	CurveResolution int
}

type assembler struct {
	file *gerber.File
	opts Options

	acc      geom.Shape
	dark     bool
	cur      geom.Point
	aperture *gerber.Aperture

	inRegion   bool
	regionRing geom.Ring
	regionAcc  geom.Shape
}

// Layer folds the file's command stream into its filled area in mm.
func Layer(f *gerber.File, opts Options) (geom.Shape, error) {
	if opts.ArcSteps < 8 {
		opts.ArcSteps = 8
	}
	if opts.CurveResolution < 4 {
		opts.CurveResolution = 4
	}
	a := &assembler{file: f, opts: opts, dark: true}
	for _, cmd := range f.Commands {
		if err := a.apply(cmd); err != nil {
			return nil, err
		}
	}
	return a.acc, nil
}

func (a *assembler) apply(cmd gerber.Command) error {
	switch cmd.Kind {
	case gerber.CmdSelectAperture:
		ap, ok := a.file.Apertures[cmd.Aperture]
		if !ok {
			return &gerber.ParseError{File: a.file.Path, Line: cmd.Line, Msg: fmt.Sprintf("undefined aperture D%d", cmd.Aperture)}
		}
		a.aperture = ap
	case gerber.CmdPolarity:
		a.dark = cmd.Dark
	case gerber.CmdMove:
		if a.inRegion {
			a.closeRegionRing()
		}
		a.cur = cmd.Target
	case gerber.CmdRegionStart:
		a.inRegion = true
		a.regionRing = nil
		a.regionAcc = nil
	case gerber.CmdRegionEnd:
		a.closeRegionRing()
		a.inRegion = false
		a.composite(a.regionAcc)
		a.regionAcc = nil
	case gerber.CmdDraw:
		if a.inRegion {
			return a.regionDraw(cmd)
		}
		return a.strokeDraw(cmd)
	case gerber.CmdFlash:
		shape, err := a.flashShape(cmd)
		if err != nil {
			return err
		}
		a.composite(shape)
		a.cur = cmd.Target
	}
	return nil
}

// composite applies one primitive to the polarity accumulator.
func (a *assembler) composite(shape geom.Shape) {
	if shape.IsEmpty() {
		return
	}
	if a.dark {
		a.acc = geom.Union(a.acc, shape)
	} else {
		a.acc = geom.Difference(a.acc, shape)
	}
}

func (a *assembler) closeRegionRing() {
	if len(a.regionRing) >= 3 {
		a.regionAcc = geom.Union(a.regionAcc, geom.Shape{a.regionRing})
	}
	a.regionRing = nil
}

func (a *assembler) regionDraw(cmd gerber.Command) error {
	if len(a.regionRing) == 0 {
		a.regionRing = append(a.regionRing, a.cur)
	}
	if cmd.Interp == gerber.InterpLinear {
		a.regionRing = append(a.regionRing, cmd.Target)
	} else {
		pts, err := a.arcPoints(cmd)
		if err != nil {
			return err
		}
		a.regionRing = append(a.regionRing, pts[1:]...)
	}
	a.cur = cmd.Target
	return nil
}

func (a *assembler) strokeDraw(cmd gerber.Command) error {
	ap := a.aperture
	if ap == nil {
		return &gerber.ParseError{File: a.file.Path, Line: cmd.Line, Msg: "draw with no aperture selected"}
	}
	var shape geom.Shape
	if cmd.Interp == gerber.InterpLinear {
		switch ap.Kind {
		case gerber.ApertureRectangle:
			shape = geom.RectStroke(a.cur, cmd.Target, ap.XSize, ap.YSize)
		default:
			shape = geom.StrokeSegment(a.cur, cmd.Target, a.penDiameter(ap), a.opts.CurveResolution)
		}
	} else {
		pts, err := a.arcPoints(cmd)
		if err != nil {
			return err
		}
		shape = geom.StrokePath(pts, a.penDiameter(ap), a.opts.CurveResolution)
	}
	a.composite(shape)
	a.cur = cmd.Target
	return nil
}

// penDiameter maps a non-rectangular aperture to a round pen width for
// stroked draws.
func (a *assembler) penDiameter(ap *gerber.Aperture) float64 {
	switch ap.Kind {
	case gerber.ApertureCircle:
		return ap.Diameter
	case gerber.AperturePolygon, gerber.ApertureMacro:
		return ap.Diameter
	default:
		return math.Max(ap.XSize, ap.YSize)
	}
}

// arcPoints resolves the arc center and samples the arc into ArcSteps
// segments. In multi-quadrant mode I/J are signed center offsets and a
// zero sweep is a full circle; in single-quadrant mode I/J carry
// magnitudes only and the sweep is at most a quarter turn, so the center
// is the sign candidate that keeps both endpoints on radius.
func (a *assembler) arcPoints(cmd gerber.Command) ([]geom.Point, error) {
	start, end := a.cur, cmd.Target
	cw := cmd.Interp == gerber.InterpClockwise

	var center geom.Point
	if cmd.MultiQuadrant {
		center = geom.Point{X: start.X + cmd.CenterOffset.X, Y: start.Y + cmd.CenterOffset.Y}
	} else {
		c, ok := singleQuadrantCenter(start, end, cmd.CenterOffset, cw)
		if !ok {
			return nil, &gerber.ParseError{File: a.file.Path, Line: cmd.Line, Msg: "no valid arc center for single-quadrant arc"}
		}
		center = c
	}

	radius := start.Dist(center)
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
	if !cmd.MultiQuadrant && start == end {
		return []geom.Point{start, end}, nil
	}
	a1 = geom.NormalizeSweep(a0, a1, cw)
	return geom.SampleArc(center, radius, a0, a1, a.opts.ArcSteps), nil
}

// singleQuadrantCenter tries the four sign combinations of the I/J
// magnitudes and returns the candidate whose radii agree and whose sweep
// in the requested direction stays within a quarter turn.
func singleQuadrantCenter(start, end, offset geom.Point, cw bool) (geom.Point, bool) {
	const radiusTol = 1e-4
	bestErr := math.Inf(1)
	var best geom.Point
	found := false
	for _, sx := range []float64{1, -1} {
		for _, sy := range []float64{1, -1} {
			c := geom.Point{X: start.X + sx*math.Abs(offset.X), Y: start.Y + sy*math.Abs(offset.Y)}
			r1 := start.Dist(c)
			r2 := end.Dist(c)
			if r1 == 0 {
				continue
			}
			dr := math.Abs(r1 - r2)
			if dr > radiusTol*math.Max(1, r1) {
				continue
			}
			a0 := math.Atan2(start.Y-c.Y, start.X-c.X)
			a1 := geom.NormalizeSweep(a0, math.Atan2(end.Y-c.Y, end.X-c.X), cw)
			sweep := math.Abs(a1 - a0)
			if sweep > math.Pi/2+1e-6 {
				continue
			}
			if dr < bestErr {
				bestErr = dr
				best = c
				found = true
			}
		}
	}
	return best, found
}

// flashShape instantiates the selected aperture at the flash target.
func (a *assembler) flashShape(cmd gerber.Command) (geom.Shape, error) {
	ap, ok := a.file.Apertures[cmd.Aperture]
	if !ok {
		return nil, &gerber.ParseError{File: a.file.Path, Line: cmd.Line, Msg: fmt.Sprintf("flash references undefined aperture D%d", cmd.Aperture)}
	}
	at := cmd.Target
	res := a.opts.CurveResolution
	var shape geom.Shape
	switch ap.Kind {
	case gerber.ApertureCircle:
		shape = geom.Circle(at, ap.Diameter/2, res)
	case gerber.ApertureRectangle:
		shape = geom.Shape{geom.RectRing(at, ap.XSize, ap.YSize)}
	case gerber.ApertureObround:
		shape = geom.Shape{geom.ObroundRing(at, ap.XSize, ap.YSize, res)}
	case gerber.AperturePolygon:
		shape = geom.Shape{geom.RegularPolygonRing(at, ap.Diameter, ap.Vertices, ap.Rotation)}
	case gerber.ApertureMacro:
		evaluated, err := ap.Macro.Evaluate(ap.MacroParams, a.file.Unit.Scale(), res)
		if err != nil {
			if pe, ok := err.(*gerber.ParseError); ok {
				pe.File = a.file.Path
				pe.Line = cmd.Line
			}
			return nil, err
		}
		shape = evaluated.Translate(at.X, at.Y)
	default:
		return nil, &gerber.ParseError{File: a.file.Path, Line: cmd.Line, Msg: fmt.Sprintf("flash of unsupported aperture kind %v", ap.Kind)}
	}
	if ap.HoleDiameter > 0 {
		shape = geom.Difference(shape, geom.Circle(at, ap.HoleDiameter/2, res))
	}
	return shape, nil
}
