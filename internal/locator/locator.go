// Package locator builds the optional board-holding fixture around the
// stencil: a perimeter wall above the stencil plane or a recessed step
// below it, with a clearance gap, an optional open side for board
// removal, and a keepout over the board footprint.
package locator

import (
	"fmt"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Modes and open sides accepted by Params.
const (
	ModeWall = "wall"
	ModeStep = "step"

	SideNone   = "none"
	SideTop    = "top"
	SideBottom = "bottom"
	SideLeft   = "left"
	SideRight  = "right"
)

// Params are the locator settings, all lengths in mm.
type Params struct {
	Mode       string
	Height     float64
	Width      float64
	Clearance  float64
	StepHeight float64
	StepWidth  float64
	OpenSide   string
	OpenWidth  float64
}

// Structure is the synthesized fixture: a 2D footprint extruded over
// [ZMin, ZMax], plus an optional bridge footprint the caller unions into
// the stencil slab so a below-plane step has material to hang from.
type Structure struct {
	Footprint geom.Shape
	ZMin      float64
	ZMax      float64
	Bridge    geom.Shape
	Dropped   int
}

// Build synthesizes the fixture around the board outline. thickness is
// the stencil slab height, used to place the wall on top of the slab.
// A degenerate step falls back to the wall form rather than failing.
func Build(outline geom.Shape, p Params, thickness float64, resolution int) (*Structure, error) {
	if outline.IsEmpty() {
		return nil, fmt.Errorf("locator: empty board outline")
	}
	switch p.Mode {
	case ModeStep:
		if p.StepHeight > 0 && p.StepWidth > 0 {
			if s := buildStep(outline, p, resolution); s != nil {
				return s, nil
			}
		}
		return buildWall(outline, p, thickness, resolution)
	case ModeWall:
		return buildWall(outline, p, thickness, resolution)
	}
	return nil, fmt.Errorf("locator: unknown mode %q", p.Mode)
}

// buildWall rings the outline with a frame sitting on top of the slab.
func buildWall(outline geom.Shape, p Params, thickness float64, resolution int) (*Structure, error) {
	fp, dropped := band(outline, p.Clearance, p.Width, resolution)
	fp = finishFootprint(fp, outline, p, resolution)
	if fp.IsEmpty() {
		return nil, fmt.Errorf("locator: wall footprint collapsed")
	}
	return &Structure{
		Footprint: fp,
		ZMin:      thickness,
		ZMax:      thickness + p.Height,
		Dropped:   dropped,
	}, nil
}

// buildStep recesses a shelf below the stencil plane that the board
// seats into. When clearance is positive the gap between board edge and
// shelf is bridged at slab level so the shelf stays attached.
func buildStep(outline geom.Shape, p Params, resolution int) *Structure {
	fp, dropped := band(outline, p.Clearance, p.StepWidth, resolution)
	fp = finishFootprint(fp, outline, p, resolution)
	if fp.IsEmpty() {
		return nil
	}
	s := &Structure{
		Footprint: fp,
		ZMin:      -p.StepHeight,
		ZMax:      0,
		Dropped:   dropped,
	}
	if p.Clearance > 0 {
		grown := geom.Offset(outline, p.Clearance, resolution)
		s.Dropped += grown.Dropped
		bridge := geom.Difference(grown.Shape, outline)
		bridge = applyOpenSide(bridge, outline, p)
		s.Bridge = bridge
	}
	return s
}

// band is the annulus between the outline grown by `inner` and by
// `inner+width`.
func band(outline geom.Shape, inner, width float64, resolution int) (geom.Shape, int) {
	outer := geom.Offset(outline, inner+width, resolution)
	hole := geom.Offset(outline, inner, resolution)
	return geom.Difference(outer.Shape, hole.Shape), outer.Dropped + hole.Dropped
}

// finishFootprint applies the open-side gap and the board keepout.
func finishFootprint(fp, outline geom.Shape, p Params, resolution int) geom.Shape {
	fp = applyOpenSide(fp, outline, p)
	return geom.Difference(fp, outline)
}

// applyOpenSide removes a span of the structure centered on the chosen
// edge's midpoint so the board can slide in and out.
func applyOpenSide(fp, outline geom.Shape, p Params) geom.Shape {
	if p.OpenSide == "" || p.OpenSide == SideNone || p.OpenWidth <= 0 || fp.IsEmpty() {
		return fp
	}
	b := fp.Bounds()
	ob := outline.Bounds()
	c := ob.Center()
	// Extend well past the structure so the cut always reaches through.
	reach := b.Width() + b.Height()
	half := p.OpenWidth / 2

	var cutter geom.Ring
	switch p.OpenSide {
	case SideTop:
		cutter = boxRing(c.X-half, c.Y, c.X+half, b.MaxY+reach)
	case SideBottom:
		cutter = boxRing(c.X-half, b.MinY-reach, c.X+half, c.Y)
	case SideLeft:
		cutter = boxRing(b.MinX-reach, c.Y-half, c.X, c.Y+half)
	case SideRight:
		cutter = boxRing(c.X, c.Y-half, b.MaxX+reach, c.Y+half)
	default:
		return fp
	}
	return geom.Difference(fp, geom.Shape{cutter})
}

func boxRing(minX, minY, maxX, maxY float64) geom.Ring {
	return geom.Ring{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}
