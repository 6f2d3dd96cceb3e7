// Package gerber decodes RS-274X vector data into an ordered command
// stream plus an aperture table and resolved coordinate format. Arcs are
// kept as arc commands here; sampling them into segments is the polygon
// assembler's job so arc fidelity stays a caller-controlled setting.
package gerber

import (
	"fmt"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Unit is the coordinate unit declared by the file's MO statement.
type Unit int

const (
	UnitMillimeter Unit = iota + 1
	UnitInch
)

func (u Unit) String() string {
	switch u {
	case UnitMillimeter:
		return "mm"
	case UnitInch:
		return "inch"
	}
	return "unknown"
}

// Scale returns the factor converting file units to millimeters.
func (u Unit) Scale() float64 {
	if u == UnitInch {
		return 25.4
	}
	return 1.0
}

// ZeroMode is the zero-omission convention of the FS statement.
type ZeroMode int

const (
	OmitLeading ZeroMode = iota + 1
	OmitTrailing
)

// CoordFormat is the resolved coordinate format of one file.
type CoordFormat struct {
	IntDigits int
	DecDigits int
	Zeros     ZeroMode
	Absolute  bool
}

// ApertureKind enumerates the standard aperture shapes plus macros.
type ApertureKind int

const (
	ApertureCircle ApertureKind = iota + 1
	ApertureRectangle
	ApertureObround
	AperturePolygon
	ApertureMacro
)

func (k ApertureKind) String() string {
	switch k {
	case ApertureCircle:
		return "circle"
	case ApertureRectangle:
		return "rectangle"
	case ApertureObround:
		return "obround"
	case AperturePolygon:
		return "polygon"
	case ApertureMacro:
		return "macro"
	}
	return "unknown"
}

// Aperture is one entry of the aperture table. Dimensions are mm.
type Aperture struct {
	Code         int
	Kind         ApertureKind
	Diameter     float64 // circle, polygon outer diameter
	XSize        float64 // rectangle / obround
	YSize        float64
	HoleDiameter float64
	Vertices     int     // polygon
	Rotation     float64 // polygon, radians
	Macro        *Macro
	MacroParams  []float64
}

// Interpolation is the draw mode in effect for a D01 operation.
type Interpolation int

const (
	InterpLinear Interpolation = iota + 1
	InterpClockwise
	InterpCounterClockwise
)

// CommandKind discriminates entries of the command stream.
type CommandKind int

const (
	CmdSelectAperture CommandKind = iota + 1
	CmdMove                       // D02
	CmdDraw                       // D01
	CmdFlash                      // D03
	CmdRegionStart                // G36
	CmdRegionEnd                  // G37
	CmdPolarity                   // LPD / LPC
)

// Command is one decoded operation. Coordinates are absolute mm.
// For CmdDraw, Interp and MultiQuadrant record the modal state in effect
// and CenterOffset carries the I/J arc offsets (mm, signed as written).
type Command struct {
	Kind          CommandKind
	Line          int
	Aperture      int
	Target        geom.Point
	CenterOffset  geom.Point
	Interp        Interpolation
	MultiQuadrant bool
	Dark          bool
}

// File is a fully parsed Gerber layer.
type File struct {
	Path      string
	Unit      Unit
	Format    CoordFormat
	Apertures map[int]*Aperture
	Macros    map[string]*Macro
	Commands  []Command
}

// ParseError is a malformed-Gerber condition with file/line provenance.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func parseErrorf(file string, line int, format string, args ...any) *ParseError {
	return &ParseError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}
