package gerber

import (
	"math"
	"strconv"
	"strings"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Macro is an aperture macro definition: a named list of primitives
// whose modifiers are arithmetic expressions over the $n parameters
// supplied at aperture-definition time.
type Macro struct {
	Name       string
	Primitives []macroPrimitive
}

type macroPrimitive struct {
	code int
	mods []macroExpr
	// variable assignment ($n=expr) entries use code -1
	varIndex int
}

// parseMacro decodes an %AM...% block. The first '*'-separated field is
// the macro name; the rest are primitives, variable definitions, or
// comments.
func parseMacro(block, file string, line int) (*Macro, error) {
	parts := strings.Split(block, "*")
	name := strings.TrimSpace(strings.TrimPrefix(parts[0], "AM"))
	if name == "" {
		return nil, parseErrorf(file, line, "aperture macro missing name")
	}
	m := &Macro{Name: name}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "0 ") || part == "0" {
			continue // comment primitive
		}
		if strings.HasPrefix(part, "$") {
			eq := strings.Index(part, "=")
			if eq < 0 {
				return nil, parseErrorf(file, line, "bad macro variable definition %q", part)
			}
			idx, err := strconv.Atoi(part[1:eq])
			if err != nil || idx < 1 {
				return nil, parseErrorf(file, line, "bad macro variable name %q", part[:eq])
			}
			expr, err := parseExpr(part[eq+1:])
			if err != nil {
				return nil, parseErrorf(file, line, "bad macro expression %q: %v", part[eq+1:], err)
			}
			m.Primitives = append(m.Primitives, macroPrimitive{code: -1, varIndex: idx, mods: []macroExpr{expr}})
			continue
		}
		fields := strings.Split(part, ",")
		code, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, parseErrorf(file, line, "bad macro primitive code %q", fields[0])
		}
		prim := macroPrimitive{code: code}
		for _, f := range fields[1:] {
			expr, err := parseExpr(strings.TrimSpace(f))
			if err != nil {
				return nil, parseErrorf(file, line, "bad macro modifier %q: %v", f, err)
			}
			prim.mods = append(prim.mods, expr)
		}
		m.Primitives = append(m.Primitives, prim)
	}
	return m, nil
}

// Evaluate instantiates the macro with the given parameters, producing a
// shape centered on the macro origin. scale converts file units to mm;
// resolution controls circular approximation.
func (m *Macro) Evaluate(params []float64, scale float64, resolution int) (geom.Shape, error) {
	vars := make(map[int]float64, len(params))
	for i, v := range params {
		vars[i+1] = v
	}
	var acc geom.Shape
	for _, prim := range m.Primitives {
		if prim.code == -1 {
			vars[prim.varIndex] = prim.mods[0].eval(vars)
			continue
		}
		mods := make([]float64, len(prim.mods))
		for i, e := range prim.mods {
			mods[i] = e.eval(vars)
		}
		shape, exposure, err := evalPrimitive(prim.code, mods, resolution)
		if err != nil {
			return nil, err
		}
		if shape == nil {
			continue
		}
		if exposure {
			acc = geom.Union(acc, shape)
		} else {
			acc = geom.Difference(acc, shape)
		}
	}
	if scale != 1.0 {
		acc = acc.Scale(scale)
	}
	return acc, nil
}

func evalPrimitive(code int, mods []float64, res int) (geom.Shape, bool, error) {
	mod := func(i int) float64 {
		if i < len(mods) {
			return mods[i]
		}
		return 0
	}
	deg := func(i int) float64 { return mod(i) * math.Pi / 180 }
	exposure := mod(0) != 0
	origin := geom.Point{}

	switch code {
	case 1: // circle: exposure, diameter, cx, cy [, rotation]
		s := geom.Circle(geom.Point{X: mod(2), Y: mod(3)}, mod(1)/2, res)
		if len(mods) > 4 {
			s = s.Rotate(deg(4), origin)
		}
		return s, exposure, nil
	case 20: // vector line: exposure, width, sx, sy, ex, ey, rotation
		a := geom.Point{X: mod(2), Y: mod(3)}
		b := geom.Point{X: mod(4), Y: mod(5)}
		s := vectorLine(a, b, mod(1))
		return s.Rotate(deg(6), origin), exposure, nil
	case 21: // center line: exposure, width, height, cx, cy, rotation
		s := geom.Shape{geom.RectRing(geom.Point{X: mod(3), Y: mod(4)}, mod(1), mod(2))}
		return s.Rotate(deg(5), origin), exposure, nil
	case 4: // outline: exposure, #points, x0, y0, ..., rotation
		n := int(mod(1))
		if n < 3 || len(mods) < 2+2*(n+1) {
			return nil, false, &ParseError{Msg: "outline primitive has too few points"}
		}
		ring := make(geom.Ring, 0, n+1)
		for i := 0; i <= n; i++ {
			ring = append(ring, geom.Point{X: mod(2 + 2*i), Y: mod(3 + 2*i)})
		}
		// The final point repeats the start; rings keep it implicit.
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		s := geom.Shape{ring}
		return s.Rotate(deg(2+2*(n+1)), origin), exposure, nil
	case 5: // polygon: exposure, #vertices, cx, cy, diameter, rotation
		s := geom.Shape{geom.RegularPolygonRing(geom.Point{X: mod(2), Y: mod(3)}, mod(4), int(mod(1)), 0)}
		return s.Rotate(deg(5), origin), exposure, nil
	case 7: // thermal: cx, cy, outer, inner, gap, rotation
		center := geom.Point{X: mod(0), Y: mod(1)}
		outer := geom.Circle(center, mod(2)/2, res)
		inner := geom.Circle(center, mod(3)/2, res)
		ring := geom.Difference(outer, inner)
		gap := mod(4)
		big := mod(2)
		cross := geom.Union(
			geom.Shape{geom.RectRing(center, big*2, gap)},
			geom.Shape{geom.RectRing(center, gap, big*2)},
		)
		s := geom.Difference(ring, cross).Rotate(deg(5), origin)
		return s, true, nil
	case 6: // moire has no paste-relevant exposure semantics; skip it.
		return nil, true, nil
	}
	return nil, false, &ParseError{Msg: "unsupported macro primitive code " + strconv.Itoa(code)}
}

// vectorLine is a square-ended thick line segment.
func vectorLine(a, b geom.Point, width float64) geom.Shape {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return nil
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	return geom.Shape{geom.Ring{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}}
}
