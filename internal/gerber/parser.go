package gerber

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Parse decodes one Gerber layer. The path is used only for error
// provenance; content comes from r.
func Parse(path string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &parser{
		file: &File{
			Path:      path,
			Unit:      UnitMillimeter,
			Format:    CoordFormat{IntDigits: 3, DecDigits: 5, Zeros: OmitLeading, Absolute: true},
			Apertures: make(map[int]*Aperture),
			Macros:    make(map[string]*Macro),
		},
		interp: InterpLinear,
		dark:   true,
	}
	if err := p.run(lex(string(data))); err != nil {
		return nil, err
	}
	return p.file, nil
}

type parser struct {
	file *File

	cur        geom.Point
	curValid   bool
	aperture   int
	hasAp      bool
	interp     Interpolation
	multiQuad  bool
	inRegion   bool
	regionLine int
	dark       bool
	stopped    bool
}

func (p *parser) errf(line int, format string, args ...any) error {
	return parseErrorf(p.file.Path, line, format, args...)
}

func (p *parser) run(tokens []token) error {
	for _, tok := range tokens {
		if p.stopped {
			break
		}
		var err error
		if tok.extended {
			err = p.extended(tok)
		} else {
			err = p.word(tok)
		}
		if err != nil {
			return err
		}
	}
	if p.inRegion {
		return p.errf(p.regionLine, "unterminated region: G36 without matching G37")
	}
	return nil
}

func (p *parser) extended(tok token) error {
	t := tok.text
	switch {
	case strings.HasPrefix(t, "FS"):
		return p.parseFormat(tok)
	case t == "MOMM":
		p.file.Unit = UnitMillimeter
	case t == "MOIN":
		p.file.Unit = UnitInch
	case strings.HasPrefix(t, "AM"):
		m, err := parseMacro(t, p.file.Path, tok.line)
		if err != nil {
			return err
		}
		p.file.Macros[m.Name] = m
	case strings.HasPrefix(t, "ADD"):
		return p.parseApertureDef(tok)
	case t == "LPD":
		p.emit(Command{Kind: CmdPolarity, Line: tok.line, Dark: true})
		p.dark = true
	case t == "LPC":
		p.emit(Command{Kind: CmdPolarity, Line: tok.line, Dark: false})
		p.dark = false
	default:
		// IP, IN, LN, SR, OF, AS, MI, SF, TF, TA, TO, TD and other
		// header/attribute statements do not affect stencil geometry.
	}
	return nil
}

func (p *parser) parseFormat(tok token) error {
	t := tok.text[2:]
	if len(t) < 1 {
		return p.errf(tok.line, "bad format statement %q", tok.text)
	}
	switch t[0] {
	case 'L':
		p.file.Format.Zeros = OmitLeading
	case 'T':
		p.file.Format.Zeros = OmitTrailing
	default:
		return p.errf(tok.line, "bad zero-omission mode in %q", tok.text)
	}
	t = t[1:]
	if len(t) < 1 {
		return p.errf(tok.line, "bad format statement %q", tok.text)
	}
	switch t[0] {
	case 'A':
		p.file.Format.Absolute = true
	case 'I':
		p.file.Format.Absolute = false
	default:
		return p.errf(tok.line, "bad coordinate mode in %q", tok.text)
	}
	xi := strings.Index(t, "X")
	yi := strings.Index(t, "Y")
	if xi < 0 || yi < 0 || yi < xi+3 || len(t) < yi+3 {
		return p.errf(tok.line, "bad digit spec in %q", tok.text)
	}
	xInt := int(t[xi+1] - '0')
	xDec := int(t[xi+2] - '0')
	yInt := int(t[yi+1] - '0')
	yDec := int(t[yi+2] - '0')
	if xInt != yInt || xDec != yDec {
		// Asymmetric formats are legal but vanishingly rare; take X's.
		yInt, yDec = xInt, xDec
	}
	if xInt < 1 || xInt > 6 || xDec < 3 || xDec > 6 {
		return p.errf(tok.line, "unsupported coordinate digits %d.%d", xInt, xDec)
	}
	p.file.Format = CoordFormat{IntDigits: xInt, DecDigits: xDec, Zeros: p.file.Format.Zeros, Absolute: p.file.Format.Absolute}
	return nil
}

func (p *parser) parseApertureDef(tok token) error {
	t := tok.text[3:] // strip "ADD"
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 {
		return p.errf(tok.line, "bad aperture code in %q", tok.text)
	}
	code, _ := strconv.Atoi(t[:i])
	if code < 10 {
		return p.errf(tok.line, "aperture code %d is reserved", code)
	}
	rest := t[i:]
	name := rest
	var params []float64
	if comma := strings.Index(rest, ","); comma >= 0 {
		name = rest[:comma]
		for _, s := range strings.Split(rest[comma+1:], "X") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return p.errf(tok.line, "bad aperture parameter %q in %q", s, tok.text)
			}
			params = append(params, v)
		}
	}

	scale := p.file.Unit.Scale()
	ap := &Aperture{Code: code}
	switch name {
	case "C":
		if len(params) < 1 || len(params) > 2 {
			return p.errf(tok.line, "circle aperture needs 1-2 parameters, got %d", len(params))
		}
		ap.Kind = ApertureCircle
		ap.Diameter = params[0] * scale
		if len(params) == 2 {
			ap.HoleDiameter = params[1] * scale
		}
	case "R", "O":
		if len(params) < 2 || len(params) > 3 {
			return p.errf(tok.line, "%s aperture needs 2-3 parameters, got %d", name, len(params))
		}
		if name == "R" {
			ap.Kind = ApertureRectangle
		} else {
			ap.Kind = ApertureObround
		}
		ap.XSize = params[0] * scale
		ap.YSize = params[1] * scale
		if len(params) == 3 {
			ap.HoleDiameter = params[2] * scale
		}
	case "P":
		if len(params) < 2 || len(params) > 4 {
			return p.errf(tok.line, "polygon aperture needs 2-4 parameters, got %d", len(params))
		}
		ap.Kind = AperturePolygon
		ap.Diameter = params[0] * scale
		ap.Vertices = int(params[1])
		if ap.Vertices < 3 || ap.Vertices > 12 {
			return p.errf(tok.line, "polygon aperture vertex count %d out of range", ap.Vertices)
		}
		if len(params) >= 3 {
			ap.Rotation = params[2] * math.Pi / 180
		}
		if len(params) == 4 {
			ap.HoleDiameter = params[3] * scale
		}
	default:
		macro, ok := p.file.Macros[name]
		if !ok {
			return p.errf(tok.line, "aperture D%d references undefined macro %q", code, name)
		}
		ap.Kind = ApertureMacro
		ap.Macro = macro
		ap.MacroParams = params
	}
	p.file.Apertures[code] = ap
	return nil
}

func (p *parser) word(tok token) error {
	t := tok.text
	switch {
	case strings.HasPrefix(t, "G04"):
		return nil
	case t == "G36":
		if p.inRegion {
			return p.errf(tok.line, "nested G36 region")
		}
		p.inRegion = true
		p.regionLine = tok.line
		p.emit(Command{Kind: CmdRegionStart, Line: tok.line})
		return nil
	case t == "G37":
		if !p.inRegion {
			return p.errf(tok.line, "G37 without matching G36")
		}
		p.inRegion = false
		p.emit(Command{Kind: CmdRegionEnd, Line: tok.line})
		return nil
	case t == "G74":
		p.multiQuad = false
		return nil
	case t == "G75":
		p.multiQuad = true
		return nil
	case t == "G70":
		p.file.Unit = UnitInch
		return nil
	case t == "G71":
		p.file.Unit = UnitMillimeter
		return nil
	case t == "G90":
		p.file.Format.Absolute = true
		return nil
	case t == "G91":
		p.file.Format.Absolute = false
		return nil
	case t == "M02" || t == "M00":
		p.stopped = true
		return nil
	case t == "M01":
		return nil
	case strings.HasPrefix(t, "G54"):
		t = t[3:] // deprecated select-aperture prefix
	}

	// Modal G codes may prefix a coordinate word: G01X...Y...D01.
	for {
		switch {
		case strings.HasPrefix(t, "G01"):
			t = t[3:]
			p.interp = InterpLinear
			continue
		case strings.HasPrefix(t, "G02"):
			t = t[3:]
			p.interp = InterpClockwise
			continue
		case strings.HasPrefix(t, "G03"):
			t = t[3:]
			p.interp = InterpCounterClockwise
			continue
		}
		break
	}
	if t == "" {
		return nil
	}

	if t[0] == 'D' && len(t) > 1 && !strings.ContainsAny(t, "XYIJ") {
		if code, err := strconv.Atoi(t[1:]); err == nil && code >= 10 {
			return p.selectAperture(t, tok.line)
		}
	}
	// Operation words, including legacy unpadded codes (D1/D2/D3).
	if strings.ContainsAny(t, "XYIJ") || t[0] == 'D' {
		return p.operation(t, tok.line)
	}
	// Unrecognized word: ignore, matching lenient readers. Geometry-
	// affecting statements are all covered above.
	return nil
}

func (p *parser) selectAperture(t string, line int) error {
	code, err := strconv.Atoi(t[1:])
	if err != nil {
		return p.errf(line, "bad aperture select %q", t)
	}
	if _, ok := p.file.Apertures[code]; !ok {
		return p.errf(line, "flash/draw references undefined aperture D%d", code)
	}
	p.aperture = code
	p.hasAp = true
	p.emit(Command{Kind: CmdSelectAperture, Line: line, Aperture: code})
	return nil
}

// operation parses a coordinate word: [X..][Y..][I..][J..][D01|D02|D03].
func (p *parser) operation(t string, line int) error {
	x, y := p.cur.X, p.cur.Y
	var i, j float64
	opcode := 1 // modal default: a bare coordinate word repeats D01
	rest := t
	for len(rest) > 0 {
		letter := rest[0]
		k := 1
		for k < len(rest) && (rest[k] == '+' || rest[k] == '-' || (rest[k] >= '0' && rest[k] <= '9')) {
			k++
		}
		digits := rest[1:k]
		switch letter {
		case 'X', 'Y', 'I', 'J':
			v, err := p.coordValue(digits)
			if err != nil {
				return p.errf(line, "unparsable coordinate %c%s", letter, digits)
			}
			switch letter {
			case 'X':
				if p.file.Format.Absolute {
					x = v
				} else {
					x = p.cur.X + v
				}
			case 'Y':
				if p.file.Format.Absolute {
					y = v
				} else {
					y = p.cur.Y + v
				}
			case 'I':
				i = v
			case 'J':
				j = v
			}
		case 'D':
			n, err := strconv.Atoi(digits)
			if err != nil || n < 1 || n > 3 {
				return p.errf(line, "bad operation code D%s", digits)
			}
			opcode = n
		default:
			return p.errf(line, "unexpected %q in coordinate word %q", string(letter), t)
		}
		rest = rest[k:]
	}

	target := geom.Point{X: x, Y: y}
	switch opcode {
	case 2:
		p.emit(Command{Kind: CmdMove, Line: line, Target: target})
	case 1:
		if !p.inRegion && !p.hasAp {
			return p.errf(line, "draw before any aperture selected")
		}
		p.emit(Command{
			Kind:          CmdDraw,
			Line:          line,
			Aperture:      p.aperture,
			Target:        target,
			CenterOffset:  geom.Point{X: i, Y: j},
			Interp:        p.interp,
			MultiQuadrant: p.multiQuad,
		})
	case 3:
		if p.inRegion {
			return p.errf(line, "flash inside region block")
		}
		if !p.hasAp {
			return p.errf(line, "flash before any aperture selected")
		}
		p.emit(Command{Kind: CmdFlash, Line: line, Aperture: p.aperture, Target: target})
	}
	p.cur = target
	p.curValid = true
	return nil
}

// coordValue converts a raw coordinate field to mm per the format spec.
func (p *parser) coordValue(digits string) (float64, error) {
	if digits == "" {
		return 0, strconv.ErrSyntax
	}
	neg := false
	switch digits[0] {
	case '-':
		neg = true
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}
	if digits == "" {
		return 0, strconv.ErrSyntax
	}
	width := p.file.Format.IntDigits + p.file.Format.DecDigits
	if len(digits) > width {
		return 0, strconv.ErrRange
	}
	if p.file.Format.Zeros == OmitTrailing {
		digits += strings.Repeat("0", width-len(digits))
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	v := float64(n) / math.Pow10(p.file.Format.DecDigits)
	if neg {
		v = -v
	}
	return v * p.file.Unit.Scale(), nil
}

func (p *parser) emit(c Command) {
	p.file.Commands = append(p.file.Commands, c)
}
