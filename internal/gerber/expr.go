package gerber

import (
	"errors"
	"strconv"
	"strings"
)

// Macro modifiers are arithmetic expressions over $n parameters with the
// operators + - x / (the Gerber spec spells multiplication 'x'; 'X' also
// appears in the wild). Parsed once at definition time, evaluated per
// aperture instantiation.

type macroExpr interface {
	eval(vars map[int]float64) float64
}

type exprConst float64

func (e exprConst) eval(map[int]float64) float64 { return float64(e) }

type exprVar int

func (e exprVar) eval(vars map[int]float64) float64 { return vars[int(e)] }

type exprBinary struct {
	op   byte
	l, r macroExpr
}

func (e exprBinary) eval(vars map[int]float64) float64 {
	a, b := e.l.eval(vars), e.r.eval(vars)
	switch e.op {
	case '+':
		return a + b
	case '-':
		return a - b
	case 'x':
		return a * b
	case '/':
		if b == 0 {
			return 0
		}
		return a / b
	}
	return 0
}

type exprParser struct {
	s   string
	pos int
}

func parseExpr(s string) (macroExpr, error) {
	p := &exprParser{s: strings.TrimSpace(s)}
	e, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, errors.New("trailing characters in expression")
	}
	return e, nil
}

func (p *exprParser) sum() (macroExpr, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.s) {
		op := p.s[p.pos]
		if op != '+' && op != '-' {
			break
		}
		p.pos++
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = exprBinary{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) product() (macroExpr, error) {
	left, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.s) {
		op := p.s[p.pos]
		if op != 'x' && op != 'X' && op != '/' {
			break
		}
		if op == 'X' {
			op = 'x'
		}
		p.pos++
		right, err := p.atom()
		if err != nil {
			return nil, err
		}
		left = exprBinary{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) atom() (macroExpr, error) {
	if p.pos >= len(p.s) {
		return nil, errors.New("unexpected end of expression")
	}
	switch c := p.s[p.pos]; {
	case c == '(':
		p.pos++
		e, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return nil, errors.New("missing closing parenthesis")
		}
		p.pos++
		return e, nil
	case c == '-':
		p.pos++
		e, err := p.atom()
		if err != nil {
			return nil, err
		}
		return exprBinary{op: '-', l: exprConst(0), r: e}, nil
	case c == '$':
		p.pos++
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
		if p.pos == start {
			return nil, errors.New("bad variable reference")
		}
		n, _ := strconv.Atoi(p.s[start:p.pos])
		return exprVar(n), nil
	default:
		start := p.pos
		for p.pos < len(p.s) {
			c := p.s[p.pos]
			if (c >= '0' && c <= '9') || c == '.' {
				p.pos++
				continue
			}
			break
		}
		if p.pos == start {
			return nil, errors.New("unexpected character " + strconv.Quote(string(p.s[start])))
		}
		v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
		if err != nil {
			return nil, err
		}
		return exprConst(v), nil
	}
}
