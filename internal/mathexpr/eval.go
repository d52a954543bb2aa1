// Package mathexpr evaluates the decoded text of arithmetic captchas.
//
// Only the grammar
//
//	expr   = number { ("+" | "-") number }
//	number = "0" { "0" } | nonzero { digit }
//
// is accepted, evaluated left to right with arbitrary-precision integers.
// Whitespace is ignored. A leading sign or two operators in a row is malformed,
// and so is a multi-digit number with a leading zero such as "07".
package mathexpr

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

var errEmpty = errors.New("empty expression")

// Evaluate returns the value of expr as a decimal string, or expr itself when
// it is not a well-formed expression. It never fails.
func Evaluate(expr string) string {
	v, err := Parse(expr)
	if err != nil {
		return expr
	}
	return v.String()
}

// Parse evaluates expr and reports why it was rejected.
func Parse(expr string) (*big.Int, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expr)
	if clean == "" {
		return nil, errEmpty
	}
	for i, r := range clean {
		if !isDigit(r) && r != '+' && r != '-' {
			return nil, fmt.Errorf("character %q at %d not allowed", r, i)
		}
	}

	p := parser{src: clean}
	total, err := p.number()
	if err != nil {
		return nil, err
	}
	for !p.done() {
		op := p.src[p.pos]
		p.pos++
		operand, err := p.number()
		if err != nil {
			return nil, err
		}
		if op == '+' {
			total.Add(total, operand)
		} else {
			total.Sub(total, operand)
		}
	}
	return total, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) number() (*big.Int, error) {
	start := p.pos
	for !p.done() && isDigit(rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		if p.done() {
			return nil, fmt.Errorf("expected number at end of expression")
		}
		return nil, fmt.Errorf("expected number at %d, found %q", p.pos, p.src[p.pos])
	}
	lit := p.src[start:p.pos]
	if len(lit) > 1 && lit[0] == '0' && strings.Trim(lit, "0") != "" {
		return nil, fmt.Errorf("leading zero in number %q", lit)
	}
	n, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", lit)
	}
	return n, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
