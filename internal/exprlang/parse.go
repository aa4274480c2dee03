// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package exprlang

import (
	"fmt"
	"strconv"

	"github.com/dkcore/dk/internal/record"
)

// precedence gives each binary operator its binding power; higher
// binds tighter. Unlisted operators are not binary infix operators.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3, "=~": 3, "!~": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

// parser is a standard precedence-climbing recursive descent parser
// (the same shape as go/parser's expression parsing), reading from a
// flat token slice produced by lex.
type parser struct {
	toks []token
	pos  int
}

// Parse compiles src into an evaluable expression tree.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("exprlang: unexpected token %q at position %d", p.peek().text, p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// parseExpr parses a ternary conditional over a precedence-climbed
// binary expression: `cond ? then : else`, where cond itself may be
// any binary/unary expression.
func (p *parser) parseExpr(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op.kind != tokOp {
			break
		}
		prec, ok := precedence[op.text]
		if !ok || prec < minPrec {
			break
		}
		p.next()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.text, Left: left, Right: right}
	}
	if p.peek().kind == tokQuestion && minPrec == 0 {
		p.next()
		then, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokColon {
			return nil, fmt.Errorf("exprlang: expected ':' in conditional at position %d", p.peek().pos)
		}
		p.next()
		els, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		left = &Conditional{Cond: left, Then: then, Else: els}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "!") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.text, Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("exprlang: invalid number %q at position %d", t.text, t.pos)
		}
		return &Literal{Value: record.Float(f)}, nil
	case tokString:
		return &Literal{Value: record.String(t.text)}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return &Literal{Value: record.Bool(true)}, nil
		case "false":
			return &Literal{Value: record.Bool(false)}, nil
		case "null":
			return &Literal{Value: record.Null}, nil
		}
		return &Ident{Name: t.text}, nil
	case tokLParen:
		n, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("exprlang: expected ')' at position %d", p.peek().pos)
		}
		p.next()
		return n, nil
	}
	return nil, fmt.Errorf("exprlang: unexpected token %q at position %d", t.text, t.pos)
}
