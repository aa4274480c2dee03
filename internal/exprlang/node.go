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

import "github.com/dkcore/dk/internal/record"

// Env resolves identifiers to values during Eval, implemented by
// *record.Record for Transform evaluation.
type Env interface {
	Get(name string) (record.Value, bool)
}

// Node is one node of a parsed expression tree.
type Node interface {
	Eval(env Env) (record.Value, error)
}

// Literal is a constant number, string, or boolean.
type Literal struct {
	Value record.Value
}

func (n *Literal) Eval(Env) (record.Value, error) { return n.Value, nil }

// Ident references a field on the evaluation environment.
type Ident struct {
	Name string
}

func (n *Ident) Eval(env Env) (record.Value, error) {
	v, ok := env.Get(n.Name)
	if !ok {
		return record.Null, nil
	}
	return v, nil
}

// Unary is a prefix operator: -x or !x.
type Unary struct {
	Op   string
	Expr Node
}

func (n *Unary) Eval(env Env) (record.Value, error) {
	v, err := n.Expr.Eval(env)
	if err != nil {
		return record.Null, err
	}
	switch n.Op {
	case "-":
		return record.Float(-toFloat(v)), nil
	case "!":
		return record.Bool(!toBool(v)), nil
	}
	return record.Null, &EvalError{Op: n.Op, Detail: "unknown unary operator"}
}

// Binary is an infix operator: arithmetic, comparison, boolean
// connective, or regex match.
type Binary struct {
	Op          string
	Left, Right Node
}

func (n *Binary) Eval(env Env) (record.Value, error) {
	switch n.Op {
	case "&&", "||":
		return n.evalBoolConnective(env)
	}

	l, err := n.Left.Eval(env)
	if err != nil {
		return record.Null, err
	}
	r, err := n.Right.Eval(env)
	if err != nil {
		return record.Null, err
	}

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return evalArith(n.Op, l, r)
	case "==", "!=", "<", "<=", ">", ">=":
		return evalCompare(n.Op, l, r)
	case "=~", "!~":
		return evalRegex(n.Op, l, r)
	}
	return record.Null, &EvalError{Op: n.Op, Detail: "unknown binary operator"}
}

func (n *Binary) evalBoolConnective(env Env) (record.Value, error) {
	l, err := n.Left.Eval(env)
	if err != nil {
		return record.Null, err
	}
	lb := toBool(l)
	// short-circuit, same as the original formula language's and/or.
	if n.Op == "&&" && !lb {
		return record.Bool(false), nil
	}
	if n.Op == "||" && lb {
		return record.Bool(true), nil
	}
	r, err := n.Right.Eval(env)
	if err != nil {
		return record.Null, err
	}
	return record.Bool(toBool(r)), nil
}

// Conditional is the ternary form `cond ? then : else`.
type Conditional struct {
	Cond, Then, Else Node
}

func (n *Conditional) Eval(env Env) (record.Value, error) {
	c, err := n.Cond.Eval(env)
	if err != nil {
		return record.Null, err
	}
	if toBool(c) {
		return n.Then.Eval(env)
	}
	return n.Else.Eval(env)
}

// EvalError reports a failure evaluating one operator application.
type EvalError struct {
	Op     string
	Detail string
}

func (e *EvalError) Error() string {
	return "exprlang: operator " + e.Op + ": " + e.Detail
}
