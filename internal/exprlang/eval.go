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
	"regexp"
	"strings"

	"github.com/dkcore/dk/internal/record"
)

func toFloat(v record.Value) float64 {
	switch v.Kind {
	case record.KindInt:
		return float64(v.Int)
	case record.KindUint:
		return float64(v.Uint)
	case record.KindFloat:
		return v.Float
	case record.KindDecimal:
		return v.Decimal.Float()
	case record.KindBool:
		if v.Bool {
			return 1
		}
		return 0
	}
	return 0
}

func toBool(v record.Value) bool {
	switch v.Kind {
	case record.KindBool:
		return v.Bool
	case record.KindNull:
		return false
	case record.KindString:
		return v.Str != ""
	}
	return toFloat(v) != 0
}

func isStringLike(v record.Value) bool {
	return v.Kind == record.KindString
}

func evalArith(op string, l, r record.Value) (record.Value, error) {
	if op == "+" && isStringLike(l) && isStringLike(r) {
		return record.String(l.Str + r.Str), nil
	}
	lf, rf := toFloat(l), toFloat(r)
	switch op {
	case "+":
		return record.Float(lf + rf), nil
	case "-":
		return record.Float(lf - rf), nil
	case "*":
		return record.Float(lf * rf), nil
	case "/":
		if rf == 0 {
			return record.Null, &EvalError{Op: op, Detail: "division by zero"}
		}
		return record.Float(lf / rf), nil
	case "%":
		if rf == 0 {
			return record.Null, &EvalError{Op: op, Detail: "modulo by zero"}
		}
		return record.Float(float64(int64(lf) % int64(rf))), nil
	}
	return record.Null, &EvalError{Op: op, Detail: "unknown arithmetic operator"}
}

func evalCompare(op string, l, r record.Value) (record.Value, error) {
	if isStringLike(l) && isStringLike(r) {
		return record.Bool(compareOrdered(strings.Compare(l.Str, r.Str), op)), nil
	}
	lf, rf := toFloat(l), toFloat(r)
	var cmp int
	switch {
	case lf < rf:
		cmp = -1
	case lf > rf:
		cmp = 1
	}
	return record.Bool(compareOrdered(cmp, op)), nil
}

func compareOrdered(cmp int, op string) bool {
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func evalRegex(op string, l, r record.Value) (record.Value, error) {
	pattern := r.String()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return record.Null, &EvalError{Op: op, Detail: "invalid regular expression: " + err.Error()}
	}
	matched := re.MatchString(l.String())
	if op == "!~" {
		matched = !matched
	}
	return record.Bool(matched), nil
}
