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

package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/dkcore/dk/date"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

// Coerce applies e to rec in place order, parsing each declared
// field's raw value to its declared type. A failure on a non-nullable
// field is a fatal *dkerr.ValidationError; on a nullable field the
// field is set to null instead, per spec.md §4.5's coercion pass.
// entityName is used only to annotate error messages.
func Coerce(entityName string, e *Entity, rec *record.Record) (*record.Record, error) {
	out := record.New()
	for _, name := range e.Names() {
		fd, _ := e.Get(name)
		raw, present := rec.Get(name)
		if !present || raw.IsNull() {
			if fd.Nullable || !present {
				out.Set(name, record.Null)
				continue
			}
			return nil, &dkerr.ValidationError{Entity: entityName, Field: name, Detail: "missing required field"}
		}

		v, err := coerceValue(fd, raw)
		if err != nil {
			if fd.Nullable {
				out.Set(name, record.Null)
				continue
			}
			return nil, &dkerr.ValidationError{Entity: entityName, Field: name, Detail: err.Error()}
		}
		out.Set(name, v)
	}
	return out, nil
}

func coerceValue(fd FieldDescriptor, v record.Value) (record.Value, error) {
	s := strings.TrimSpace(v.String())
	switch fd.Type {
	case TypeString:
		return record.String(s), nil
	case TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "yes":
			return record.Bool(true), nil
		case "false", "no":
			return record.Bool(false), nil
		default:
			return record.Value{}, &dkerr.ValidationError{Detail: "not a boolean: " + s}
		}
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeInteger:
		n, err := strconv.ParseInt(stripThousands(s), 10, 64)
		if err != nil {
			return record.Value{}, &dkerr.ValidationError{Detail: "not an integer: " + s}
		}
		if err := checkWidth(fd.Type, n); err != nil {
			return record.Value{}, err
		}
		return record.Int(n), nil
	case TypeFloat, TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return record.Value{}, &dkerr.ValidationError{Detail: "not a float: " + s}
		}
		return record.Float(f), nil
	case TypeDecimal:
		return coerceDecimal(s, fd.Scale)
	case TypeBinary:
		return record.Binary([]byte(s)), nil
	case TypeDate:
		t, ok := date.Parse([]byte(s))
		if !ok {
			return record.Value{}, &dkerr.ValidationError{Detail: "not a date: " + s}
		}
		return record.Date(t.Time()), nil
	case TypeDateTime:
		t, ok := date.Parse([]byte(s))
		if !ok {
			return record.Value{}, &dkerr.ValidationError{Detail: "not a datetime: " + s}
		}
		return record.Datetime(t.Time()), nil
	case TypeTime:
		t, ok := date.ParseTimeOfDay([]byte(s))
		if !ok {
			return record.Value{}, &dkerr.ValidationError{Detail: "not a time: " + s}
		}
		return record.TimeOfDay(t.Time()), nil
	default:
		return record.Value{}, &dkerr.ValidationError{Detail: "unsupported type: " + string(fd.Type)}
	}
}

func checkWidth(t FieldType, n int64) error {
	var lo, hi int64
	switch t {
	case TypeInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case TypeInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case TypeInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return &dkerr.ValidationError{Detail: "integer out of range for declared width"}
	}
	return nil
}

// coerceDecimal parses s and rounds to scale decimal places, per
// spec.md §4.5's "decimals rounded to scale" rule.
func coerceDecimal(s string, scale int) (record.Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return record.Value{}, &dkerr.ValidationError{Detail: "not a decimal: " + s}
	}
	mul := math.Pow10(scale)
	unscaled := int64(math.Round(f * mul))
	return record.Dec(unscaled, int32(scale)), nil
}
