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

// Package record defines the tagged-union scalar value and the
// ordered record type that flows between every source, sink, and
// transform in the ETL engine.
package record

import (
	"fmt"
	"time"
)

// Kind discriminates the scalar value drawn from spec.md's record
// value set {null, boolean, int, float, decimal, string, binary,
// date, datetime, time}.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindString
	KindBinary
	KindDate
	KindDatetime
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindDate:
		return "date"
	case KindDatetime:
		return "datetime"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Decimal is a fixed-point value with an explicit scale, matching
// spec.md's decimal(precision,scale) field type. Unscaled holds the
// value multiplied by 10^Scale.
type Decimal struct {
	Unscaled int64
	Scale    int32
}

// Float returns the decimal as a float64 approximation.
func (d Decimal) Float() float64 {
	if d.Scale == 0 {
		return float64(d.Unscaled)
	}
	scale := 1.0
	for i := int32(0); i < d.Scale; i++ {
		scale *= 10
	}
	return float64(d.Unscaled) / scale
}

func (d Decimal) String() string {
	if d.Scale <= 0 {
		return fmt.Sprintf("%d", d.Unscaled)
	}
	neg := d.Unscaled < 0
	u := d.Unscaled
	if neg {
		u = -u
	}
	s := fmt.Sprintf("%0*d", d.Scale+1, u)
	cut := len(s) - int(d.Scale)
	out := s[:cut] + "." + s[cut:]
	if neg {
		out = "-" + out
	}
	return out
}

// Value is a single scalar value tagged with its Kind. The zero
// Value is KindNull.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Decimal Decimal
	Str     string
	Bin     []byte
	Time    time.Time
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value  { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value  { return Value{Kind: KindInt, Int: i} }
func Uint(u uint64) Value { return Value{Kind: KindUint, Uint: u} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Binary(b []byte) Value { return Value{Kind: KindBinary, Bin: b} }
func Dec(unscaled int64, scale int32) Value {
	return Value{Kind: KindDecimal, Decimal: Decimal{Unscaled: unscaled, Scale: scale}}
}
func Date(t time.Time) Value     { return Value{Kind: KindDate, Time: t} }
func Datetime(t time.Time) Value { return Value{Kind: KindDatetime, Time: t} }
func TimeOfDay(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether v and other carry the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindUint:
		return v.Uint == other.Uint
	case KindFloat:
		return v.Float == other.Float
	case KindDecimal:
		return v.Decimal == other.Decimal
	case KindString:
		return v.Str == other.Str
	case KindBinary:
		return string(v.Bin) == string(other.Bin)
	case KindDate, KindDatetime, KindTime:
		return v.Time.Equal(other.Time)
	default:
		return false
	}
}

// String renders v as text, used for CSV-like serialization and as
// the basis for composite-key hashing in internal/transform.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindDecimal:
		return v.Decimal.String()
	case KindString:
		return v.Str
	case KindBinary:
		return string(v.Bin)
	case KindDate:
		return v.Time.Format("2006-01-02")
	case KindDatetime:
		return v.Time.Format(time.RFC3339)
	case KindTime:
		return v.Time.Format("15:04:05")
	default:
		return ""
	}
}

// Any returns the value unwrapped as an interface{}, useful for
// handing off to codecs that speak a native Go type (encoding/json,
// database/sql, msgpack).
func (v Value) Any() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindUint:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindDecimal:
		return v.Decimal.String()
	case KindString:
		return v.Str
	case KindBinary:
		return v.Bin
	case KindDate, KindDatetime, KindTime:
		return v.Time
	default:
		return nil
	}
}

// FromAny converts a native Go value (as produced by encoding/json,
// database/sql, or msgpack) into a Value, performing the minimal
// widening spec.md §4.5 describes.
func FromAny(a any) Value {
	switch x := a.(type) {
	case nil:
		return Null
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case []byte:
		return Binary(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Uint(uint64(x))
	case uint8:
		return Uint(uint64(x))
	case uint16:
		return Uint(uint64(x))
	case uint32:
		return Uint(uint64(x))
	case uint64:
		return Uint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case time.Time:
		return Datetime(x)
	case Decimal:
		return Value{Kind: KindDecimal, Decimal: x}
	default:
		return String(fmt.Sprint(x))
	}
}
