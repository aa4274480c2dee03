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

// Package schema implements spec.md's component D: shorthand entity
// descriptions, type inference from a sample, and coercion of record
// streams to a declared entity. Grounded on
// original_source/dkit/etl/model.py's Entity (shorthand encode/decode)
// and original_source/dkit/parsers/type_parser.py's TypeParser.
package schema

// FieldType is one of the declared field types recognized by the
// shorthand parser, matching type_parser.py's type_map.
type FieldType string

const (
	TypeBinary   FieldType = "binary"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeDecimal  FieldType = "decimal"
	TypeDouble   FieldType = "double"
	TypeFloat    FieldType = "float"
	TypeInt8     FieldType = "int8"
	TypeInt16    FieldType = "int16"
	TypeInt32    FieldType = "int32"
	TypeInt64    FieldType = "int64"
	TypeInteger  FieldType = "integer"
	TypeString   FieldType = "string"
	TypeTime     FieldType = "time"
)

// validTypes mirrors type_parser.py's type_map keys (case-insensitive
// on input, canonicalized to lowercase).
var validTypes = map[FieldType]bool{
	TypeBinary: true, TypeBoolean: true, TypeDate: true, TypeDateTime: true,
	TypeDecimal: true, TypeDouble: true, TypeFloat: true, TypeInt8: true,
	TypeInt16: true, TypeInt32: true, TypeInt64: true, TypeInteger: true,
	TypeString: true, TypeTime: true,
}
