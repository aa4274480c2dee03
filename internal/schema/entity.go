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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dkcore/dk/internal/dkerr"
)

// FieldDescriptor is the normalized form of a shorthand field
// description, e.g. "String(str_len=16, primary_key=true)". Field
// names mirror spec.md §4.5's recognized option set.
type FieldDescriptor struct {
	Type          FieldType
	StrLen        int
	PrimaryKey    bool
	Unique        bool
	Index         bool
	Autoincrement bool
	Nullable      bool
	Precision     int
	Scale         int
	Info          string
}

// Entity is an ordered mapping from field name to FieldDescriptor,
// matching spec.md §3's Entity data model. Field order is preserved
// in the order fields were added.
type Entity struct {
	names  []string
	fields map[string]FieldDescriptor
}

// NewEntity returns an empty entity.
func NewEntity() *Entity {
	return &Entity{fields: make(map[string]FieldDescriptor)}
}

// Set adds or replaces a field descriptor, appending to the field
// order if new.
func (e *Entity) Set(name string, fd FieldDescriptor) {
	if _, ok := e.fields[name]; !ok {
		e.names = append(e.names, name)
	}
	e.fields[name] = fd
}

// Get returns the descriptor for name and whether it is present.
func (e *Entity) Get(name string) (FieldDescriptor, bool) {
	fd, ok := e.fields[name]
	return fd, ok
}

// Names returns field names in declaration order.
func (e *Entity) Names() []string { return append([]string(nil), e.names...) }

// PrimaryKeys returns the names of fields marked primary_key, per
// spec.md §3's "at most one field may be marked primary_key unless a
// composite key is declared" invariant — callers are responsible for
// enforcing single-vs-composite key declaration at the model layer.
func (e *Entity) PrimaryKeys() []string {
	var out []string
	for _, n := range e.names {
		if e.fields[n].PrimaryKey {
			out = append(out, n)
		}
	}
	return out
}

// shorthandPattern matches "Type(params)" or bare "Type", e.g.
// "Integer()" or "String(str_len=16, nullable=true)".
var shorthandPattern = regexp.MustCompile(`(?i)^\s*([A-Za-z][A-Za-z0-9]*)\s*(?:\((.*)\))?\s*$`)

// ParseShorthand parses one field description, e.g.
// "String(str_len=16, primary_key=true)", into a FieldDescriptor.
// Grounded on type_parser.py's TypeParser.parse: unknown options fail
// parsing, per spec.md §4.5.
func ParseShorthand(text string) (FieldDescriptor, error) {
	m := shorthandPattern.FindStringSubmatch(text)
	if m == nil {
		return FieldDescriptor{}, &dkerr.ParseError{Input: text, Err: fmt.Errorf("not a valid type shorthand")}
	}
	typeName := FieldType(strings.ToLower(m[1]))
	if !validTypes[typeName] {
		return FieldDescriptor{}, &dkerr.ParseError{Input: text, Err: fmt.Errorf("unrecognized type %q", m[1])}
	}
	fd := FieldDescriptor{Type: typeName}

	params := strings.TrimSpace(m[2])
	if params == "" {
		return fd, nil
	}
	for _, part := range strings.Split(params, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return FieldDescriptor{}, &dkerr.ParseError{Input: text, Err: fmt.Errorf("malformed option %q", part)}
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if err := setOption(&fd, key, val); err != nil {
			return FieldDescriptor{}, &dkerr.ParseError{Input: text, Err: err}
		}
	}
	return fd, nil
}

func setOption(fd *FieldDescriptor, key, val string) error {
	switch key {
	case "str_len":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("str_len: %w", err)
		}
		fd.StrLen = n
	case "precision":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("precision: %w", err)
		}
		fd.Precision = n
	case "scale":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("scale: %w", err)
		}
		fd.Scale = n
	case "primary_key":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("primary_key: %w", err)
		}
		fd.PrimaryKey = b
	case "unique":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("unique: %w", err)
		}
		fd.Unique = b
	case "index":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		fd.Index = b
	case "autoincrement":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("autoincrement: %w", err)
		}
		fd.Autoincrement = b
	case "nullable":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("nullable: %w", err)
		}
		fd.Nullable = b
	case "info":
		fd.Info = val
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected true/false, got %q", s)
	}
}

// Encode renders fd back to shorthand form, e.g. "String(str_len=16)",
// mirroring Entity.encode's round trip.
func Encode(fd FieldDescriptor) string {
	var parts []string
	if fd.StrLen != 0 {
		parts = append(parts, fmt.Sprintf("str_len=%d", fd.StrLen))
	}
	if fd.Precision != 0 {
		parts = append(parts, fmt.Sprintf("precision=%d", fd.Precision))
	}
	if fd.Scale != 0 {
		parts = append(parts, fmt.Sprintf("scale=%d", fd.Scale))
	}
	if fd.PrimaryKey {
		parts = append(parts, "primary_key=true")
	}
	if fd.Unique {
		parts = append(parts, "unique=true")
	}
	if fd.Index {
		parts = append(parts, "index=true")
	}
	if fd.Autoincrement {
		parts = append(parts, "autoincrement=true")
	}
	if fd.Nullable {
		parts = append(parts, "nullable=true")
	}
	if fd.Info != "" {
		parts = append(parts, fmt.Sprintf("info=%s", fd.Info))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s(%s)", capitalize(string(fd.Type)), strings.Join(parts, ", "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FromShorthandMap builds an Entity from a name->shorthand mapping, as
// stored by internal/model.Entity. Field order is the sorted name
// order, since a Go map carries no insertion order of its own.
func FromShorthandMap(shorthand map[string]string) (*Entity, error) {
	names := make([]string, 0, len(shorthand))
	for n := range shorthand {
		names = append(names, n)
	}
	sort.Strings(names)

	e := NewEntity()
	for _, n := range names {
		fd, err := ParseShorthand(shorthand[n])
		if err != nil {
			return nil, err
		}
		e.Set(n, fd)
	}
	return e, nil
}
