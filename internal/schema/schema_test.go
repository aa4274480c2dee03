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
	"errors"
	"testing"

	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

func TestParseShorthandRoundTrip(t *testing.T) {
	fd, err := ParseShorthand("String(str_len=16, primary_key=true)")
	if err != nil {
		t.Fatal(err)
	}
	if fd.Type != TypeString || fd.StrLen != 16 || !fd.PrimaryKey {
		t.Fatalf("got %+v", fd)
	}
}

func TestParseShorthandUnknownOptionFails(t *testing.T) {
	if _, err := ParseShorthand("String(bogus=1)"); err == nil {
		t.Fatal("expected unknown option to fail parsing")
	}
}

func TestParseShorthandUnknownTypeFails(t *testing.T) {
	if _, err := ParseShorthand("Wat(str_len=1)"); err == nil {
		t.Fatal("expected unknown type to fail parsing")
	}
}

// TestCoerceOnIngest covers spec.md §8 scenario 2: entity
// person = {name: String(str_len=16), age: Integer()}. A record with
// age="30" coerces to {name:"alice", age:30}; a record with age="x"
// raises a ValidationError.
func TestCoerceOnIngest(t *testing.T) {
	e := NewEntity()
	e.Set("name", FieldDescriptor{Type: TypeString, StrLen: 16})
	e.Set("age", FieldDescriptor{Type: TypeInteger})

	good := record.New(
		record.Field{Name: "name", Value: record.String("alice")},
		record.Field{Name: "age", Value: record.String("30")},
	)
	out, err := Coerce("person", e, good)
	if err != nil {
		t.Fatal(err)
	}
	age, _ := out.Get("age")
	if age.Kind != record.KindInt || age.Int != 30 {
		t.Fatalf("expected age=30 int, got %+v", age)
	}

	bad := record.New(
		record.Field{Name: "name", Value: record.String("bob")},
		record.Field{Name: "age", Value: record.String("x")},
	)
	_, err = Coerce("person", e, bad)
	if err == nil {
		t.Fatal("expected ValidationError for non-numeric age")
	}
	var verr *dkerr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *dkerr.ValidationError, got %T", err)
	}
}

func TestCoerceNullableFieldYieldsNullOnFailure(t *testing.T) {
	e := NewEntity()
	e.Set("age", FieldDescriptor{Type: TypeInteger, Nullable: true})
	rec := record.New(record.Field{Name: "age", Value: record.String("x")})

	out, err := Coerce("thing", e, rec)
	if err != nil {
		t.Fatal(err)
	}
	age, _ := out.Get("age")
	if !age.IsNull() {
		t.Fatalf("expected null, got %+v", age)
	}
}

func TestInferPrecedenceStringAbsorbsEverything(t *testing.T) {
	recs := []*record.Record{
		record.New(record.Field{Name: "v", Value: record.String("123")}),
		record.New(record.Field{Name: "v", Value: record.String("abc")}),
	}
	e := Infer(recs, 1, 0, nil)
	fd, _ := e.Get("v")
	if fd.Type != TypeString {
		t.Fatalf("expected string to absorb mixed int/string observations, got %v", fd.Type)
	}
}

func TestInferAllIntegers(t *testing.T) {
	recs := []*record.Record{
		record.New(record.Field{Name: "n", Value: record.String("1")}),
		record.New(record.Field{Name: "n", Value: record.String("2")}),
		record.New(record.Field{Name: "n", Value: record.String("3")}),
	}
	e := Infer(recs, 1, 0, nil)
	fd, _ := e.Get("n")
	if fd.Type != TypeInteger {
		t.Fatalf("expected integer, got %v", fd.Type)
	}
}
