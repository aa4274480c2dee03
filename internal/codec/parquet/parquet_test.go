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

package parquet

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/record"
)

func TestSinkThenSourceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{FieldNames: []string{"name", "age"}})

	rows := []*record.Record{
		record.New(record.Field{Name: "name", Value: record.String("alice")}, record.Field{Name: "age", Value: record.Int(30)}),
		record.New(record.Field{Name: "name", Value: record.String("bob")}, record.Field{Name: "age", Value: record.Int(40)}),
	}
	for _, rec := range rows {
		if err := sink.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	src, err := NewSource(bytes.NewReader(buf.Bytes()), codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var names []string
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		v, ok := rec.Get("name")
		if !ok {
			t.Fatalf("expected a name field, got %v", rec.Names())
		}
		names = append(names, v.Str)
	}
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Fatalf("unexpected round-trip: %v", names)
	}
}
