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

package sqlcodec

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/record"
	"github.com/dkcore/dk/internal/uri"
)

func testEndpoint(t *testing.T) uri.Endpoint {
	t.Helper()
	return uri.Endpoint{
		Dialect:  "sqlite",
		Driver:   "file",
		Database: filepath.Join(t.TempDir(), "test.db"),
		Entity:   "people",
	}
}

func TestSinkThenSourceRoundTrip(t *testing.T) {
	ep := testEndpoint(t)

	db, _, err := Open(ep)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE people (name TEXT, age INTEGER)"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	sink, err := NewSink(ep, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
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

	src, err := NewSource(ep, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var got []map[string]any
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		row := map[string]any{}
		for _, f := range rec.Fields() {
			row[f.Name] = f.Value.Any()
		}
		got = append(got, row)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d (%v)", len(got), got)
	}
	if got[0]["name"] != "alice" || got[1]["name"] != "bob" {
		t.Fatalf("unexpected rows: %v", got)
	}
}

func TestSourceResetUnsupported(t *testing.T) {
	ep := testEndpoint(t)
	db, _, err := Open(ep)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE people (name TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	src, err := NewSource(ep, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if err := src.Reset(); err == nil {
		t.Fatal("expected Reset to be unsupported for a SQL source")
	}
}

func TestGoquDialectUnknownDriver(t *testing.T) {
	_, _, err := goquDialect(uri.Endpoint{Dialect: "sql", Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}
