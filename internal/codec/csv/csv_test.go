package csv

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkcore/dk/internal/codec"
)

func TestCSVSourceHeaderAndRows(t *testing.T) {
	in := "name,age\nalice,30\nbob,40\n"
	src := NewSource(bytes.NewReader([]byte(in)), Config{}, codec.Options{})

	var got []map[string]string
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		row := map[string]string{}
		for _, f := range rec.Fields() {
			row[f.Name] = f.Value.Str
		}
		got = append(got, row)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["name"] != "alice" || got[0]["age"] != "30" {
		t.Fatalf("got %v", got[0])
	}
	if got[1]["name"] != "bob" || got[1]["age"] != "40" {
		t.Fatalf("got %v", got[1])
	}
}

func TestCSVSinkEmptyInputStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, Config{}, codec.Options{FieldNames: []string{"a", "b"}})
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a,b\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestCSVSourceReset(t *testing.T) {
	in := "a\n1\n2\n"
	src := NewSource(bytes.NewReader([]byte(in)), Config{}, codec.Options{})
	first, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Reset(); err != nil {
		t.Fatal(err)
	}
	second, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.MustGet("a").Str != second.MustGet("a").Str {
		t.Fatalf("expected reset to replay the same first record")
	}
}

func TestTSVSourceDefaultSeparator(t *testing.T) {
	in := "name\tage\nalice\t30\n"
	src := NewSource(bytes.NewReader([]byte(in)), Config{TSV: true}, codec.Options{})

	rec, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.MustGet("name").Str != "alice" || rec.MustGet("age").Str != "30" {
		t.Fatalf("got %+v", rec)
	}
}

func TestTSVSourceCustomSeparator(t *testing.T) {
	in := "name|age\nalice|30\n"
	src := NewSource(bytes.NewReader([]byte(in)), Config{TSV: true, Separator: '|'}, codec.Options{})

	rec, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec.MustGet("name").Str != "alice" || rec.MustGet("age").Str != "30" {
		t.Fatalf("got %+v", rec)
	}
}

func TestCSVSourceMissingFieldProjection(t *testing.T) {
	// only one column present in the data, but two field names are
	// requested: the second requested field can never be populated.
	in := "1\n2\n"
	src := NewSource(bytes.NewReader([]byte(in)), Config{}, codec.Options{FieldNames: []string{"a", "c"}})
	_, err := src.Next()
	if err == nil {
		t.Fatal("expected MissingFieldError")
	}
}
