package jsonl

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkcore/dk/internal/codec"
)

func TestJSONLRoundTrip(t *testing.T) {
	in := "{\"name\":\"alice\",\"age\":30}\n{\"name\":\"bob\",\"age\":40}\n"
	src := NewSource(bytes.NewReader([]byte(in)), codec.Options{})

	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{})
	count := 0
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		count++
		if err := sink.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
	want := "{\"name\":\"alice\",\"age\":30}\n{\"name\":\"bob\",\"age\":40}\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestJSONLSmallChunkSpansMultipleFills(t *testing.T) {
	in := "{\"x\":1}\n{\"x\":2}\n{\"x\":3}\n"
	src := NewSource(bytes.NewReader([]byte(in)), codec.Options{})
	src.chunkSize = 1 // force one line per chunk fill

	var got []int64
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rec.MustGet("x").Int)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestJSONLMissingFieldProjection(t *testing.T) {
	in := "{\"a\":1}\n"
	src := NewSource(bytes.NewReader([]byte(in)), codec.Options{FieldNames: []string{"a", "b"}})
	_, err := src.Next()
	if err == nil {
		t.Fatal("expected MissingFieldError")
	}
}
