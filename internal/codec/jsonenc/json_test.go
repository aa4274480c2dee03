package jsonenc

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkcore/dk/internal/codec"
)

func TestJSONRoundTrip(t *testing.T) {
	in := `[{"name":"alice","age":30},{"name":"bob","age":40}]`
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
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != `[{"name":"alice","age":30},{"name":"bob","age":40}]` {
		t.Fatalf("got %q", buf.String())
	}
}

func TestJSONEmptySinkProducesValidArray(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{})
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]" {
		t.Fatalf("got %q", buf.String())
	}
}
