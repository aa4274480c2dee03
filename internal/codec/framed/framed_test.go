package framed

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/record"
)

func recordFromMap(m map[string]any) *record.Record {
	rec := record.New()
	for k, v := range m {
		rec.Set(k, record.FromAny(v))
	}
	return rec
}

func TestFramedRoundTripMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{ChunkSize: 1})

	for _, name := range []string{"alice", "bob", "carol"} {
		if err := sink.Write(recordFromMap(map[string]any{"name": name})); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	src := NewSource(bytes.NewReader(buf.Bytes()), codec.Options{})
	var got []string
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rec.MustGet("name").Str)
	}
	if len(got) != 3 || got[0] != "alice" || got[1] != "bob" || got[2] != "carol" {
		t.Fatalf("got %v", got)
	}
}
