package msgpack

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

func TestMsgpackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{ChunkSize: 2})

	recs := []map[string]any{
		{"name": "alice", "age": int64(30)},
		{"name": "bob", "age": int64(40)},
		{"name": "carol", "age": int64(50)},
	}
	for _, r := range recs {
		rec := recordFromMap(r)
		if err := sink.Write(rec); err != nil {
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

func TestMsgpackSinkDefaultChunkSizeUnbuffered(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, codec.Options{})

	for i := 0; i < DefaultChunkSize-1; i++ {
		if err := sink.Write(recordFromMap(map[string]any{"n": int64(i)})); err != nil {
			t.Fatal(err)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no flush before reaching the default chunk size, wrote %d bytes", buf.Len())
	}

	if err := sink.Write(recordFromMap(map[string]any{"n": int64(DefaultChunkSize)})); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a flush once the default chunk size was reached")
	}
}
