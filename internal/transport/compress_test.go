package transport

import (
	"bytes"
	"io"
	"testing"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := WrapWriter("gz", nopCloser{&buf})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello, world")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := WrapReader("gz", io.NopCloser(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello, world" {
		t.Fatalf("got %q", got)
	}
}

func TestLazyReaderDoesNoWorkUntouched(t *testing.T) {
	closed := false
	base := &trackingCloser{Reader: bytes.NewReader(nil), onClose: func() { closed = true }}
	r, err := WrapReader("gz", base)
	if err != nil {
		t.Fatal(err)
	}
	// close without reading: must not attempt to construct the
	// underlying gzip reader (which would fail on empty input).
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !closed {
		t.Fatal("expected base to be closed")
	}
}

type trackingCloser struct {
	io.Reader
	onClose func()
}

func (t *trackingCloser) Close() error {
	t.onClose()
	return nil
}

func TestEmptyCompressionPassthrough(t *testing.T) {
	base := io.NopCloser(bytes.NewReader([]byte("raw")))
	r, err := WrapReader("", base)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "raw" {
		t.Fatalf("got %q", got)
	}
}
