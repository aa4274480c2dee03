package verifier

import (
	"testing"

	"github.com/dkcore/dk/internal/record"
)

func byID(r *record.Record) string {
	if v, ok := r.Get("id"); ok {
		return v.Str
	}
	return ""
}

func newRec(id string) *record.Record {
	rec := record.New()
	rec.Set("id", record.String(id))
	return rec
}

func TestFilterNotCompleted(t *testing.T) {
	v, err := Open(t.TempDir(), byID)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.MarkComplete("a"); err != nil {
		t.Fatal(err)
	}
	recs := []*record.Record{newRec("a"), newRec("b"), newRec("c")}
	out := v.FilterNotCompleted(recs)
	if len(out) != 2 || out[0].MustGet("id").Str != "b" || out[1].MustGet("id").Str != "c" {
		t.Fatalf("got %v", out)
	}
}

func TestMarkAndFilterIsIdempotent(t *testing.T) {
	v, err := Open(t.TempDir(), byID)
	if err != nil {
		t.Fatal(err)
	}
	first, err := v.MarkAndFilter([]*record.Record{newRec("a"), newRec("b")})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 {
		t.Fatalf("expected both records on first pass, got %d", len(first))
	}
	second, err := v.MarkAndFilter([]*record.Record{newRec("a"), newRec("b"), newRec("c")})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 || second[0].MustGet("id").Str != "c" {
		t.Fatalf("expected only new record c on second pass, got %v", second)
	}
}
