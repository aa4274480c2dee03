package jsondb

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, Options{AllowNull: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("alice", map[string]any{"age": float64(30)}); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	ok, err := db.Get("alice", &got)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got["age"] != float64(30) {
		t.Fatalf("got %v", got)
	}
	if !db.Has("alice") {
		t.Fatal("expected Has to report true")
	}
	if err := db.Delete("alice"); err != nil {
		t.Fatal(err)
	}
	if db.Has("alice") {
		t.Fatal("expected Has to report false after delete")
	}
}

func TestAllowNullRejection(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, Options{AllowNull: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("x", nil); err == nil {
		t.Fatal("expected rejection of null value")
	}
}

func TestCreatedAfterFilter(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, Options{AllowNull: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("old", "v1"); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().Add(time.Hour)
	filtered, err := Open(dir, Options{AllowNull: true, CreatedAfter: cutoff})
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Has("old") {
		t.Fatal("expected entry older than CreatedAfter to be hidden")
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, Options{AllowNull: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	reopened, err := Open(dir, Options{AllowNull: true})
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", reopened.Len())
	}
}
