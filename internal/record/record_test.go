package record

import "testing"

func TestSetGetDelete(t *testing.T) {
	r := New()
	r.Set("name", String("alice"))
	r.Set("age", Int(30))
	if v, ok := r.Get("name"); !ok || v.Str != "alice" {
		t.Fatalf("got %v, %v", v, ok)
	}
	r.Delete("name")
	if r.Has("name") {
		t.Fatal("expected name to be deleted")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 field, got %d", r.Len())
	}
}

func TestProjectMissingField(t *testing.T) {
	r := New(Field{"a", Int(1)})
	_, missing := r.Project([]string{"a", "b"})
	if missing != "b" {
		t.Fatalf("expected missing field b, got %q", missing)
	}
}

func TestProjectOrder(t *testing.T) {
	r := New(Field{"b", Int(2)}, Field{"a", Int(1)})
	out, missing := r.Project([]string{"a", "b"})
	if missing != "" {
		t.Fatalf("unexpected missing field %q", missing)
	}
	names := out.Names()
	if names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected [a b], got %v", names)
	}
}

func TestRename(t *testing.T) {
	r := New(Field{"a", Int(1)}, Field{"b", Int(2)})
	r.Rename("a", "c")
	if r.Has("a") || !r.Has("c") {
		t.Fatal("rename did not take effect")
	}
	names := r.Names()
	if names[0] != "c" || names[1] != "b" {
		t.Fatalf("expected order preserved, got %v", names)
	}
}

func TestDecimalString(t *testing.T) {
	d := Decimal{Unscaled: 12345, Scale: 2}
	if d.String() != "123.45" {
		t.Fatalf("got %q", d.String())
	}
	neg := Decimal{Unscaled: -500, Scale: 2}
	if neg.String() != "-5.00" {
		t.Fatalf("got %q", neg.String())
	}
}
