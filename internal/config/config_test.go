package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultSectionAndFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dk.ini")
	content := "[DEFAULT]\nkey = abc123\ndefault_model_name = mymodel\n\n[staging]\nkey = overridden\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if k, ok := cfg.Key(); !ok || k != "abc123" {
		t.Fatalf("got key=%q ok=%v", k, ok)
	}
	if v, ok := cfg.Get("staging", "key"); !ok || v != "overridden" {
		t.Fatalf("expected section override, got %q ok=%v", v, ok)
	}
	if v, ok := cfg.Get("staging", "default_model_name"); !ok || v != "mymodel" {
		t.Fatalf("expected fallback to DEFAULT, got %q ok=%v", v, ok)
	}
}

func TestParseMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dk.ini")
	if err := os.WriteFile(path, []byte("not a valid line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(path); err == nil {
		t.Fatal("expected ConfigError for malformed line")
	}
}
