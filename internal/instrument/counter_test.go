package instrument

import (
	"strings"
	"testing"
)

func TestTriggerFiresAtMultiples(t *testing.T) {
	var logs []string
	c := New(func(msg string) { logs = append(logs, msg) }, 3).Start()
	for i := 0; i < 7; i++ {
		c.Increment()
	}
	c.Stop()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log lines (at 3 and 6), got %d: %v", len(logs), logs)
	}
	if !strings.Contains(logs[0], "3") {
		t.Fatalf("expected first log to mention count 3, got %q", logs[0])
	}
}

func TestValueAndSecondsElapsed(t *testing.T) {
	c := New(nil, 10).Start()
	c.Add(5)
	if c.Value() != 5 {
		t.Fatalf("expected value 5, got %d", c.Value())
	}
	c.Stop()
	if c.SecondsElapsed() < 0 {
		t.Fatal("expected non-negative elapsed seconds")
	}
}
