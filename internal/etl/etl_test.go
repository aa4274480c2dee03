// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dkcore/dk/internal/model"
)

func newTestInstance(t *testing.T) *Instance {
	t.Helper()
	m := model.New()
	m.Transforms["double"] = model.Transform{"n2": "n * 2"}
	m.Entities["point"] = model.Entity{"n": "Integer()"}
	return &Instance{Model: m, ModelPath: filepath.Join(t.TempDir(), "model.json")}
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var out string
	for _, l := range lines {
		out += l + "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunETLBasic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.jsonl")
	sink := filepath.Join(dir, "out.jsonl")
	writeLines(t, src, `{"n": 1}`, `{"n": 2}`, `{"n": 3}`)

	inst := newTestInstance(t)
	res, err := inst.RunETL(ETLOptions{
		SourceURI: src,
		SinkURI:   sink,
		Entity:    "point",
		Transform: "double",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.RecordsRead != 3 || res.RecordsWritten != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	out, err := os.ReadFile(sink)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	for _, want := range []string{`"n2":2`, `"n2":4`, `"n2":6`} {
		if !contains(got, want) {
			t.Fatalf("expected sink output to contain %q, got %q", want, got)
		}
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestRenderQuery(t *testing.T) {
	inst := newTestInstance(t)
	inst.Model.Queries["byCountry"] = model.Query{QueryText: "SELECT * FROM t WHERE country = '{{ country }}'"}

	rendered, err := inst.RenderQuery("byCountry", map[string]string{"country": "US"})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(rendered, "country = 'US'") {
		t.Fatalf("unexpected render: %q", rendered)
	}

	if _, err := inst.RenderQuery("missing", nil); err == nil {
		t.Fatal("expected error for unknown query")
	}
}

func TestExploreOperations(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.jsonl")
	writeLines(t, src,
		`{"n": 1, "city": "NYC"}`,
		`{"n": 2, "city": "LA"}`,
		`{"n": 3, "city": "NYC"}`,
	)
	inst := newTestInstance(t)

	head, err := inst.Head(src, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(head) != 2 {
		t.Fatalf("expected 2 head records, got %d", len(head))
	}

	fields, err := inst.Fields(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}

	count, err := inst.Count(src)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	distinct, err := inst.Distinct(src, "city")
	if err != nil {
		t.Fatal(err)
	}
	if len(distinct) != 2 {
		t.Fatalf("expected 2 distinct cities, got %d", len(distinct))
	}

	hist, err := inst.Histogram(src, "n", 3)
	if err != nil {
		t.Fatal(err)
	}
	sum := 0
	for _, c := range hist {
		sum += c
	}
	if sum != 3 {
		t.Fatalf("expected histogram counts to total 3, got %d (%v)", sum, hist)
	}
}
