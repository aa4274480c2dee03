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

package transform

import (
	"math/rand"
	"testing"

	"github.com/dkcore/dk/internal/record"
)

func rec(fields ...record.Field) *record.Record { return record.New(fields...) }

func f(name string, v record.Value) record.Field { return record.Field{Name: name, Value: v} }

// TestMergeInnerPreservesLeftOrder covers spec.md §8 scenario 3: an
// inner merge on a composite key [a,b] yields 2 records, in left-hand
// order, with both the left-only field v and right-only field w
// present.
func TestMergeInnerPreservesLeftOrder(t *testing.T) {
	left := []*record.Record{
		rec(f("a", record.Int(1)), f("b", record.Int(1)), f("v", record.String("l1"))),
		rec(f("a", record.Int(2)), f("b", record.Int(2)), f("v", record.String("l2"))),
		rec(f("a", record.Int(3)), f("b", record.Int(3)), f("v", record.String("l3"))),
	}
	right := []*record.Record{
		rec(f("a", record.Int(2)), f("b", record.Int(2)), f("w", record.String("r2"))),
		rec(f("a", record.Int(1)), f("b", record.Int(1)), f("w", record.String("r1"))),
	}

	out := Merge(left, right, []string{"a", "b"}, InnerJoin)
	if len(out) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(out))
	}
	a0, _ := out[0].Get("a")
	if a0.Int != 1 {
		t.Fatalf("expected left order preserved, first record a=%v", a0)
	}
	v0, ok := out[0].Get("v")
	if !ok || v0.Str != "l1" {
		t.Fatalf("expected left field v preserved, got %v", v0)
	}
	w0, ok := out[0].Get("w")
	if !ok || w0.Str != "r1" {
		t.Fatalf("expected right field w present, got %v", w0)
	}
}

func TestMergeFieldCollisionRenamed(t *testing.T) {
	left := []*record.Record{rec(f("k", record.Int(1)), f("x", record.String("left")))}
	right := []*record.Record{rec(f("k", record.Int(1)), f("x", record.String("right")))}

	out := Merge(left, right, []string{"k"}, InnerJoin)
	if len(out) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(out))
	}
	x, _ := out[0].Get("x")
	if x.Str != "left" {
		t.Fatalf("expected left x to win unrenamed, got %v", x)
	}
	rx, ok := out[0].Get("r.x")
	if !ok || rx.Str != "right" {
		t.Fatalf("expected right x renamed to r.x, got %v", rx)
	}
}

func TestMergeLeftJoinKeepsUnmatched(t *testing.T) {
	left := []*record.Record{
		rec(f("k", record.Int(1))),
		rec(f("k", record.Int(2))),
	}
	right := []*record.Record{rec(f("k", record.Int(1)), f("w", record.String("r1")))}

	out := Merge(left, right, []string{"k"}, LeftJoin)
	if len(out) != 2 {
		t.Fatalf("expected 2 records from left join, got %d", len(out))
	}
	if _, ok := out[1].Get("w"); ok {
		t.Fatal("expected unmatched right side to be absent, not null-filled with a present key")
	}
}

// TestMovingWindowMean covers spec.md §8 scenario 5: records
// [{t:1,v:10},{t:2,v:20},{t:3,v:30},{t:4,v:40}], window size 3,
// function=mean, na=null. Expected mean-of-window outputs:
// [null, null, 20, 30].
func TestMovingWindowMean(t *testing.T) {
	recs := []*record.Record{
		rec(f("t", record.Int(1)), f("v", record.Int(10))),
		rec(f("t", record.Int(2)), f("v", record.Int(20))),
		rec(f("t", record.Int(3)), f("v", record.Int(30))),
		rec(f("t", record.Int(4)), f("v", record.Int(40))),
	}
	mw := NewMovingWindow(3, nil)
	mw.Truncate = false
	mw.Add(NewAverage("v", "v_ma"))

	out := mw.Apply(recs)
	if len(out) != 4 {
		t.Fatalf("expected 4 records (truncate disabled), got %d", len(out))
	}
	want := []bool{true, true, false, false} // isNull
	wantVal := []float64{0, 0, 20, 30}
	for i, rec := range out {
		v, ok := rec.Get("v_ma")
		if !ok {
			t.Fatalf("record %d missing v_ma", i)
		}
		if want[i] {
			if !v.IsNull() {
				t.Fatalf("record %d: expected null, got %v", i, v)
			}
			continue
		}
		if v.Float != wantVal[i] {
			t.Fatalf("record %d: expected mean %v, got %v", i, wantVal[i], v.Float)
		}
	}
}

func TestMovingWindowLast(t *testing.T) {
	recs := []*record.Record{
		rec(f("t", record.Int(1)), f("v", record.Int(10))),
		rec(f("t", record.Int(2)), f("v", record.Int(20))),
		rec(f("t", record.Int(3)), f("v", record.Int(30))),
	}
	mw := NewMovingWindow(2, nil)
	mw.Truncate = false
	mw.Add(NewLast("v", "v_last"))

	out := mw.Apply(recs)
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if v, _ := out[0].Get("v_last"); !v.IsNull() {
		t.Fatalf("record 0: expected null before window fills, got %v", v)
	}
	if v, _ := out[1].Get("v_last"); v.Float != 20 {
		t.Fatalf("record 1: expected last=20, got %v", v.Float)
	}
	if v, _ := out[2].Get("v_last"); v.Float != 30 {
		t.Fatalf("record 2: expected last=30, got %v", v.Float)
	}
}

func TestAggregateSum(t *testing.T) {
	recs := []*record.Record{
		rec(f("dept", record.String("eng")), f("amount", record.Int(10))),
		rec(f("dept", record.String("eng")), f("amount", record.Int(20))),
		rec(f("dept", record.String("sales")), f("amount", record.Int(5))),
	}
	out := Aggregate(recs, []string{"dept"}, []AggregateSpec{
		{Output: "total", Input: "amount", Reducer: SumReducer},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	dept0, _ := out[0].Get("dept")
	total0, _ := out[0].Get("total")
	if dept0.Str != "eng" || total0.Float != 30 {
		t.Fatalf("unexpected first group: dept=%v total=%v", dept0, total0)
	}
}

func TestReduceAggregateCount(t *testing.T) {
	recs := []*record.Record{
		rec(f("dept", record.String("eng"))),
		rec(f("dept", record.String("eng"))),
		rec(f("dept", record.String("sales"))),
	}
	count := func(acc, v record.Value) record.Value {
		return record.Int(acc.Int + 1)
	}
	out := ReduceAggregate(recs, []string{"dept"}, "n", "dept", record.Int(0), count)
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	n0, _ := out[0].Get("n")
	if n0.Int != 2 {
		t.Fatalf("expected eng count 2, got %v", n0.Int)
	}
}

func TestPivot(t *testing.T) {
	recs := []*record.Record{
		rec(f("region", record.String("west")), f("qtr", record.String("q1")), f("amount", record.Int(10))),
		rec(f("region", record.String("west")), f("qtr", record.String("q2")), f("amount", record.Int(20))),
		rec(f("region", record.String("east")), f("qtr", record.String("q1")), f("amount", record.Int(5))),
	}
	out := Pivot(recs, []string{"region"}, "qtr", "amount", SumReducer)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	q1, ok := out[0].Get("q1")
	if !ok || q1.Float != 10 {
		t.Fatalf("expected west q1=10, got %v", q1)
	}
	if _, ok := out[1].Get("q2"); !ok {
		t.Fatal("expected east row to have q2 column even though only east/q1 was seen directly")
	}
}

func TestSampleDeterministicWithSeededRNG(t *testing.T) {
	recs := make([]*record.Record, 100)
	for i := range recs {
		recs[i] = rec(f("i", record.Int(int64(i))))
	}
	rng := rand.New(rand.NewSource(42))
	out := Sample(recs, 1.0, 10, rng)
	if len(out) != 10 {
		t.Fatalf("expected sample bounded to k=10, got %d", len(out))
	}
}

func TestRenameAndDrop(t *testing.T) {
	recs := []*record.Record{rec(f("a", record.Int(1)), f("b", record.Int(2)))}
	renamed := Rename(recs, map[string]string{"a": "x"})
	if _, ok := renamed[0].Get("x"); !ok {
		t.Fatal("expected renamed field x to be present")
	}
	dropped := Drop(renamed, []string{"b"})
	if dropped[0].Has("b") {
		t.Fatal("expected b to be dropped")
	}
}
