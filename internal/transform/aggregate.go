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

import "github.com/dkcore/dk/internal/record"

// Reducer folds a stream of field values into a single result,
// mirroring the original's single-argument reduce functions (sum,
// count, min, max, mean...) used by Aggregate/Pivot.
type Reducer func(values []record.Value) record.Value

// Reduce2 folds a running accumulator and one new value into an
// updated accumulator, letting ReduceAggregate avoid
// materializing whole groups in memory.
type Reduce2 func(acc, v record.Value) record.Value

// SumReducer sums numeric values, treating non-numeric as 0.
func SumReducer(values []record.Value) record.Value {
	var s float64
	for _, v := range values {
		s += toFloat(v)
	}
	return record.Float(s)
}

// CountReducer returns the number of values.
func CountReducer(values []record.Value) record.Value {
	return record.Int(int64(len(values)))
}

// MeanReducer returns the arithmetic mean, or null for an empty group.
func MeanReducer(values []record.Value) record.Value {
	if len(values) == 0 {
		return record.Null
	}
	var s float64
	for _, v := range values {
		s += toFloat(v)
	}
	return record.Float(s / float64(len(values)))
}

// MaxReducer returns the largest value by numeric comparison.
func MaxReducer(values []record.Value) record.Value {
	if len(values) == 0 {
		return record.Null
	}
	out := values[0]
	for _, v := range values[1:] {
		if toFloat(v) > toFloat(out) {
			out = v
		}
	}
	return out
}

// MinReducer returns the smallest value by numeric comparison.
func MinReducer(values []record.Value) record.Value {
	if len(values) == 0 {
		return record.Null
	}
	out := values[0]
	for _, v := range values[1:] {
		if toFloat(v) < toFloat(out) {
			out = v
		}
	}
	return out
}

// AggregateSpec names one output column produced by Aggregate: the
// output field name, the input field whose values are reduced, and
// the reducer applied to them.
type AggregateSpec struct {
	Output  string
	Input   string
	Reducer Reducer
}

// Aggregate groups recs by the named key fields and produces one
// output record per distinct group, with one field per AggregateSpec
// plus the group-by key fields themselves. Grounded on spec.md §4.6's
// Aggregate/Aggregates description (single or multiple reducer
// triples per group).
func Aggregate(recs []*record.Record, groupBy []string, specs []AggregateSpec) []*record.Record {
	type group struct {
		key    *record.Record
		values map[string][]record.Value
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	for _, rec := range recs {
		k := keyOf(rec, groupBy)
		g, ok := groups[k]
		if !ok {
			keyRec, _ := rec.Project(groupBy)
			g = &group{key: keyRec, values: make(map[string][]record.Value)}
			groups[k] = g
			order = append(order, k)
		}
		for _, spec := range specs {
			v, _ := rec.Get(spec.Input)
			g.values[spec.Output] = append(g.values[spec.Output], v)
		}
	}

	out := make([]*record.Record, 0, len(order))
	for _, k := range order {
		g := groups[k]
		rec := g.key.Clone()
		for _, spec := range specs {
			rec.Set(spec.Output, spec.Reducer(g.values[spec.Output]))
		}
		out = append(out, rec)
	}
	return out
}

// ReduceAggregate groups recs like Aggregate but folds each group with
// a two-argument Reduce2 function as records arrive, never
// materializing the per-group value slice. seed is the initial
// accumulator value for every group.
func ReduceAggregate(recs []*record.Record, groupBy []string, output, input string, seed record.Value, fn Reduce2) []*record.Record {
	type group struct {
		key *record.Record
		acc record.Value
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	for _, rec := range recs {
		k := keyOf(rec, groupBy)
		g, ok := groups[k]
		if !ok {
			keyRec, _ := rec.Project(groupBy)
			g = &group{key: keyRec, acc: seed}
			groups[k] = g
			order = append(order, k)
		}
		v, _ := rec.Get(input)
		g.acc = fn(g.acc, v)
	}

	out := make([]*record.Record, 0, len(order))
	for _, k := range order {
		g := groups[k]
		rec := g.key.Clone()
		rec.Set(output, g.acc)
		out = append(out, rec)
	}
	return out
}
