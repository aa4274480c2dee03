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

// Pivot reshapes recs into a row-keys × column-key matrix: one output
// record per distinct combination of rowKeys, with one field per
// distinct value of columnKey, populated by reducing the matching
// valueField values. Grounded on spec.md §4.6's Pivot/ReducePivot
// description; Pivot itself materializes every (row, column) bucket
// before reducing, trading memory for a simple two-pass implementation.
func Pivot(recs []*record.Record, rowKeys []string, columnKey, valueField string, reducer Reducer) []*record.Record {
	type cell struct {
		row    *record.Record
		values map[string][]record.Value
	}
	rowOrder := make([]string, 0)
	rows := make(map[string]*cell)
	colSeen := map[string]bool{}
	var colOrder []string

	for _, rec := range recs {
		rk := keyOf(rec, rowKeys)
		c, ok := rows[rk]
		if !ok {
			keyRec, _ := rec.Project(rowKeys)
			c = &cell{row: keyRec, values: make(map[string][]record.Value)}
			rows[rk] = c
			rowOrder = append(rowOrder, rk)
		}
		col, _ := rec.Get(columnKey)
		colName := col.String()
		if !colSeen[colName] {
			colSeen[colName] = true
			colOrder = append(colOrder, colName)
		}
		v, _ := rec.Get(valueField)
		c.values[colName] = append(c.values[colName], v)
	}

	out := make([]*record.Record, 0, len(rowOrder))
	for _, rk := range rowOrder {
		c := rows[rk]
		r := c.row.Clone()
		for _, col := range colOrder {
			r.Set(col, reducer(c.values[col]))
		}
		out = append(out, r)
	}
	return out
}

// ReducePivot behaves like Pivot but folds each (row, column) cell
// with a Reduce2 accumulator as records arrive, keeping memory
// proportional to the number of distinct (row, column) pairs rather
// than the number of input records.
func ReducePivot(recs []*record.Record, rowKeys []string, columnKey, valueField string, seed record.Value, fn Reduce2) []*record.Record {
	type cell struct {
		row  *record.Record
		accs map[string]record.Value
	}
	rowOrder := make([]string, 0)
	rows := make(map[string]*cell)
	colSeen := map[string]bool{}
	var colOrder []string

	for _, rec := range recs {
		rk := keyOf(rec, rowKeys)
		c, ok := rows[rk]
		if !ok {
			keyRec, _ := rec.Project(rowKeys)
			c = &cell{row: keyRec, accs: make(map[string]record.Value)}
			rows[rk] = c
			rowOrder = append(rowOrder, rk)
		}
		col, _ := rec.Get(columnKey)
		colName := col.String()
		if !colSeen[colName] {
			colSeen[colName] = true
			colOrder = append(colOrder, colName)
		}
		acc, ok := c.accs[colName]
		if !ok {
			acc = seed
		}
		v, _ := rec.Get(valueField)
		c.accs[colName] = fn(acc, v)
	}

	out := make([]*record.Record, 0, len(rowOrder))
	for _, rk := range rowOrder {
		c := rows[rk]
		r := c.row.Clone()
		for _, col := range colOrder {
			if v, ok := c.accs[col]; ok {
				r.Set(col, v)
			}
		}
		out = append(out, r)
	}
	return out
}
