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

// JoinKind selects Merge's join semantics (spec.md §4.6).
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	FullJoin
)

// Merge joins left and right on the named key fields. The right-hand
// side is fully indexed first via KeyIndexer. Non-key fields from the
// right side that collide with a left-side (or already-renamed
// right-side) field name are renamed by prefixing "r." repeatedly
// until unique, per spec.md §4.6. Order is preserved on the left-hand
// side for Inner and Left joins.
func Merge(left, right []*record.Record, keys []string, kind JoinKind) []*record.Record {
	idx := NewKeyIndexer(right, keys)
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	var out []*record.Record
	matchedRight := make(map[*record.Record]bool)

	for _, l := range left {
		matches := idx.Lookup(l)
		if len(matches) == 0 {
			if kind == LeftJoin || kind == FullJoin {
				out = append(out, l.Clone())
			}
			continue
		}
		for _, r := range matches {
			matchedRight[r] = true
			out = append(out, joinRecords(l, r, keySet))
		}
	}

	if kind == FullJoin {
		for _, r := range right {
			if !matchedRight[r] {
				out = append(out, r.Clone())
			}
		}
	}
	return out
}

// joinRecords combines l's fields with r's non-key fields, renaming
// any r field name that collides with an existing name by prefixing
// "r." until unique.
func joinRecords(l, r *record.Record, keys map[string]bool) *record.Record {
	out := l.Clone()
	for _, f := range r.Fields() {
		if keys[f.Name] {
			continue
		}
		name := f.Name
		for out.Has(name) {
			name = "r." + name
		}
		out.Set(name, f.Value)
	}
	return out
}
