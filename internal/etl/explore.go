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
	"io"
	"math"
	"math/rand"
	"sort"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/factory"
	"github.com/dkcore/dk/internal/record"
	"github.com/dkcore/dk/internal/schema"
)

// Head reads at most n records from raw, matching "xplore head".
func (inst *Instance) Head(raw string, n int) ([]*record.Record, error) {
	scope := factory.NewScope()
	defer scope.Close()

	src, err := inst.openSource(scope, raw, codec.Options{})
	if err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, n)
	for i := 0; i < n; i++ {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Fields returns the union of field names observed across every
// record in raw, sorted, matching "xplore fields".
func (inst *Instance) Fields(raw string) ([]string, error) {
	recs, err := inst.readAll(raw)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, rec := range recs {
		for _, name := range rec.Names() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Distinct returns the distinct values of field across every record
// in raw, matching "xplore distinct".
func (inst *Instance) Distinct(raw, field string) ([]record.Value, error) {
	recs, err := inst.readAll(raw)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []record.Value
	for _, rec := range recs {
		v, ok := rec.Get(field)
		if !ok {
			continue
		}
		key := v.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Count returns the number of records in raw, matching "xplore
// count".
func (inst *Instance) Count(raw string) (int, error) {
	recs, err := inst.readAll(raw)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Summary infers an Entity schema from a sample of raw's records,
// matching "xplore summary". p and k are forwarded to schema.Infer's
// sampling parameters: each record is kept with probability p (p <= 0
// or p > 1 keeps every record), and sampling stops once k records have
// been kept. A k <= 0 sets no cap.
func (inst *Instance) Summary(raw string, p float64, k int) (*schema.Entity, error) {
	recs, err := inst.readAll(raw)
	if err != nil {
		return nil, err
	}
	return schema.Infer(recs, p, k, rand.New(rand.NewSource(1))), nil
}

// Histogram buckets field's numeric values across raw's records into
// buckets equal-width bins between the observed min and max, matching
// "xplore histogram".
func (inst *Instance) Histogram(raw, field string, buckets int) ([]int, error) {
	if buckets <= 0 {
		buckets = 10
	}
	recs, err := inst.readAll(raw)
	if err != nil {
		return nil, err
	}

	var values []float64
	for _, rec := range recs {
		v, ok := rec.Get(field)
		if !ok || v.IsNull() {
			continue
		}
		values = append(values, valueAsFloat(v))
	}
	if len(values) == 0 {
		return make([]int, buckets), nil
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	counts := make([]int, buckets)
	width := max - min
	for _, v := range values {
		idx := 0
		if width > 0 {
			idx = int(math.Floor((v - min) / width * float64(buckets)))
			if idx >= buckets {
				idx = buckets - 1
			}
		}
		counts[idx]++
	}
	return counts, nil
}

func valueAsFloat(v record.Value) float64 {
	switch v.Kind {
	case record.KindInt:
		return float64(v.Int)
	case record.KindUint:
		return float64(v.Uint)
	case record.KindFloat:
		return v.Float
	case record.KindDecimal:
		return v.Decimal.Float()
	case record.KindBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// readAll opens raw and drains it fully, the shared plumbing behind
// every explore operation that needs the whole record set.
func (inst *Instance) readAll(raw string) ([]*record.Record, error) {
	scope := factory.NewScope()
	defer scope.Close()

	src, err := inst.openSource(scope, raw, codec.Options{})
	if err != nil {
		return nil, err
	}
	return drain(src, nil)
}
