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
	"time"

	"github.com/dkcore/dk/internal/record"
)

// Sample draws a Bernoulli sample of recs with per-record probability
// p, stopping once k records have been selected (k<=0 means no bound).
// A nil rng seeds from the current time; callers that need
// reproducible sampling (e.g. tests) should pass their own. Grounded
// on spec.md §4.6's iter_sample description.
func Sample(recs []*record.Record, p float64, k int, rng *rand.Rand) []*record.Record {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var out []*record.Record
	for _, rec := range recs {
		if k > 0 && len(out) >= k {
			break
		}
		if rng.Float64() < p {
			out = append(out, rec)
		}
	}
	return out
}
