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
	"sort"

	"github.com/dkcore/dk/internal/record"
)

// WindowFunc is one composable function applied by MovingWindow, e.g.
// average, sum, median. Reduce is called only once the window holds
// exactly Lag values.
type WindowFunc interface {
	Field() string
	Alias() string
	Reduce(window []float64) float64
}

type baseFunc struct {
	field, alias string
}

func (b baseFunc) Field() string { return b.field }
func (b baseFunc) Alias() string { return b.alias }

func withDefault(field, suffix, given string) string {
	if given != "" {
		return given
	}
	return field + "_" + suffix
}

// Average computes the arithmetic mean of the window (ma).
type Average struct{ baseFunc }

func NewAverage(field, alias string) Average {
	return Average{baseFunc{field, withDefault(field, "ma", alias)}}
}
func (a Average) Reduce(w []float64) float64 { return sum(w) / float64(len(w)) }

// Sum computes the total of the window.
type Sum struct{ baseFunc }

func NewSum(field, alias string) Sum { return Sum{baseFunc{field, withDefault(field, "sum", alias)}} }
func (s Sum) Reduce(w []float64) float64 { return sum(w) }

// Max returns the largest value in the window.
type Max struct{ baseFunc }

func NewMax(field, alias string) Max { return Max{baseFunc{field, withDefault(field, "max", alias)}} }
func (m Max) Reduce(w []float64) float64 {
	out := w[0]
	for _, v := range w[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

// Min returns the smallest value in the window.
type Min struct{ baseFunc }

func NewMin(field, alias string) Min { return Min{baseFunc{field, withDefault(field, "min", alias)}} }
func (m Min) Reduce(w []float64) float64 {
	out := w[0]
	for _, v := range w[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

// Median returns the middle value (or mean of the two middle values)
// of the window.
type Median struct{ baseFunc }

func NewMedian(field, alias string) Median {
	return Median{baseFunc{field, withDefault(field, "median", alias)}}
}
func (m Median) Reduce(w []float64) float64 {
	sorted := append([]float64(nil), w...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Gradient returns the slope of a simple linear regression of the
// window values against their position (0..lag-1), mirroring the
// original's scipy.stats.linregress-based Gradient function.
type Gradient struct{ baseFunc }

func NewGradient(field, alias string) Gradient {
	return Gradient{baseFunc{field, withDefault(field, "gr", alias)}}
}
func (g Gradient) Reduce(w []float64) float64 {
	n := float64(len(w))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range w {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Last returns the most recent value in the window, mirroring the
// original's Last window function (the trivial reducer that just
// reads the tail of the lag queue).
type Last struct{ baseFunc }

func NewLast(field, alias string) Last {
	return Last{baseFunc{field, withDefault(field, "last", alias)}}
}
func (l Last) Reduce(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	return w[len(w)-1]
}

func sum(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// MovingWindow computes one or more WindowFuncs over a fixed-size
// sliding window of each named field, partitioned by an optional set
// of key fields. Records whose window has not yet reached Lag are
// dropped when Truncate is set (the NewMovingWindow default);
// otherwise their aliases are set to NA.
//
// Grounded directly on original_source/dkit/data/window.py's
// MovingWindow/AbstractWindowFunction: each incoming value is first
// appended to a fixed-capacity queue (oldest evicted once full), and
// only once the queue holds exactly Lag values does the function
// compute a real result; before that the alias is set to NA.
type MovingWindow struct {
	Lag         int
	PartitionBy []string
	Truncate    bool
	Functions   []WindowFunc
	NA          record.Value

	windows map[string]map[string][]float64
}

// NewMovingWindow builds a MovingWindow of the given size.
func NewMovingWindow(lag int, partitionBy []string) *MovingWindow {
	return &MovingWindow{
		Lag:         lag,
		PartitionBy: partitionBy,
		Truncate:    true,
		NA:          record.Null,
		windows:     make(map[string]map[string][]float64),
	}
}

// Add appends fn to the set of functions computed per record.
func (mw *MovingWindow) Add(fn WindowFunc) *MovingWindow {
	mw.Functions = append(mw.Functions, fn)
	return mw
}

// Apply runs the window over recs in order, returning the transformed
// records (dropping any whose window is not yet full when Truncate is
// set).
func (mw *MovingWindow) Apply(recs []*record.Record) []*record.Record {
	out := make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		pk := keyOf(rec, mw.PartitionBy)
		fieldWindows, ok := mw.windows[pk]
		if !ok {
			fieldWindows = make(map[string][]float64)
			mw.windows[pk] = fieldWindows
		}

		next := rec.Clone()
		full := false
		for _, fn := range mw.Functions {
			f := fn.Field()
			v, _ := rec.Get(f)
			fieldWindows[f] = pushWindow(fieldWindows[f], toFloat(v), mw.Lag)
			w := fieldWindows[f]
			if len(w) < mw.Lag {
				next.Set(fn.Alias(), mw.NA)
				continue
			}
			full = true
			next.Set(fn.Alias(), record.Float(fn.Reduce(w)))
		}
		if full || !mw.Truncate {
			out = append(out, next)
		}
	}
	return out
}

func pushWindow(w []float64, v float64, lag int) []float64 {
	w = append(w, v)
	if len(w) > lag {
		w = w[len(w)-lag:]
	}
	return w
}

func toFloat(v record.Value) float64 {
	switch v.Kind {
	case record.KindInt:
		return float64(v.Int)
	case record.KindUint:
		return float64(v.Uint)
	case record.KindFloat:
		return v.Float
	case record.KindDecimal:
		return v.Decimal.Float()
	default:
		return 0
	}
}
