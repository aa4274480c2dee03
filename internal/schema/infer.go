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

package schema

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/dkcore/dk/date"
	"github.com/dkcore/dk/internal/record"
)

// inferredKind is the internal lattice used by inference, distinct
// from FieldType since "null" participates in the precedence order
// but is not a declarable field type.
type inferredKind int

const (
	kindNull inferredKind = iota
	kindInt
	kindFloat
	kindBool
	kindDecimal
	kindDate
	kindDatetime
	kindString
)

// precedenceRank implements spec.md §4.5's winning-type precedence
// str > datetime > date > decimal > bool > float > int > null: a
// smaller rank wins when combining two observed kinds, so string
// absorbs everything.
var precedenceRank = map[inferredKind]int{
	kindString:   0,
	kindDatetime: 1,
	kindDate:     2,
	kindDecimal:  3,
	kindBool:     4,
	kindFloat:    5,
	kindInt:      6,
	kindNull:     7,
}

func widen(a, b inferredKind) inferredKind {
	if precedenceRank[a] <= precedenceRank[b] {
		return a
	}
	return b
}

// classify returns the narrowest kind s can be parsed as, trying
// int, decimal, float, bool, date, datetime, then falling back to
// string, per spec.md §4.5's per-value parser rules.
func classify(s string) inferredKind {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return kindNull
	}
	if _, err := strconv.ParseInt(stripThousands(trimmed), 10, 64); err == nil {
		return kindInt
	}
	if isDecimalLiteral(trimmed) {
		return kindDecimal
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return kindFloat
	}
	if isBoolLiteral(trimmed) {
		return kindBool
	}
	if looksLikeDateOnly(trimmed) {
		return kindDate
	}
	if _, ok := date.Parse([]byte(trimmed)); ok {
		return kindDatetime
	}
	return kindString
}

func stripThousands(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return true
	default:
		return false
	}
}

// isDecimalLiteral recognizes a fixed-point literal with an explicit
// decimal point, distinct from a plain float so scale can be tracked.
func isDecimalLiteral(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func looksLikeDateOnly(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	_, ok := date.Parse([]byte(s + "T00:00:00Z"))
	return ok
}

// fieldStats accumulates per-field observations during inference.
type fieldStats struct {
	kind      inferredKind
	maxStrLen int
	scale     int
	seenAny   bool
}

func (fs *fieldStats) observe(v record.Value) {
	fs.seenAny = true
	s := v.String()
	k := classify(s)
	if len(s) > fs.maxStrLen {
		fs.maxStrLen = len(s)
	}
	if k == kindDecimal {
		if dot := strings.IndexByte(s, '.'); dot >= 0 {
			if sc := len(s) - dot - 1; sc > fs.scale {
				fs.scale = sc
			}
		}
	}
	fs.kind = widen(fs.kind, k)
}

// Infer samples recs with Bernoulli probability p (stopping after at
// most k samples) and returns the Entity inferred from the observed
// field values, per spec.md §4.5's inference policy. p<=0 or p>1 is
// treated as 1 (sample every record up to k); k<=0 means no cap.
func Infer(recs []*record.Record, p float64, k int, rng *rand.Rand) *Entity {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if p <= 0 || p > 1 {
		p = 1
	}

	stats := make(map[string]*fieldStats)
	var order []string
	sampled := 0

	for _, rec := range recs {
		if k > 0 && sampled >= k {
			break
		}
		if p < 1 && rng.Float64() >= p {
			continue
		}
		sampled++
		for _, f := range rec.Fields() {
			fs, ok := stats[f.Name]
			if !ok {
				fs = &fieldStats{kind: kindNull}
				stats[f.Name] = fs
				order = append(order, f.Name)
			}
			fs.observe(f.Value)
		}
	}

	e := NewEntity()
	for _, name := range order {
		e.Set(name, descriptorFromStats(stats[name]))
	}
	return e
}

func descriptorFromStats(fs *fieldStats) FieldDescriptor {
	switch fs.kind {
	case kindInt:
		return FieldDescriptor{Type: TypeInteger}
	case kindFloat:
		return FieldDescriptor{Type: TypeFloat}
	case kindBool:
		return FieldDescriptor{Type: TypeBoolean}
	case kindDecimal:
		return FieldDescriptor{Type: TypeDecimal, Scale: fs.scale}
	case kindDate:
		return FieldDescriptor{Type: TypeDate}
	case kindDatetime:
		return FieldDescriptor{Type: TypeDateTime}
	case kindString, kindNull:
		fallthrough
	default:
		return FieldDescriptor{Type: TypeString, StrLen: fs.maxStrLen}
	}
}
