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

package exprlang

import (
	"fmt"
	"sort"

	"github.com/dkcore/dk/internal/record"
)

// recordEnv adapts *record.Record to Env.
type recordEnv struct{ rec *record.Record }

func (e recordEnv) Get(name string) (record.Value, bool) {
	return e.rec.Get(name)
}

// Compiled is a Transform with every field expression pre-parsed,
// mirroring model.Entity.decode's one-time-parse-then-reuse shape so
// a Transform applied to a whole stream only pays the parse cost once.
type Compiled struct {
	names []string
	nodes map[string]Node
}

// Compile parses every expression in a transform mapping (output field
// name -> expression text, e.g. model.Transform), in iteration order
// sorted by field name for determinism (map iteration order is not
// otherwise stable).
func Compile(fields map[string]string) (*Compiled, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make(map[string]Node, len(fields))
	for _, name := range names {
		n, err := Parse(fields[name])
		if err != nil {
			return nil, fmt.Errorf("exprlang: field %q: %w", name, err)
		}
		nodes[name] = n
	}
	return &Compiled{names: names, nodes: nodes}, nil
}

// Apply evaluates every compiled field expression against rec and
// returns a new record carrying exactly those output fields, in
// sorted field-name order — the Go equivalent of the original's
// FormulaTransform yielding one transformed row per input row.
func (c *Compiled) Apply(rec *record.Record) (*record.Record, error) {
	env := recordEnv{rec: rec}
	out := record.New()
	for _, name := range c.names {
		v, err := c.nodes[name].Eval(env)
		if err != nil {
			return nil, fmt.Errorf("exprlang: field %q: %w", name, err)
		}
		out.Set(name, v)
	}
	return out, nil
}

// ApplyAll runs Apply over every record in recs, stopping at the first
// error.
func (c *Compiled) ApplyAll(recs []*record.Record) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		transformed, err := c.Apply(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, transformed)
	}
	return out, nil
}
