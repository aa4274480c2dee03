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

import "github.com/dkcore/dk/internal/dkerr"

// RenderQuery looks up a named query in the model and renders its
// template against vars, matching the "run query" CLI subcommand's
// rendering step (spec.md §6). It does not execute the query: running
// rendered SQL against a live connection is sqlcodec's job, wired in
// separately once a connection endpoint names a SQL dialect.
func (inst *Instance) RenderQuery(name string, vars map[string]string) (string, error) {
	q, ok := inst.Model.Queries[name]
	if !ok {
		return "", &dkerr.ValidationError{Field: name, Detail: "unknown query"}
	}
	return q.Render(vars)
}

// QueryVariables returns the placeholder names a named query expects.
func (inst *Instance) QueryVariables(name string) ([]string, error) {
	q, ok := inst.Model.Queries[name]
	if !ok {
		return nil, &dkerr.ValidationError{Field: name, Detail: "unknown query"}
	}
	return q.Variables(), nil
}
