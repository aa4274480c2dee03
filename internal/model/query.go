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

package model

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/dkcore/dk/internal/dkerr"
)

// placeholder matches the query template surface's {{ var }}
// placeholders (spec.md §6) — a deliberately small subset of Jinja2's
// grammar (bare identifiers only, no filters or expressions), since
// the original's Query.template only ever uses jinja2.StrictUndefined
// over a flat variable substitution for this surface.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Variables returns the set of placeholder names referenced in the
// query text, mirroring Query.variables (jinja2 meta.find_undeclared_variables).
func (q Query) Variables() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(q.QueryText, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Render substitutes vars into the query text. Any placeholder not
// present in vars is a hard error (*dkerr.TemplateError), mirroring
// jinja2.StrictUndefined's behavior on undeclared variables.
func (q Query) Render(vars map[string]string) (string, error) {
	rewritten := placeholder.ReplaceAllString(strings.TrimSpace(q.QueryText), "{{.$1}}")
	tpl, err := template.New("query").Option("missingkey=error").Parse(rewritten)
	if err != nil {
		return "", &dkerr.ParseError{Input: q.QueryText, Err: err}
	}
	data := make(map[string]any, len(vars))
	for k, v := range vars {
		data[k] = v
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", &dkerr.TemplateError{Var: missingKeyFromError(err)}
	}
	return buf.String(), nil
}

var missingKeyPattern = regexp.MustCompile(`key "?([A-Za-z0-9_]+)"?`)

func missingKeyFromError(err error) string {
	if m := missingKeyPattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return err.Error()
}
