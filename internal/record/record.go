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

package record

// Field is one name/value pair in a Record, retained in insertion
// order.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to Value. Fields may
// be absent: looking up a name not present in the record returns
// (Null, false), distinct from a field explicitly set to null.
//
// Per spec.md §3's lifecycle summary, a Record is owned by the stage
// that produced it; once pushed to a downstream queue ownership
// transfers and the producer must not mutate it further. Callers that
// need to retain a record across a push should Clone it first.
type Record struct {
	fields []Field
	index  map[string]int
}

// New builds a Record from an ordered list of fields.
func New(fields ...Field) *Record {
	r := &Record{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range r.fields {
		r.index[f.Name] = i
	}
	return r
}

// Len returns the number of fields present.
func (r *Record) Len() int { return len(r.fields) }

// Names returns the field names in order. The returned slice must not
// be modified.
func (r *Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns the value of the named field and whether it was
// present.
func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Null, false
	}
	return r.fields[i].Value, true
}

// MustGet returns the value of the named field, or Null if absent.
func (r *Record) MustGet(name string) Value {
	v, _ := r.Get(name)
	return v
}

// Has reports whether the named field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Set assigns the value of the named field, appending a new field if
// it was not already present. Set must only be called on a Record the
// caller still owns (see the ownership note on Record).
func (r *Record) Set(name string, v Value) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Delete removes the named field, if present, preserving the relative
// order of the remaining fields.
func (r *Record) Delete(name string) {
	i, ok := r.index[name]
	if !ok {
		return
	}
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.fields); j++ {
		r.index[r.fields[j].Name] = j
	}
}

// Rename changes the name of a field in place, preserving its
// position. Rename is a no-op if from is absent; it overwrites
// to if to was already present elsewhere in the record.
func (r *Record) Rename(from, to string) {
	i, ok := r.index[from]
	if !ok {
		return
	}
	if j, exists := r.index[to]; exists && j != i {
		r.Delete(to)
		i = r.index[from]
	}
	r.fields[i].Name = to
	delete(r.index, from)
	r.index[to] = i
}

// Clone returns a deep copy safe to mutate independently of r.
func (r *Record) Clone() *Record {
	out := &Record{
		fields: append([]Field(nil), r.fields...),
		index:  make(map[string]int, len(r.index)),
	}
	for k, v := range r.index {
		out.index[k] = v
	}
	return out
}

// Fields returns the fields in order. The returned slice shares
// storage with r and must not be modified.
func (r *Record) Fields() []Field { return r.fields }

// Project returns a new Record containing exactly the named fields in
// exactly the given order, as required by spec.md §4.3's field
// projection contract. If any named field is absent it returns nil
// and the first absent name; on success the name is "".
func (r *Record) Project(names []string) (*Record, string) {
	out := New()
	for _, n := range names {
		v, ok := r.Get(n)
		if !ok {
			return nil, n
		}
		out.Set(n, v)
	}
	return out, ""
}
