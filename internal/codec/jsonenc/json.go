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

// Package jsonenc implements the JSON codec of spec.md §4.3: a single
// top-level array of records. The token-walking decode style is
// adapted from the teacher's ion/json.go, shared with jsonl via
// internal/codec/jsonutil.
package jsonenc

import (
	"encoding/json"
	"io"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/codec/jsonutil"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

// Source reads records from a single top-level JSON array.
type Source struct {
	r       io.Reader
	seek    io.Seeker
	dec     *json.Decoder
	opts    codec.Options
	entered bool
}

func NewSource(r io.Reader, opts codec.Options) *Source {
	s := &Source{r: r, opts: opts}
	if sk, ok := r.(io.Seeker); ok {
		s.seek = sk
	}
	return s
}

func (s *Source) enter() error {
	if s.entered {
		return nil
	}
	s.entered = true
	s.dec = json.NewDecoder(s.r)
	s.dec.UseNumber()
	tok, err := s.dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return &dkerr.ParseError{Input: "json source", Err: errNotArray}
	}
	return nil
}

func (s *Source) Next() (*record.Record, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	if !s.dec.More() {
		s.dec.Token() // consume ']'
		return nil, io.EOF
	}
	rec, err := jsonutil.DecodeObject(s.dec)
	if err != nil {
		return nil, err
	}
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
	if s.seek == nil {
		return &dkerr.UnsupportedResetError{Transport: "json source"}
	}
	if _, err := s.seek.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.entered = false
	s.dec = nil
	return nil
}

func (s *Source) Close() error { return nil }

// Sink writes records as a single top-level JSON array.
type Sink struct {
	w       io.Writer
	opts    codec.Options
	started bool
}

func NewSink(w io.Writer, opts codec.Options) *Sink {
	return &Sink{w: w, opts: opts}
}

func (s *Sink) Write(rec *record.Record) error {
	if !s.started {
		s.started = true
		if _, err := s.w.Write([]byte("[")); err != nil {
			return err
		}
	} else {
		if _, err := s.w.Write([]byte(",")); err != nil {
			return err
		}
	}
	names := s.opts.FieldNames
	if len(names) == 0 {
		names = rec.Names()
	}
	values := make(map[string]any, len(names))
	for _, n := range names {
		v, ok := rec.Get(n)
		if !ok {
			return &dkerr.MissingFieldError{Field: n}
		}
		values[n] = v.Any()
	}
	b, err := jsonutil.EncodeOrdered(names, values)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.opts.Count(1)
	return nil
}

func (s *Sink) Close() error {
	if !s.started {
		_, err := s.w.Write([]byte("[]"))
		return err
	}
	_, err := s.w.Write([]byte("]"))
	return err
}
