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

// Package jsonl implements the JSONL codec of spec.md §4.3: one record
// per line, read in byte-sized chunks (default 5 MiB). Each non-blank
// line of a chunk is decoded on its own as one JSON object, so a comma
// inside a line never splits it into several records.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/codec/jsonutil"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

// Source reads one record per line from a JSONL stream.
type Source struct {
	r         *bufio.Reader
	seek      io.Seeker
	orig      io.Reader
	opts      codec.Options
	chunkSize int

	pending []string // unconsumed lines split from the current chunk
	eof     bool
}

func NewSource(r io.Reader, opts codec.Options) *Source {
	s := &Source{
		r:         bufio.NewReaderSize(r, 64*1024),
		orig:      r,
		opts:      opts,
		chunkSize: codec.DefaultJSONLChunkBytes,
	}
	if sk, ok := r.(io.Seeker); ok {
		s.seek = sk
	}
	return s
}

// fillChunk reads up to chunkSize bytes, extends to the next newline
// so no line is split across chunks, and stashes its non-blank lines.
func (s *Source) fillChunk() error {
	if s.eof {
		return io.EOF
	}
	buf := make([]byte, 0, s.chunkSize)
	for len(buf) < s.chunkSize {
		b, err := s.r.ReadBytes('\n')
		buf = append(buf, b...)
		if err != nil {
			s.eof = true
			break
		}
	}
	lines := splitNonEmptyLines(buf)
	if len(lines) == 0 {
		return io.EOF
	}
	s.pending = lines
	return nil
}

func splitNonEmptyLines(buf []byte) []string {
	var out []string
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *Source) Next() (*record.Record, error) {
	for len(s.pending) == 0 {
		if err := s.fillChunk(); err != nil {
			return nil, err
		}
	}
	line := s.pending[0]
	s.pending = s.pending[1:]

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	rec, err := jsonutil.DecodeObject(dec)
	if err != nil {
		return nil, &dkerr.ParseError{Input: line, Err: err}
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
		return &dkerr.UnsupportedResetError{Transport: "jsonl source"}
	}
	if _, err := s.seek.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.r.Reset(s.orig)
	s.pending = nil
	s.eof = false
	return nil
}

func (s *Source) Close() error { return nil }

// Sink writes one compact JSON object per line.
type Sink struct {
	w    io.Writer
	opts codec.Options
}

func NewSink(w io.Writer, opts codec.Options) *Sink {
	return &Sink{w: w, opts: opts}
}

func (s *Sink) Write(rec *record.Record) error {
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
	var line bytes.Buffer
	line.Write(b)
	line.WriteByte('\n')
	if _, err := s.w.Write(line.Bytes()); err != nil {
		return err
	}
	s.opts.Count(1)
	return nil
}

func (s *Sink) Close() error { return nil }
