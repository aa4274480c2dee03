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

// Package msgpack implements the msgpack codec of spec.md §4.3: a
// sequence of framed pack/unpack values, where each frame is an array
// of records rather than one record per value. Grounded on the
// dkit.etl.extensions.ext_msgpack MsgpackSource/MsgpackSink pattern of
// packing chunk_size-sized lists at a time and streaming them back out
// with a single unpacker over the whole stream.
package msgpack

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
)

// DefaultChunkSize is the msgpack codec's own batch size, smaller than
// codec.DefaultChunkSize because each msgpack frame is decoded whole
// into memory rather than streamed record-by-record.
const DefaultChunkSize = 5000

func chunkSizeOrDefault(opts codec.Options) int {
	if opts.ChunkSize > 0 {
		return opts.ChunkSize
	}
	return DefaultChunkSize
}

// Source decodes a sequence of msgpack-encoded []map[string]any chunks.
type Source struct {
	r     io.Reader
	seek  io.Seeker
	dec   *msgpack.Decoder
	opts  codec.Options
	chunk []map[string]any
	pos   int
}

func NewSource(r io.Reader, opts codec.Options) *Source {
	s := &Source{r: r, opts: opts}
	if sk, ok := r.(io.Seeker); ok {
		s.seek = sk
	}
	s.dec = msgpack.NewDecoder(r)
	return s
}

func (s *Source) fillChunk() error {
	var chunk []map[string]any
	if err := s.dec.Decode(&chunk); err != nil {
		return err
	}
	s.chunk = chunk
	s.pos = 0
	return nil
}

func (s *Source) Next() (*record.Record, error) {
	for s.pos >= len(s.chunk) {
		if err := s.fillChunk(); err != nil {
			return nil, err
		}
	}
	raw := s.chunk[s.pos]
	s.pos++

	rec := record.New()
	for k, v := range raw {
		rec.Set(k, record.FromAny(v))
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
		return &dkerr.UnsupportedResetError{Transport: "msgpack source"}
	}
	if _, err := s.seek.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.dec = msgpack.NewDecoder(s.r)
	s.chunk = nil
	s.pos = 0
	return nil
}

func (s *Source) Close() error { return nil }

// Sink buffers records and flushes a msgpack-encoded array every
// chunkSizeOrDefault records, matching the Python MsgpackSink's
// chunker-based batching.
type Sink struct {
	w     io.Writer
	enc   *msgpack.Encoder
	opts  codec.Options
	batch []map[string]any
}

func NewSink(w io.Writer, opts codec.Options) *Sink {
	return &Sink{w: w, enc: msgpack.NewEncoder(w), opts: opts}
}

func (s *Sink) Write(rec *record.Record) error {
	names := s.opts.FieldNames
	if len(names) == 0 {
		names = rec.Names()
	}
	row := make(map[string]any, len(names))
	for _, n := range names {
		v, ok := rec.Get(n)
		if !ok {
			return &dkerr.MissingFieldError{Field: n}
		}
		row[n] = v.Any()
	}
	s.batch = append(s.batch, row)
	if len(s.batch) >= chunkSizeOrDefault(s.opts) {
		return s.flush()
	}
	return nil
}

func (s *Sink) flush() error {
	if len(s.batch) == 0 {
		return nil
	}
	if err := s.enc.Encode(s.batch); err != nil {
		return err
	}
	s.opts.Count(int64(len(s.batch)))
	s.batch = s.batch[:0]
	return nil
}

func (s *Sink) Close() error {
	return s.flush()
}
