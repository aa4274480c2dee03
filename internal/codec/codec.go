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

// Package codec declares the common Source/Sink contract of spec.md
// §4.3 that every concrete codec (csv, jsonenc, jsonl, msgpack,
// framed, parquet, sqlcodec) implements.
package codec

import "github.com/dkcore/dk/internal/record"

// DefaultChunkSize is the default batch size for codecs with a
// batched underlying format (spec.md §4.3).
const DefaultChunkSize = 50_000

// DefaultJSONLChunkBytes is the default byte-sized read chunk for the
// JSONL codec (spec.md §4.3).
const DefaultJSONLChunkBytes = 5 << 20

// Options configures a Source or Sink. FieldNames, when non-empty,
// activates the field-projection contract of spec.md §4.3: sources
// emit exactly those fields in that order, sinks write exactly those
// fields, and a missing field is a MissingFieldError.
type Options struct {
	FieldNames []string
	ChunkSize  int
	Counter    Counter
}

// Counter is the minimal interface a codec needs to report per-record
// progress, satisfied by *internal/instrument.Counter.
type Counter interface {
	Add(n int64)
}

// ChunkSizeOrDefault returns o.ChunkSize, or DefaultChunkSize if unset.
func (o Options) ChunkSizeOrDefault() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

// Count reports n records to the configured Counter, if any.
func (o Options) Count(n int64) {
	if o.Counter != nil {
		o.Counter.Add(n)
	}
}

// Source is a lazy sequence of records read from an underlying byte
// stream. Next returns io.EOF once the sequence is exhausted.
type Source interface {
	Next() (*record.Record, error)
	// Reset restarts the sequence from the beginning. It returns
	// *dkerr.UnsupportedResetError if the underlying transport is
	// not seekable.
	Reset() error
	Close() error
}

// Sink consumes records, grouping them into batches of the
// configured chunk size where the underlying format is batched.
type Sink interface {
	Write(*record.Record) error
	// Close flushes any buffered batch and closes the underlying
	// writer. A sink over zero records must still produce a valid,
	// parseable empty artifact (spec.md §4.3).
	Close() error
}
