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

// Package factory implements spec.md's component G: it maps a parsed
// endpoint to the right transport+codec combination and manages the
// scoped cleanup of everything it opened. Grounded on the teacher's
// db package scoped-resource idiom (db/s3fs.go-style deferred Close)
// and the teacher's "pick transport, pick format" layering in
// cmd/sdb.
package factory

import (
	"fmt"
	"io"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/codec/csv"
	"github.com/dkcore/dk/internal/codec/framed"
	"github.com/dkcore/dk/internal/codec/jsonenc"
	"github.com/dkcore/dk/internal/codec/jsonl"
	"github.com/dkcore/dk/internal/codec/msgpack"
	"github.com/dkcore/dk/internal/codec/parquet"
	"github.com/dkcore/dk/internal/codec/sqlcodec"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/transport"
	"github.com/dkcore/dk/internal/uri"
)

// binaryDialects are dialects that must be opened in binary mode per
// spec.md §4.4's factory policy.
var binaryDialects = map[string]bool{
	"mpak": true, "pkl": true, "parquet": true, "xlsx": true, "xls": true,
}

// Scope owns every transport/closer opened while resolving one or
// more endpoints and closes them in reverse order of creation, per
// spec.md §4.4 step 5.
type Scope struct {
	closers []io.Closer
}

// NewScope returns an empty cleanup scope.
func NewScope() *Scope { return &Scope{} }

func (s *Scope) track(c io.Closer) { s.closers = append(s.closers, c) }

// Close closes every tracked resource in reverse order, returning the
// first error encountered (but still attempting to close the rest).
func (s *Scope) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// OpenSource resolves raw to a codec.Source, tracking every resource
// it opens in scope. Mirrors open_source's steps of spec.md §4.4:
// parse the URI, select a transport by driver, select a codec by
// dialect, wrap with compression, then the codec.
func OpenSource(scope *Scope, raw string, opts codec.Options) (codec.Source, error) {
	ep, err := uri.Parse(raw)
	if err != nil {
		return nil, err
	}
	return OpenSourceEndpoint(scope, ep, opts)
}

// OpenSourceEndpoint is OpenSource over an already-parsed endpoint,
// used by internal/etl when the raw URI was a "::name" model
// reference resolved via model.Model.ResolveEndpoint rather than a
// literal endpoint string.
func OpenSourceEndpoint(scope *Scope, ep uri.Endpoint, opts codec.Options) (codec.Source, error) {
	if isSQLEndpoint(ep) {
		src, err := sqlcodec.NewSource(ep, opts)
		if err != nil {
			return nil, err
		}
		scope.track(src)
		return src, nil
	}

	if err := checkBinaryPolicy(ep); err != nil {
		return nil, err
	}

	r, err := openTransportReader(ep)
	if err != nil {
		return nil, err
	}
	scope.track(r)

	wrapped, err := transport.WrapReader(ep.Compression, r)
	if err != nil {
		return nil, err
	}
	if wrapped != r {
		scope.track(wrapped)
	}

	return newSourceFor(ep, wrapped, opts)
}

// OpenSink resolves raw to a codec.Sink, tracking every resource it
// opens in scope. Mirrors open_sink's steps of spec.md §4.4.
func OpenSink(scope *Scope, raw string, opts codec.Options) (codec.Sink, error) {
	ep, err := uri.Parse(raw)
	if err != nil {
		return nil, err
	}
	return OpenSinkEndpoint(scope, ep, opts)
}

// OpenSinkEndpoint is OpenSink over an already-parsed endpoint; see
// OpenSourceEndpoint.
func OpenSinkEndpoint(scope *Scope, ep uri.Endpoint, opts codec.Options) (codec.Sink, error) {
	if isSQLEndpoint(ep) {
		sink, err := sqlcodec.NewSink(ep, opts)
		if err != nil {
			return nil, err
		}
		scope.track(sink)
		return sink, nil
	}

	if err := checkBinaryPolicy(ep); err != nil {
		return nil, err
	}

	w, err := openTransportWriter(ep)
	if err != nil {
		return nil, err
	}
	scope.track(w)

	wrapped, err := transport.WrapWriter(ep.Compression, w)
	if err != nil {
		return nil, err
	}
	if wrapped != w {
		scope.track(wrapped)
	}

	return newSinkFor(ep, wrapped, opts)
}

// isSQLEndpoint reports whether ep names a database/sql connection
// rather than a byte-stream transport: the network driver family
// (mysql/postgres) parsed by uri.Parse into dialect "sql", plus
// sqlite, which is file-backed but still a SQL connection rather than
// a record-stream file format.
func isSQLEndpoint(ep uri.Endpoint) bool {
	return ep.Dialect == "sql" || ep.Dialect == "sqlite"
}

func checkBinaryPolicy(ep uri.Endpoint) error {
	if binaryDialects[ep.Dialect] && ep.Driver != "file" && ep.Driver != "stdio" && ep.Driver != "shm" {
		return &dkerr.ConfigError{Detail: fmt.Sprintf("dialect %q requires a binary-capable file transport, got driver %q", ep.Dialect, ep.Driver)}
	}
	return nil
}

func openTransportReader(ep uri.Endpoint) (transport.Reader, error) {
	binary := binaryDialects[ep.Dialect]
	switch ep.Driver {
	case "stdio":
		return transport.NewStdinReader(), nil
	case "shm":
		return transport.OpenSharedMemoryReader(ep.Database)
	case "file":
		return transport.OpenFileReader(ep.Database, binary)
	default:
		return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("driver %q has no byte-stream transport; use a sqlcodec source", ep.Driver)}
	}
}

func openTransportWriter(ep uri.Endpoint) (transport.Writer, error) {
	binary := binaryDialects[ep.Dialect]
	switch ep.Driver {
	case "stdio":
		return transport.NewStdoutWriter(), nil
	case "shm":
		return transport.CreateSharedMemoryWriter(ep.Database)
	case "file":
		return transport.CreateFileWriter(ep.Database, binary)
	default:
		return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("driver %q has no byte-stream transport; use a sqlcodec sink", ep.Driver)}
	}
}

func newSourceFor(ep uri.Endpoint, r io.Reader, opts codec.Options) (codec.Source, error) {
	switch ep.Dialect {
	case "csv":
		return csv.NewSource(r, csv.Config{}, opts), nil
	case "tsv":
		return csv.NewSource(r, csv.Config{TSV: true}, opts), nil
	case "json":
		return jsonenc.NewSource(r, opts), nil
	case "jsonl":
		return jsonl.NewSource(r, opts), nil
	case "mpak":
		return msgpack.NewSource(r, opts), nil
	case "pkl":
		return framed.NewSource(r, opts), nil
	case "parquet":
		return parquet.NewSource(r, opts)
	default:
		return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("no source codec registered for dialect %q", ep.Dialect)}
	}
}

func newSinkFor(ep uri.Endpoint, w io.Writer, opts codec.Options) (codec.Sink, error) {
	switch ep.Dialect {
	case "csv":
		return csv.NewSink(w, csv.Config{}, opts), nil
	case "tsv":
		return csv.NewSink(w, csv.Config{TSV: true}, opts), nil
	case "json":
		return jsonenc.NewSink(w, opts), nil
	case "jsonl":
		return jsonl.NewSink(w, opts), nil
	case "mpak":
		return msgpack.NewSink(w, opts), nil
	case "pkl":
		return framed.NewSink(w, opts), nil
	case "parquet":
		return parquet.NewSink(w, opts), nil
	default:
		return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("no sink codec registered for dialect %q", ep.Dialect)}
	}
}
