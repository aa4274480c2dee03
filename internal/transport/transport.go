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

// Package transport implements the scoped byte-stream readers and
// writers of spec.md §4.2: files, stdio, shared memory, each
// optionally wrapped in a compression decorator.
package transport

import "io"

// Reader is the capability set a transport exposes for reading.
// Seek is optional: callers type-assert for io.Seeker to discover
// whether Reset is supported.
type Reader interface {
	io.ReadCloser
}

// Writer is the capability set a transport exposes for writing.
type Writer interface {
	io.WriteCloser
}

// Seekable is implemented by readers whose underlying transport
// supports restarting the stream from offset 0 (spec.md §4.3 Reset).
type Seekable interface {
	Reader
	io.Seeker
}
