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

//go:build !linux

package transport

import "github.com/dkcore/dk/internal/dkerr"

// SharedMemoryReader is unavailable outside Linux, where /dev/shm and
// mmap(2) are not guaranteed to exist.
type SharedMemoryReader struct{}

func OpenSharedMemoryReader(name string) (*SharedMemoryReader, error) {
	return nil, &dkerr.ConfigError{Detail: "shared memory transport requires linux"}
}

func (r *SharedMemoryReader) Read(p []byte) (int, error)            { return 0, nil }
func (r *SharedMemoryReader) Seek(o int64, w int) (int64, error)    { return 0, nil }
func (r *SharedMemoryReader) Close() error                          { return nil }

type SharedMemoryWriter struct{}

func CreateSharedMemoryWriter(name string) (*SharedMemoryWriter, error) {
	return nil, &dkerr.ConfigError{Detail: "shared memory transport requires linux"}
}

func (w *SharedMemoryWriter) Write(p []byte) (int, error) { return 0, nil }
func (w *SharedMemoryWriter) Close() error                { return nil }
