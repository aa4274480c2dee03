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

//go:build linux

package transport

import (
	"bytes"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/dkcore/dk/internal/dkerr"
)

// shmDir is where POSIX shared-memory objects are conventionally
// exposed as regular files on Linux.
const shmDir = "/dev/shm"

// SharedMemoryReader reads the contents of a POSIX shared-memory
// segment, memory-mapped rather than copied through a read(2) loop.
type SharedMemoryReader struct {
	f   *os.File
	buf []byte
	r   *bytes.Reader
}

// OpenSharedMemoryReader maps the named shared-memory segment for
// reading.
func OpenSharedMemoryReader(name string) (*SharedMemoryReader, error) {
	path := filepath.Join(shmDir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, &dkerr.IOError{URI: "shm:///" + name, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &dkerr.IOError{URI: "shm:///" + name, Err: err}
	}
	if fi.Size() == 0 {
		f.Close()
		return &SharedMemoryReader{f: f, r: bytes.NewReader(nil)}, nil
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &dkerr.IOError{URI: "shm:///" + name, Err: err}
	}
	return &SharedMemoryReader{f: f, buf: buf, r: bytes.NewReader(buf)}, nil
}

func (r *SharedMemoryReader) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *SharedMemoryReader) Seek(offset int64, whence int) (int64, error) {
	return r.r.Seek(offset, whence)
}

func (r *SharedMemoryReader) Close() error {
	if r.buf != nil {
		unix.Munmap(r.buf)
	}
	return r.f.Close()
}

var _ Seekable = (*SharedMemoryReader)(nil)

// SharedMemoryWriter buffers writes in memory and flushes them to the
// backing shared-memory file on Close, since POSIX shared-memory
// objects must be sized up front.
type SharedMemoryWriter struct {
	path string
	buf  bytes.Buffer
}

// CreateSharedMemoryWriter prepares the named shared-memory segment
// for writing.
func CreateSharedMemoryWriter(name string) (*SharedMemoryWriter, error) {
	if err := os.MkdirAll(shmDir, 0o1777); err != nil && !os.IsExist(err) {
		return nil, &dkerr.IOError{URI: "shm:///" + name, Err: err}
	}
	return &SharedMemoryWriter{path: filepath.Join(shmDir, name)}, nil
}

func (w *SharedMemoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *SharedMemoryWriter) Close() error {
	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return &dkerr.IOError{URI: w.path, Err: err}
	}
	defer f.Close()
	if w.buf.Len() == 0 {
		return nil
	}
	if err := f.Truncate(int64(w.buf.Len())); err != nil {
		return &dkerr.IOError{URI: w.path, Err: err}
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, w.buf.Len(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return &dkerr.IOError{URI: w.path, Err: err}
	}
	defer unix.Munmap(buf)
	copy(buf, w.buf.Bytes())
	return nil
}
