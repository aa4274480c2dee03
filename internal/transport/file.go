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

package transport

import (
	"io"
	"os"

	"github.com/dkcore/dk/internal/dkerr"
)

// FileReader is a Reader backed by a plain file, seekable so that
// Reset (spec.md §4.3) can restart the sequence from offset 0.
type FileReader struct {
	f *os.File
}

// OpenFileReader opens path for reading. Binary controls the mode bit
// on platforms where it matters; on POSIX systems it is a no-op.
func OpenFileReader(path string, binary bool) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &dkerr.IOError{URI: path, Err: err}
	}
	return &FileReader{f: f}, nil
}

func (r *FileReader) Read(p []byte) (int, error) { return r.f.Read(p) }
func (r *FileReader) Close() error                { return r.f.Close() }
func (r *FileReader) Seek(offset int64, whence int) (int64, error) {
	return r.f.Seek(offset, whence)
}

var _ Seekable = (*FileReader)(nil)

// FileWriter is a Writer backed by a plain file, truncated and
// created on open.
type FileWriter struct {
	f *os.File
}

// CreateFileWriter creates (or truncates) path for writing.
func CreateFileWriter(path string, binary bool) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &dkerr.IOError{URI: path, Err: err}
	}
	return &FileWriter{f: f}, nil
}

func (w *FileWriter) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *FileWriter) Close() error                 { return w.f.Close() }

// StdinReader wraps os.Stdin as a non-seekable Reader.
type StdinReader struct{ r io.Reader }

func NewStdinReader() *StdinReader { return &StdinReader{r: os.Stdin} }

func (r *StdinReader) Read(p []byte) (int, error) { return r.r.Read(p) }
func (r *StdinReader) Close() error                { return nil }

// StdoutWriter wraps os.Stdout as a Writer.
type StdoutWriter struct{ w io.Writer }

func NewStdoutWriter() *StdoutWriter { return &StdoutWriter{w: os.Stdout} }

func (w *StdoutWriter) Write(p []byte) (int, error) { return w.w.Write(p) }
func (w *StdoutWriter) Close() error                 { return nil }
