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
	"archive/zip"
	"io"
	"path"

	"github.com/dkcore/dk/internal/dkerr"
)

// OpenZipReader opens the first file entry of a zip archive at path
// for reading. Unlike the streaming compressors, zip requires random
// access to the central directory, so it is opened eagerly rather
// than lazily.
func OpenZipReader(archivePath string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &dkerr.IOError{URI: archivePath, Err: err}
	}
	if len(zr.File) == 0 {
		zr.Close()
		return nil, &dkerr.IOError{URI: archivePath, Err: io.ErrUnexpectedEOF}
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		zr.Close()
		return nil, &dkerr.IOError{URI: archivePath, Err: err}
	}
	return &zipEntryReader{zr: zr, rc: rc}, nil
}

type zipEntryReader struct {
	zr *zip.ReadCloser
	rc io.ReadCloser
}

func (z *zipEntryReader) Read(p []byte) (int, error) { return z.rc.Read(p) }

func (z *zipEntryReader) Close() error {
	z.rc.Close()
	return z.zr.Close()
}

// zipWriter buffers the decoded payload and writes it as a single
// zip archive entry named after the archive file itself on Close,
// since archive/zip needs to finalize its central directory in one
// shot.
type zipWriter struct {
	archivePath string
	entryName   string
	buf         []byte
}

// CreateZipWriter prepares a single-entry zip archive at archivePath.
func CreateZipWriter(archivePath string) (io.WriteCloser, error) {
	return &zipWriter{
		archivePath: archivePath,
		entryName:   path.Base(archivePath[:len(archivePath)-len(".zip")]),
	}, nil
}

func (w *zipWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *zipWriter) Close() error {
	f, err := CreateFileWriter(w.archivePath, true)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	entry, err := zw.Create(w.entryName)
	if err != nil {
		return &dkerr.IOError{URI: w.archivePath, Err: err}
	}
	if _, err := entry.Write(w.buf); err != nil {
		return &dkerr.IOError{URI: w.archivePath, Err: err}
	}
	return zw.Close()
}
