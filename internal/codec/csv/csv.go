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

// Package csv implements the CSV and TSV codecs of spec.md §4.3,
// adapted from the teacher's xsv.CsvChopper/TsvChopper.
package csv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
	"github.com/dkcore/dk/xsv"
)

// chopper is satisfied by xsv.CsvChopper and xsv.TsvChopper.
type chopper interface {
	GetNext(io.Reader) ([]string, error)
}

// Source reads CSV or TSV formatted records. The first row is the
// header unless Options.FieldNames is set, in which case SkipLines
// (if any) rows are skipped and every row is treated as data.
type Source struct {
	r          io.Reader
	seek       io.Seeker
	ch         chopper
	opts       codec.Options
	tsv        bool
	separator  rune
	skipLines  int
	header     []string
	started    bool
}

// Config configures Source construction.
type Config struct {
	TSV       bool
	Separator rune // 0 means default (',' for CSV)
	SkipLines int  // lines to skip before the header row
}

// NewSource constructs a Source over r. If s, ok := r.(io.Seeker) is
// possible, Reset is supported.
func NewSource(r io.Reader, cfg Config, opts codec.Options) *Source {
	src := &Source{r: r, opts: opts, tsv: cfg.TSV, separator: cfg.Separator, skipLines: cfg.SkipLines}
	if sk, ok := r.(io.Seeker); ok {
		src.seek = sk
	}
	return src
}

func (s *Source) chopperFor() chopper {
	if s.tsv {
		return &xsv.TsvChopper{SkipRecords: s.skipLines, Separator: byte(s.separator)}
	}
	return &xsv.CsvChopper{SkipRecords: s.skipLines, Separator: xsv.Delim(s.separator)}
}

func (s *Source) ensureHeader() error {
	if s.started {
		return nil
	}
	s.started = true
	s.ch = s.chopperFor()
	if len(s.opts.FieldNames) > 0 {
		s.header = s.opts.FieldNames
		return nil
	}
	row, err := s.ch.GetNext(s.r)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	s.header = append([]string(nil), row...)
	return nil
}

// Next returns the next record, or io.EOF when the source is
// exhausted.
func (s *Source) Next() (*record.Record, error) {
	if err := s.ensureHeader(); err != nil {
		return nil, err
	}
	if s.ch == nil {
		return nil, io.EOF
	}
	row, err := s.ch.GetNext(s.r)
	if err != nil {
		return nil, err
	}
	rec := record.New()
	for i, name := range s.header {
		if i >= len(row) {
			break
		}
		rec.Set(name, record.String(row[i]))
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

// Reset restarts the sequence from offset 0.
func (s *Source) Reset() error {
	if s.seek == nil {
		return &dkerr.UnsupportedResetError{Transport: "csv source"}
	}
	if _, err := s.seek.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.started = false
	s.ch = nil
	s.header = nil
	return nil
}

func (s *Source) Close() error { return nil }

// Sink writes CSV or TSV records. An empty input still produces a
// header row when FieldNames is known (spec.md §4.3).
type Sink struct {
	w         io.Writer
	cw        *csv.Writer
	tsv       bool
	separator rune
	fields    []string
	wroteHdr  bool
	opts      codec.Options
}

// NewSink constructs a Sink over w.
func NewSink(w io.Writer, cfg Config, opts codec.Options) *Sink {
	cw := csv.NewWriter(w)
	switch {
	case cfg.Separator != 0:
		cw.Comma = cfg.Separator
	case cfg.TSV:
		cw.Comma = '\t'
	}
	return &Sink{w: w, cw: cw, tsv: cfg.TSV, separator: cfg.Separator, fields: opts.FieldNames, opts: opts}
}

func (s *Sink) writeHeader() error {
	if s.wroteHdr {
		return nil
	}
	s.wroteHdr = true
	if len(s.fields) == 0 {
		return nil
	}
	return s.cw.Write(s.fields)
}

func (s *Sink) Write(rec *record.Record) error {
	if len(s.fields) == 0 {
		s.fields = rec.Names()
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	names := s.fields
	row := make([]string, len(names))
	for i, n := range names {
		v, ok := rec.Get(n)
		if !ok {
			return &dkerr.MissingFieldError{Field: n}
		}
		row[i] = stringify(v)
	}
	if err := s.cw.Write(row); err != nil {
		return err
	}
	s.opts.Count(1)
	return nil
}

func (s *Sink) Close() error {
	if err := s.writeHeader(); err != nil {
		return err
	}
	s.cw.Flush()
	return s.cw.Error()
}

func stringify(v record.Value) string {
	switch v.Kind {
	case record.KindNull:
		return ""
	case record.KindString:
		return v.Str
	case record.KindBool:
		return strconv.FormatBool(v.Bool)
	case record.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case record.KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case record.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case record.KindDecimal:
		return v.Decimal.String()
	case record.KindBinary:
		return string(v.Bin)
	case record.KindDate:
		return v.Time.Format("2006-01-02")
	case record.KindDatetime:
		return v.Time.Format(time.RFC3339Nano)
	case record.KindTime:
		return v.Time.Format("15:04:05.999999999")
	default:
		return ""
	}
}
