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

// Package sqlcodec implements the SQL table/select source and sink of
// spec.md §4.3/§4.4's {file, stdio, shm, hdf5, sqlite, mysql,
// postgres, …} driver family, built on database/sql plus a goqu
// builder rather than hand-assembled query strings, and registered
// driver packages for sqlite/mysql/postgres. Grounded on
// other_examples' rakunlabs-at manifest (database/sql + goqu over
// pgx/stdlib) and codenerd's sqlite wiring.
package sqlcodec

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/go-sql-driver/mysql"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/record"
	"github.com/dkcore/dk/internal/uri"
)

// goquDialect maps a uri.Endpoint driver/dialect to the registered
// goqu and database/sql driver names.
func goquDialect(ep uri.Endpoint) (sqlDriver, goquName string, err error) {
	switch {
	case ep.Dialect == "sqlite":
		return "sqlite3", "sqlite3", nil
	case ep.Driver == "mysql":
		return "mysql", "mysql", nil
	case ep.Driver == "postgres" || ep.Driver == "postgresql":
		return "pgx", "postgres", nil
	default:
		return "", "", &dkerr.ConfigError{Detail: fmt.Sprintf("no SQL driver registered for %q/%q", ep.Driver, ep.Dialect)}
	}
}

func dsn(ep uri.Endpoint, sqlDriver string) string {
	if sqlDriver == "sqlite3" {
		return ep.Database
	}
	if ep.Username == "" {
		return fmt.Sprintf("%s://%s:%d/%s", sqlDriver, ep.Host, ep.Port, ep.Database)
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", sqlDriver, ep.Username, ep.Password, ep.Host, ep.Port, ep.Database)
}

// Open opens a database/sql connection and wraps it in a goqu
// Database for the endpoint's dialect.
func Open(ep uri.Endpoint) (*sql.DB, *goqu.Database, error) {
	sqlDriver, goquName, err := goquDialect(ep)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(sqlDriver, dsn(ep, sqlDriver))
	if err != nil {
		return nil, nil, &dkerr.IOError{URI: ep.Database, Err: err}
	}
	return db, goqu.New(goquName, db), nil
}

// Source reads every row of ep.Entity (optionally restricted by
// ep.Filter, a raw SQL boolean expression matching spec.md §4.1's
// "#[filter]" fragment) as a record.Record, column types taken from
// the driver's reported column metadata.
type Source struct {
	db   *sql.DB
	rows *sql.Rows
	cols []string
	opts codec.Options
}

func NewSource(ep uri.Endpoint, opts codec.Options) (*Source, error) {
	db, gdb, err := Open(ep)
	if err != nil {
		return nil, err
	}
	ds := gdb.From(ep.Entity)
	if ep.Filter != "" {
		ds = ds.Where(goqu.L(ep.Filter))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		db.Close()
		return nil, &dkerr.ParseError{Input: query, Err: err}
	}
	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		db.Close()
		return nil, &dkerr.IOError{URI: ep.Entity, Err: err}
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, err
	}
	return &Source{db: db, rows: rows, cols: cols, opts: opts}, nil
}

func (s *Source) Next() (*record.Record, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	scanned := make([]any, len(s.cols))
	ptrs := make([]any, len(s.cols))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	fields := make([]record.Field, len(s.cols))
	for i, name := range s.cols {
		fields[i] = record.Field{Name: name, Value: record.FromAny(scanned[i])}
	}
	rec := record.New(fields...)
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
	return &dkerr.UnsupportedResetError{Transport: "sql source"}
}

func (s *Source) Close() error {
	rerr := s.rows.Close()
	derr := s.db.Close()
	if rerr != nil {
		return rerr
	}
	return derr
}

// Sink inserts one row per record into ep.Entity, batching every
// Write into a single-row INSERT built via goqu rather than
// hand-formatted SQL.
type Sink struct {
	db  *sql.DB
	gdb *goqu.Database
	ep  uri.Endpoint
}

func NewSink(ep uri.Endpoint, opts codec.Options) (*Sink, error) {
	db, gdb, err := Open(ep)
	if err != nil {
		return nil, err
	}
	return &Sink{db: db, gdb: gdb, ep: ep}, nil
}

func (s *Sink) Write(rec *record.Record) error {
	row := make(goqu.Record, rec.Len())
	for _, f := range rec.Fields() {
		row[f.Name] = f.Value.Any()
	}
	query, args, err := s.gdb.Insert(s.ep.Entity).Rows(row).ToSQL()
	if err != nil {
		return &dkerr.ParseError{Input: query, Err: err}
	}
	if _, err := s.db.ExecContext(context.Background(), query, args...); err != nil {
		return &dkerr.IOError{URI: s.ep.Entity, Err: err}
	}
	return nil
}

func (s *Sink) Close() error { return s.db.Close() }
