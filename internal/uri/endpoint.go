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

// Package uri parses the endpoint URI grammar of spec.md §4.1/§6 into
// a normalized Endpoint record.
package uri

import (
	"strconv"
	"strings"

	"github.com/dkcore/dk/internal/dkerr"
)

// Reserved dialects and compressions, per spec.md §6.
var (
	Dialects = map[string]bool{
		"csv": true, "tsv": true, "json": true, "jsonl": true,
		"xml": true, "xlsx": true, "xls": true, "bxr": true,
		"pkl": true, "mpak": true, "pke": true, "parquet": true,
		"shm": true, "hdf5": true,
	}
	Compressions = map[string]bool{
		"bz2": true, "gz": true, "xz": true, "lz4": true,
		"snappy": true, "zip": true,
	}
	// netDrivers names schemes that are always parsed as the
	// network form (DRIVER://[user[:pass]@]host[:port]/db).
	netDrivers = map[string]bool{
		"mysql": true, "postgres": true, "postgresql": true,
	}
)

// Endpoint is the normalized struct produced by Parse. All fields are
// always present; unused fields are the zero value.
type Endpoint struct {
	Dialect     string
	Driver      string
	Database    string
	Username    string
	Password    string
	Host        string
	Port        int
	Compression string
	Entity      string
	Filter      string
}

// IsRef reports whether raw is a model endpoint reference of the form
// "::endpoint_name" (spec.md §4.6), rather than a literal URI.
func IsRef(raw string) bool {
	return strings.HasPrefix(raw, "::")
}

// RefName returns the endpoint name referenced by raw, which must
// satisfy IsRef.
func RefName(raw string) string {
	return strings.TrimPrefix(raw, "::")
}

// Parse parses a single endpoint URI string into a normalized
// Endpoint. Parse never returns a partially populated Endpoint: on
// error it returns the zero Endpoint and a *dkerr.ParseError naming
// the offending URI.
func Parse(raw string) (Endpoint, error) {
	ep, err := parse(raw)
	if err != nil {
		return Endpoint{}, &dkerr.ParseError{Input: raw, Err: err}
	}
	return ep, nil
}

func parse(raw string) (Endpoint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Endpoint{}, errEmpty
	}

	scheme, rest, hasScheme := cutScheme(s)
	switch {
	case !hasScheme:
		return parseBarePath(s)
	case scheme == "" :
		return Endpoint{}, errEmpty
	case netDrivers[strings.ToLower(scheme)]:
		return parseNetURI(scheme, rest)
	default:
		return parseFileURI(scheme, rest)
	}
}

// cutScheme splits "scheme://rest" or "scheme:///rest" into scheme
// and rest. hasScheme is false if s does not contain "://" at all,
// in which case s should be treated as a bare path.
func cutScheme(s string) (scheme, rest string, hasScheme bool) {
	i := strings.Index(s, "://")
	if i < 0 {
		return "", s, false
	}
	return s[:i], s[i+3:], true
}

// parseFileURI handles "dialect:///path?entity#[filter]" and the
// transport-prefixed forms (shm:///, hdf5:///). For a transport prefix
// the scheme names the transport, not the content dialect, so the
// dialect is still inferred from path's extension chain; for every
// other scheme the scheme itself is the dialect. The one slash that
// follows "://" is dropped, so "csv:///a.csv" names "a.csv" and
// "jsonl:///stdio" selects the stdio driver.
func parseFileURI(scheme, rest string) (Endpoint, error) {
	scheme = strings.ToLower(scheme)
	path, entity, filter := splitPathEntityFilter(rest)
	path = strings.TrimPrefix(path, "/")

	var driver string
	transportOnly := false
	switch scheme {
	case "shm":
		driver = "shm"
		transportOnly = true
	case "hdf5":
		driver = "hdf5"
		transportOnly = true
	default:
		driver = "file"
	}

	database := path
	if database == "stdio" {
		driver = "stdio"
	}

	inferredDialect, compression := inferDialectCompression(path)
	dialect := scheme
	if transportOnly {
		dialect = inferredDialect
	}

	ep := Endpoint{
		Dialect:     dialect,
		Driver:      driver,
		Database:    database,
		Compression: compression,
		Entity:      entity,
		Filter:      filter,
	}
	return ep, nil
}

// parseNetURI handles "driver://[user[:pass]@]host[:port]/db?entity#[filter]".
func parseNetURI(scheme, rest string) (Endpoint, error) {
	driver := strings.ToLower(scheme)

	userinfo, hostpart := "", rest
	if i := strings.Index(rest, "@"); i >= 0 {
		userinfo, hostpart = rest[:i], rest[i+1:]
	}

	username, password := "", ""
	if userinfo != "" {
		if i := strings.Index(userinfo, ":"); i >= 0 {
			username, password = userinfo[:i], userinfo[i+1:]
		} else {
			username = userinfo
		}
	}

	slash := strings.Index(hostpart, "/")
	if slash < 0 {
		return Endpoint{}, errMissingDatabase
	}
	hostport := hostpart[:slash]
	tail := hostpart[slash+1:]

	host, port := hostport, 0
	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		host = hostport[:i]
		p, err := strconv.Atoi(hostport[i+1:])
		if err != nil {
			return Endpoint{}, errBadPort
		}
		port = p
	}

	database, entity, filter := splitPathEntityFilter(tail)
	if database == "" {
		return Endpoint{}, errMissingDatabase
	}

	return Endpoint{
		Dialect:  "sql",
		Driver:   driver,
		Database: database,
		Username: username,
		Password: password,
		Host:     host,
		Port:     port,
		Entity:   entity,
		Filter:   filter,
	}, nil
}

// parseBarePath handles a path with no scheme at all; dialect and
// compression are inferred purely from the extension chain.
func parseBarePath(s string) (Endpoint, error) {
	path, entity, filter := splitPathEntityFilter(s)
	dialect, compression := inferDialectCompression(path)
	if dialect == "" {
		return Endpoint{}, errUnknownDialect
	}
	return Endpoint{
		Dialect:     dialect,
		Driver:      "file",
		Database:    path,
		Compression: compression,
		Entity:      entity,
		Filter:      filter,
	}, nil
}

// splitPathEntityFilter splits "path?entity#[filter]" into its three
// parts. The "#[" ... "]" suffix is only recognized following a "?".
func splitPathEntityFilter(s string) (path, entity, filter string) {
	path = s
	if i := strings.Index(s, "?"); i >= 0 {
		path = s[:i]
		tail := s[i+1:]
		if j := strings.Index(tail, "#["); j >= 0 && strings.HasSuffix(tail, "]") {
			entity = tail[:j]
			filter = tail[j+2 : len(tail)-1]
		} else {
			entity = tail
		}
	}
	return path, entity, filter
}

// inferDialectCompression walks the extension chain of path from the
// right, peeling off a recognized compression suffix before reading
// the dialect extension, per spec.md §4.1.
func inferDialectCompression(path string) (dialect, compression string) {
	name := path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", ""
	}
	last := strings.ToLower(parts[len(parts)-1])
	if Compressions[last] {
		compression = last
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return "", compression
	}
	dialect = strings.ToLower(parts[len(parts)-1])
	if dialect == "jsonl" || dialect == "ndjson" {
		return "jsonl", compression
	}
	return dialect, compression
}
