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

// Package model implements the keyed model store of spec.md's
// component E: named connections, endpoints, entities, relations,
// queries and transforms persisted as a single YAML or JSON document.
// Grounded on original_source/dkit/etl/model.py's ModelManager and its
// Connection/Endpoint/Relation/Query/Transform dataclasses.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/secret"
	"github.com/dkcore/dk/internal/uri"
)

// ModelVersion is written to __meta__.version for new models and
// checked on load, matching ModelManager's schema version "0.2".
const ModelVersion = "0.2"

// Meta is the document's __meta__ block.
type Meta struct {
	Version string `json:"version"`
}

// Connection describes how to reach a data store, grounded on
// Connection(map_db.Object) in the original.
type Connection struct {
	Dialect     string `json:"dialect"`
	Driver      string `json:"driver"`
	Database    string `json:"database"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"` // encrypted at rest via internal/secret
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Compression string `json:"compression,omitempty"`
	Encryption  string `json:"encryption,omitempty"`
}

// connectionFromEndpoint builds a Connection from a parsed uri.Endpoint,
// mirroring Connection.from_uri (which drops entity/filter, kept only
// by the sibling Endpoint record).
func connectionFromEndpoint(ep uri.Endpoint) Connection {
	return Connection{
		Dialect:     ep.Dialect,
		Driver:      ep.Driver,
		Database:    ep.Database,
		Username:    ep.Username,
		Password:    ep.Password,
		Host:        ep.Host,
		Port:        ep.Port,
		Compression: ep.Compression,
	}
}

// Endpoint names a dataset reachable through a named Connection.
type Endpoint struct {
	Connection string `json:"connection"`
	TableName  string `json:"table_name,omitempty"`
	Entity     string `json:"entity,omitempty"`
}

// Relation is a referential-integrity constraint between two entities.
type Relation struct {
	ConstrainedEntity  string   `json:"constrained_entity"`
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredEntity     string   `json:"referred_entity"`
	ReferredColumns    []string `json:"referred_columns"`
}

// Entity is a shorthand schema: field name to type descriptor string
// (e.g. "String(str_len=16)"), decoded by internal/schema.
type Entity map[string]string

// Transform maps a destination field name to an arithmetic/boolean
// expression string evaluated by internal/exprlang, mirroring
// Transform(containers.DictionaryEmulator)'s use as a FormulaTransform
// specification.
type Transform map[string]string

// Query is a named, parameterized query text.
type Query struct {
	QueryText   string `json:"query"`
	Description string `json:"description,omitempty"`
}

// Model is the full persisted document of spec.md §6.
type Model struct {
	Meta        Meta                  `json:"__meta__"`
	Connections map[string]Connection `json:"connections"`
	Endpoints   map[string]Endpoint   `json:"endpoints"`
	Queries     map[string]Query      `json:"queries"`
	Entities    map[string]Entity     `json:"entities"`
	Transforms  map[string]Transform  `json:"transforms"`
	Relations   map[string]Relation   `json:"relations"`
}

// New returns an empty Model stamped with the current ModelVersion.
func New() *Model {
	return &Model{
		Meta:        Meta{Version: ModelVersion},
		Connections: map[string]Connection{},
		Endpoints:   map[string]Endpoint{},
		Queries:     map[string]Query{},
		Entities:    map[string]Entity{},
		Transforms:  map[string]Transform{},
		Relations:   map[string]Relation{},
	}
}

// Load reads a model document, dispatching on file extension (.json
// vs .yml/.yaml), and checks that __meta__.version is present.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &dkerr.IOError{URI: path, Err: err}
	}
	m := New()
	m.Meta.Version = ""
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, m)
	default:
		err = yaml.Unmarshal(raw, m)
	}
	if err != nil {
		return nil, &dkerr.ParseError{Input: path, Err: err}
	}
	if m.Meta.Version == "" {
		return nil, &dkerr.ValidationError{Entity: "model", Field: "__meta__.version", Detail: "missing or empty"}
	}
	return m, nil
}

// Save writes the model document, dispatching on file extension the
// same way Load does.
func (m *Model) Save(path string) error {
	var raw []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		raw, err = json.MarshalIndent(m, "", "  ")
	default:
		raw, err = yaml.Marshal(m)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &dkerr.IOError{URI: path, Err: err}
	}
	return nil
}

// AddConnection parses a raw endpoint URI into a named Connection,
// encrypting password (if any) with enc. Returns ValidationError if
// the name already exists, mirroring add_connection's duplicate check.
func (m *Model) AddConnection(name, rawURI, password string, enc *secret.Encryptor) (Connection, error) {
	if _, exists := m.Connections[name]; exists {
		return Connection{}, &dkerr.ValidationError{Entity: "connection", Field: name, Detail: "connection already exists"}
	}
	ep, err := uri.Parse(rawURI)
	if err != nil {
		return Connection{}, err
	}
	conn := connectionFromEndpoint(ep)
	if password != "" {
		conn.Password = password
	}
	if conn.Password != "" && enc != nil {
		token, err := enc.Encrypt(conn.Password)
		if err != nil {
			return Connection{}, err
		}
		conn.Password = token
	}
	m.Connections[name] = conn
	return conn, nil
}

// AddEndpoint registers a named Endpoint against an existing connection.
func (m *Model) AddEndpoint(name, connection, table, entity string) (Endpoint, error) {
	if _, ok := m.Connections[connection]; !ok {
		return Endpoint{}, &dkerr.ValidationError{Entity: "endpoint", Field: connection, Detail: "unknown connection"}
	}
	ep := Endpoint{Connection: connection, TableName: table, Entity: entity}
	m.Endpoints[name] = ep
	return ep, nil
}

// AddRelation registers a named Relation between two entities.
func (m *Model) AddRelation(name, constrainedEntity, referredEntity string, constrainedCols, referredCols []string) (Relation, error) {
	if len(constrainedCols) != len(referredCols) {
		return Relation{}, &dkerr.ValidationError{Entity: "relation", Field: name, Detail: "constrained and referred column lists must be the same length"}
	}
	rel := Relation{
		ConstrainedEntity:  constrainedEntity,
		ConstrainedColumns: constrainedCols,
		ReferredEntity:     referredEntity,
		ReferredColumns:    referredCols,
	}
	m.Relations[name] = rel
	return rel, nil
}

// ResolveEndpoint resolves a "::endpoint_name" reference (spec.md
// §4.6) against this model's Endpoints/Connections, returning the
// fully-formed uri.Endpoint the name refers to. Per spec.md §3
// ("Password is stored encrypted at rest and decrypted on read"), a
// non-empty stored password is decrypted with enc before being placed
// in the returned Endpoint; enc may be nil only if the connection has
// no password.
func (m *Model) ResolveEndpoint(ref string, enc *secret.Encryptor) (uri.Endpoint, error) {
	if !uri.IsRef(ref) {
		return uri.Endpoint{}, &dkerr.ParseError{Input: ref, Err: fmt.Errorf("not an endpoint reference")}
	}
	name := uri.RefName(ref)
	ep, ok := m.Endpoints[name]
	if !ok {
		return uri.Endpoint{}, &dkerr.ValidationError{Entity: "endpoint", Field: name, Detail: "unknown endpoint"}
	}
	conn, ok := m.Connections[ep.Connection]
	if !ok {
		return uri.Endpoint{}, &dkerr.ValidationError{Entity: "connection", Field: ep.Connection, Detail: "unknown connection"}
	}
	password := conn.Password
	if password != "" {
		if enc == nil {
			return uri.Endpoint{}, &dkerr.ConfigError{Detail: fmt.Sprintf("connection %q has an encrypted password but no encryption key is configured", ep.Connection)}
		}
		plain, err := enc.Decrypt(password)
		if err != nil {
			return uri.Endpoint{}, err
		}
		password = plain
	}
	return uri.Endpoint{
		Dialect:     conn.Dialect,
		Driver:      conn.Driver,
		Database:    conn.Database,
		Username:    conn.Username,
		Password:    password,
		Host:        conn.Host,
		Port:        conn.Port,
		Compression: conn.Compression,
		Entity:      ep.TableName,
	}, nil
}
