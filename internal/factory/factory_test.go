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

package factory

import (
	"path/filepath"
	"testing"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/uri"
)

func TestOpenSinkJSONLAndCloseScope(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "data.jsonl")

	scope := NewScope()
	sink, err := OpenSink(scope, raw, codec.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if err := scope.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestIsSQLEndpointBypassesBinaryPolicy(t *testing.T) {
	dir := t.TempDir()
	ep, err := uri.Parse("sqlite:///" + filepath.Join(dir, "x.db") + "?people")
	if err != nil {
		t.Fatal(err)
	}
	if !isSQLEndpoint(ep) {
		t.Fatalf("expected sqlite endpoint to be recognized as a SQL endpoint: %+v", ep)
	}
}

func TestCheckBinaryPolicyRejectsNonFileTransport(t *testing.T) {
	ep := uri.Endpoint{Dialect: "parquet", Driver: "shm2"}
	if err := checkBinaryPolicy(ep); err == nil {
		t.Fatal("expected binary dialect over a non-file-capable transport to be rejected")
	}
}
