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

// Package verifier implements the idempotent "already processed"
// filter of spec.md's component K, keyed by a caller-supplied record
// accessor. Grounded on original_source/dkit/etl/verifier.py's
// ShelveVerifier, substituting internal/jsondb for Python's shelve
// as the persistent key-value backing store.
package verifier

import (
	"time"

	"github.com/dkcore/dk/internal/jsondb"
	"github.com/dkcore/dk/internal/record"
)

// KeyFunc extracts the idempotency key from a record. A nil key
// (empty string, by convention) means the record is never considered
// completed and always passes through.
type KeyFunc func(*record.Record) string

// completionMark is the value stored for each completed key,
// mirroring the original's VerifierRecord(timestamp).
type completionMark struct {
	Timestamp int64 `json:"timestamp"`
}

// Verifier filters a record stream against a persistent completion
// ledger backed by internal/jsondb.
type Verifier struct {
	db  *jsondb.DB
	get KeyFunc
}

// Open opens (or creates) the completion ledger rooted at dir.
func Open(dir string, get KeyFunc) (*Verifier, error) {
	db, err := jsondb.Open(dir, jsondb.Options{AllowNull: true})
	if err != nil {
		return nil, err
	}
	return &Verifier{db: db, get: get}, nil
}

// TestCompleted reports whether key has already been marked complete.
func (v *Verifier) TestCompleted(key string) bool {
	if key == "" {
		return false
	}
	return v.db.Has(key)
}

// MarkComplete records key as completed with the current time.
func (v *Verifier) MarkComplete(key string) error {
	if key == "" {
		return nil
	}
	return v.db.Set(key, completionMark{Timestamp: time.Now().Unix()})
}

// FilterNotCompleted returns the subset of recs whose key has not yet
// been marked complete, preserving order.
func (v *Verifier) FilterNotCompleted(recs []*record.Record) []*record.Record {
	out := make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		if !v.TestCompleted(v.get(rec)) {
			out = append(out, rec)
		}
	}
	return out
}

// MarkAndFilter is the "mark as complete" variant: it skips already
// completed records, and for every new record it marks the key
// complete before yielding it, mirroring
// ShelveVerifier.iter_mark_as_complete.
func (v *Verifier) MarkAndFilter(recs []*record.Record) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		key := v.get(rec)
		if v.TestCompleted(key) {
			continue
		}
		if err := v.MarkComplete(key); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
