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

package pipeline

import (
	"errors"
	"fmt"

	"github.com/dkcore/dk/internal/journal"
	"github.com/dkcore/dk/internal/record"
)

// RunOptions extends Options with journal-backed accounting-mode
// controls, mirroring multi_processing.py's Coordinator constructor
// arguments (journal, accounting).
type RunOptions struct {
	Options
	Journal    journal.Journal
	Accounting bool
}

// RunImmutable drives an ImmutablePipeline: every record is wrapped in
// its own ImmutableMessage (id derived from content), run through
// stages one record at a time. When Accounting is true and Journal is
// non-nil, records whose message id is already marked completed in
// the journal are skipped entirely — this is what makes restarting a
// killed run against the same journal directory resume rather than
// reprocess (spec.md §8 scenario 4).
func RunImmutable(recs []*record.Record, stages []StageSpec, opts RunOptions) ([]*record.Record, error) {
	all := ImmutableMessagesFrom(recs)
	feed := make([]Message, 0, len(all))
	for _, m := range all {
		if opts.Accounting && opts.Journal != nil && opts.Journal.IsCompleted(m.ID()) {
			opts.log("skip: message %s already completed", m.ID())
			continue
		}
		if opts.Journal != nil {
			if err := opts.Journal.Enter(m.ID()); err != nil {
				return nil, fmt.Errorf("journal enter %s: %w", m.ID(), err)
			}
		}
		feed = append(feed, m)
	}

	results, errs := run(stages, feed, opts.Options)

	out := make([]*record.Record, 0, len(results))
	for _, m := range results {
		im, ok := m.(ImmutableMessage)
		if !ok {
			continue
		}
		out = append(out, im.Payload)
		if opts.Journal != nil {
			if err := opts.Journal.Complete(im.ID(), opts.Accounting); err != nil {
				errs = append(errs, fmt.Errorf("journal complete %s: %w", im.ID(), err))
			}
		}
	}
	if opts.Journal != nil {
		if err := opts.Journal.Sync(); err != nil {
			errs = append(errs, err)
		}
	}

	return out, joinErrs(errs)
}

// RunList drives a ListPipeline: input records are chunked into
// ListMessages of chunkSize records each, run through stages as
// batches. Accounting mode tracks completion per chunk, not per
// record — appropriate for stages whose cost is dominated by
// per-batch overhead (e.g. a batch database insert) rather than
// per-record work.
func RunList(recs []*record.Record, chunkSize int, stages []StageSpec, opts RunOptions) ([]*record.Record, error) {
	all := ListMessagesFrom(recs, chunkSize)
	feed := make([]Message, 0, len(all))
	for _, m := range all {
		if opts.Accounting && opts.Journal != nil && opts.Journal.IsCompleted(m.ID()) {
			opts.log("skip: chunk %s already completed", m.ID())
			continue
		}
		if opts.Journal != nil {
			if err := opts.Journal.Enter(m.ID()); err != nil {
				return nil, fmt.Errorf("journal enter %s: %w", m.ID(), err)
			}
		}
		feed = append(feed, m)
	}

	results, errs := run(stages, feed, opts.Options)

	var out []*record.Record
	for _, m := range results {
		lm, ok := m.(ListMessage)
		if !ok {
			continue
		}
		out = append(out, lm.Payload...)
		if opts.Journal != nil {
			if err := opts.Journal.Complete(lm.ID(), opts.Accounting); err != nil {
				errs = append(errs, fmt.Errorf("journal complete %s: %w", lm.ID(), err))
			}
		}
	}
	if opts.Journal != nil {
		if err := opts.Journal.Sync(); err != nil {
			errs = append(errs, err)
		}
	}

	return out, joinErrs(errs)
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
