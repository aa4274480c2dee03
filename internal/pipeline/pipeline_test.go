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
	"testing"

	"github.com/dkcore/dk/internal/journal"
	"github.com/dkcore/dk/internal/record"
)

func recWithX(n int64) *record.Record {
	r := record.New()
	r.Set("x", record.Int(n))
	return r
}

func passthroughStage() []StageSpec {
	return []StageSpec{
		{
			Name:    "identity",
			Workers: 2,
			Fn: func(m Message) (Message, error) {
				return m, nil
			},
		},
	}
}

func TestRunImmutableBasic(t *testing.T) {
	recs := []*record.Record{recWithX(1), recWithX(2), recWithX(3)}
	out, err := RunImmutable(recs, passthroughStage(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records out, got %d", len(out))
	}
}

// TestRunImmutableResumesAfterRestart covers spec.md §8 test scenario
// 4: run an ImmutablePipeline over [{x:1},{x:2},{x:3}] with a
// persistent journal, simulate a kill after two messages complete,
// then restart against the same journal. Only {x:3} should actually
// be (re)processed in the second run; the two runs together complete
// exactly three distinct messages.
func TestRunImmutableResumesAfterRestart(t *testing.T) {
	dir := t.TempDir()

	j1, err := journal.OpenPersistent(dir)
	if err != nil {
		t.Fatal(err)
	}

	all := []*record.Record{recWithX(1), recWithX(2), recWithX(3)}
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = MessageID(r)
	}

	// Run 1: process only the first two records, simulating a process
	// killed before the third ever starts.
	firstTwo := all[:2]
	out1, err := RunImmutable(firstTwo, passthroughStage(), RunOptions{
		Journal:    j1,
		Accounting: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out1) != 2 {
		t.Fatalf("run1: expected 2 records processed, got %d", len(out1))
	}
	if !j1.IsCompleted(ids[0]) || !j1.IsCompleted(ids[1]) {
		t.Fatal("run1: expected first two messages completed")
	}
	if j1.IsCompleted(ids[2]) {
		t.Fatal("run1: third message should never have been entered")
	}

	// Run 2: restart against the same journal directory, feeding the
	// full input. {x:1} and {x:2} must be skipped; only {x:3} is
	// actually processed.
	var processedIDs []string
	trackingStage := []StageSpec{
		{
			Name:    "identity",
			Workers: 1,
			Fn: func(m Message) (Message, error) {
				processedIDs = append(processedIDs, m.ID())
				return m, nil
			},
		},
	}

	j2, err := journal.OpenPersistent(dir)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := RunImmutable(all, trackingStage, RunOptions{
		Journal:    j2,
		Accounting: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(out2) != 1 {
		t.Fatalf("run2: expected only the unfinished record reprocessed, got %d", len(out2))
	}
	if len(processedIDs) != 1 || processedIDs[0] != ids[2] {
		t.Fatalf("run2: expected only message %s processed, got %v", ids[2], processedIDs)
	}
	for _, id := range ids {
		if !j2.IsCompleted(id) {
			t.Fatalf("expected message %s completed after run2", id)
		}
	}
}

func TestRunListChunking(t *testing.T) {
	recs := []*record.Record{recWithX(1), recWithX(2), recWithX(3), recWithX(4), recWithX(5)}
	out, err := RunList(recs, 2, passthroughStage(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 records out, got %d", len(out))
	}
}
