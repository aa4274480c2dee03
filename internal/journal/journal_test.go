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

package journal

import "testing"

func TestMemoryJournal(t *testing.T) {
	j := NewMemory()
	if err := j.Enter("a"); err != nil {
		t.Fatal(err)
	}
	if j.IsCompleted("a") {
		t.Fatal("expected not completed yet")
	}
	if j.Empty() {
		t.Fatal("expected non-empty journal with an outstanding entry")
	}
	if err := j.Complete("a", false); err != nil {
		t.Fatal(err)
	}
	if !j.IsCompleted("a") {
		t.Fatal("expected completed")
	}
	if !j.Empty() {
		t.Fatal("expected empty once all entries complete")
	}
}

// TestPersistentJournalSurvivesRestart covers spec.md §8 scenario 4's
// core journal mechanic: entries completed before a restart remain
// completed after reopening the same directory.
func TestPersistentJournalSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	j1, err := OpenPersistent(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if err := j1.Enter(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := j1.Complete("1", true); err != nil {
		t.Fatal(err)
	}
	if err := j1.Complete("2", true); err != nil {
		t.Fatal(err)
	}
	// simulate a crash: "3" never completes in this run.

	j2, err := OpenPersistent(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !j2.IsCompleted("1") || !j2.IsCompleted("2") {
		t.Fatal("expected completed entries to survive reopening the journal directory")
	}
	if j2.IsCompleted("3") {
		t.Fatal("expected entered-but-not-completed entry to remain outstanding")
	}
}
