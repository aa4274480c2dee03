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

package date

import "testing"

func TestParseTimeOfDay(t *testing.T) {
	got, ok := ParseTimeOfDay([]byte("13:04:05.5"))
	if !ok {
		t.Fatal("expected a valid time-of-day to parse")
	}
	if got.Hour() != 13 || got.Minute() != 4 || got.Second() != 5 {
		t.Fatalf("got %v", got)
	}
}

func TestParseTimeOfDayRejectsGarbage(t *testing.T) {
	if _, ok := ParseTimeOfDay([]byte("not-a-time")); ok {
		t.Fatal("expected garbage input to be rejected")
	}
}
