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

// Package logctx wraps the standard library logger with a component
// prefix, matching the teacher's plain stdlib `log` idiom (no
// structured logging library appears anywhere in the teacher or the
// retrieved pack) and the original's per-class logger-with-name
// pattern (`logging.getLogger(__name__)` in verifier.py,
// multi_processing.py).
package logctx

import (
	"log"
	"os"
)

// Logger is a named *log.Logger; component packages take one instead
// of reaching for the global logger, so callers can silence or
// redirect a specific subsystem.
type Logger struct {
	*log.Logger
	debug bool
}

// New returns a Logger writing to stderr with the given component
// name as prefix. debug gates Debugf: when false, Debugf is a no-op,
// mirroring DK_DEBUG's effect on diagnostic output (SPEC_FULL.md §1.3).
func New(component string, debug bool) *Logger {
	return &Logger{
		Logger: log.New(os.Stderr, "["+component+"] ", log.LstdFlags),
		debug:  debug,
	}
}

// Debugf logs only when the logger was constructed with debug=true.
func (l *Logger) Debugf(format string, args ...any) {
	if l.debug {
		l.Printf(format, args...)
	}
}

// Printer adapts *Logger to the func(string) signature
// internal/instrument.Counter expects.
func (l *Logger) Printer() func(string) {
	return func(msg string) { l.Print(msg) }
}
