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

// Package instrument implements the counter-with-rate-logging used by
// every source/sink and pipeline worker (spec.md's component L).
// Grounded on original_source/dkit/utilities/instrumentation.py's
// CounterLogger, referenced throughout the original's source.py,
// verifier.py and multi_processing.py.
package instrument

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTrigger mirrors dkit.etl.DEFAULT_LOG_TRIGGER's 10000, the
// default used by multi_processing.Coordinator in the original.
const DefaultTrigger = 10_000

// DefaultTemplate mirrors AbstractSource's default log_template.
const DefaultTemplate = "Read ${counter} after ${seconds} seconds."

// Counter tracks a running count between a start and stop timestamp,
// logging at every multiple of Trigger counted records. Safe for
// concurrent use.
type Counter struct {
	mu sync.Mutex

	logger   func(string)
	template string
	trigger  int64

	count int64
	start time.Time
	end   time.Time
}

// New creates a Counter. logger may be nil to disable logging
// entirely; trigger <= 0 uses DefaultTrigger.
func New(logger func(string), trigger int64) *Counter {
	if trigger <= 0 {
		trigger = DefaultTrigger
	}
	return &Counter{logger: logger, template: DefaultTemplate, trigger: trigger}
}

// WithTemplate overrides the log message template, which may contain
// the placeholders ${counter} and ${seconds}.
func (c *Counter) WithTemplate(template string) *Counter {
	c.template = template
	return c
}

// Start records the counter's start time and returns c for chaining,
// mirroring CounterLogger(...).start().
func (c *Counter) Start() *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	return c
}

// Stop records the counter's end time and returns c for chaining.
func (c *Counter) Stop() *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.end = time.Now()
	return c
}

// Add increments the count by n and logs if the new count is an exact
// multiple of Trigger. An Add of more than one that steps past a
// multiple without landing on it does not log.
func (c *Counter) Add(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count += n
	if c.logger != nil && c.trigger > 0 && c.count%c.trigger == 0 {
		c.logger(c.render())
	}
}

// Increment adds one to the count.
func (c *Counter) Increment() { c.Add(1) }

// Value returns the current count.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SecondsElapsed returns the time between Start and Stop (or now, if
// Stop has not yet been called).
func (c *Counter) SecondsElapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secondsElapsedLocked()
}

// secondsElapsedLocked requires c.mu to already be held.
func (c *Counter) secondsElapsedLocked() float64 {
	end := c.end
	if end.IsZero() {
		end = time.Now()
	}
	if c.start.IsZero() {
		return 0
	}
	return end.Sub(c.start).Seconds()
}

// render requires c.mu to already be held.
func (c *Counter) render() string {
	s := c.template
	s = strings.ReplaceAll(s, "${counter}", strconv.FormatInt(c.count, 10))
	s = strings.ReplaceAll(s, "${seconds}", strconv.FormatFloat(c.secondsElapsedLocked(), 'f', 2, 64))
	return s
}

// String renders the counter using its template, mirroring the
// Python CounterLogger's __str__.
func (c *Counter) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render()
}
