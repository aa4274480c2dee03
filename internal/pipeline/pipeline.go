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
	"fmt"
	"sync"

	"github.com/dkcore/dk/internal/instrument"
)

// WorkerState is one state of the per-worker state machine of
// spec.md §4.8.
type WorkerState int

const (
	StateStart WorkerState = iota
	StateRun
	StateIdle
	StateStop
	StateEnd
)

func (s WorkerState) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateRun:
		return "RUN"
	case StateIdle:
		return "IDLE"
	case StateStop:
		return "STOP"
	case StateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// StageFunc transforms one message, returning the message to forward
// to the next stage (or emit, for the final stage). Returning a nil
// Message with a nil error drops the message (used by filter-like
// stages).
type StageFunc func(Message) (Message, error)

// StageSpec declares one pipeline stage: how many concurrent workers
// process it and the transform they run, mirroring
// multi_processing.py's Worker pool-per-stage model.
type StageSpec struct {
	Name    string
	Workers int
	Fn      StageFunc
}

func (s StageSpec) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return 1
}

// Options configures a pipeline run. Zero values take spec.md's
// defaults: QueueSize 1000 (multi_processing.py's Coordinator default
// JoinableQueue maxsize), RetryLimit 0 (fail fast on first error).
type Options struct {
	QueueSize  int
	RetryLimit int
	Logger     func(string)
}

func (o Options) queueSize() int {
	if o.QueueSize > 0 {
		return o.QueueSize
	}
	return 1000
}

func (o Options) log(format string, args ...any) {
	if o.Logger != nil {
		o.Logger(fmt.Sprintf(format, args...))
	}
}

// runErr is a fatal error raised by a worker after exhausting
// RetryLimit attempts on one message.
type runErr struct {
	msgID string
	err   error
}

func (e *runErr) Error() string {
	return fmt.Sprintf("message %s exhausted retries: %v", e.msgID, e.err)
}

// run wires stages into a chain of bounded channels and drains the
// final stage into a slice. The feeder goroutine pushes messages into
// the first queue and closes it; each stage's workers share a
// WaitGroup so the stage's output channel is closed only once every
// worker in that stage has drained its input — the Go analogue of
// multi_processing.py's SENTINEL poison pill propagating stage to
// stage, expressed instead as channel-close propagation.
//
// Errors from any worker (after RetryLimit is exhausted) are collected
// and returned once the whole chain has drained; messages already in
// flight are allowed to finish rather than being abandoned mid-queue.
func run(stages []StageSpec, messages []Message, opts Options) ([]Message, []error) {
	if len(stages) == 0 {
		return messages, nil
	}

	qsize := opts.queueSize()
	chans := make([]chan Message, len(stages)+1)
	for i := range chans {
		chans[i] = make(chan Message, qsize)
	}

	var errMu sync.Mutex
	var errs []error
	recordErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		errs = append(errs, err)
	}

	iterIn, iterOut := newProgressCounters(opts)

	for i, stage := range stages {
		var stageWG sync.WaitGroup
		in, out := chans[i], chans[i+1]
		fn := stage.Fn
		name := stage.Name
		n := stage.workers()
		stageWG.Add(n)
		for w := 0; w < n; w++ {
			go func() {
				defer stageWG.Done()
				runWorker(name, in, out, fn, opts.RetryLimit, recordErr, opts)
			}()
		}
		go func(out chan Message) {
			stageWG.Wait()
			close(out)
		}(out)
	}

	go func() {
		for _, m := range messages {
			iterIn.Increment()
			chans[0] <- m
		}
		close(chans[0])
	}()

	var result []Message
	for m := range chans[len(chans)-1] {
		iterOut.Increment()
		result = append(result, m)
	}
	iterIn.Stop()
	iterOut.Stop()
	return result, errs
}

// runWorker implements one stage worker's cooperative loop: pull a
// message, run it through fn with up to retryLimit retries, forward
// the result. This is the goroutine-based replacement for
// multi_processing.py's Worker.run, with the RUN/IDLE/STOP states
// implicit in the channel range loop (idle while blocked receiving,
// running while fn executes, stopped once in is closed and drained).
func runWorker(name string, in <-chan Message, out chan<- Message, fn StageFunc, retryLimit int, recordErr func(error), opts Options) {
	for msg := range in {
		var (
			result Message
			err    error
		)
		for attempt := 0; attempt <= retryLimit; attempt++ {
			result, err = fn(msg)
			if err == nil {
				break
			}
			opts.log("%s: attempt %d failed for message %s: %v", name, attempt+1, msg.ID(), err)
		}
		if err != nil {
			recordErr(&runErr{msgID: msg.ID(), err: err})
			continue
		}
		if result == nil {
			continue
		}
		out <- result
	}
}

// newProgressCounters builds the in/out instrument.Counters for one
// run, logging ITER_IN/ITER_OUT lines at multiples of trigger,
// mirroring multi_processing.py's Coordinator._log_progress. Counting
// is the direct application of component L (internal/instrument) to
// the pipeline's feeder and drain loops.
func newProgressCounters(opts Options) (in, out *instrument.Counter) {
	in = instrument.New(opts.Logger, 0).WithTemplate("ITER_IN: ${counter} after ${seconds} seconds.").Start()
	out = instrument.New(opts.Logger, 0).WithTemplate("ITER_OUT: ${counter} after ${seconds} seconds.").Start()
	return in, out
}
