package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/opencrun-go/opencrun/event"
)

// ResultRecorder aggregates the completion of every NDRangeKernelBlock
// command split out of one NDRangeKernel enqueue (spec §4.E, testable
// property #6): the bound event advances to RUNNING exactly once, on the
// first group to start, and to COMPLETE (or the first reported error) only
// once every group has reported in.
type ResultRecorder struct {
	ev      *event.Event
	toWait  int32
	started int32

	mu       sync.Mutex
	firstErr error
}

// NewResultRecorder creates a recorder expecting groupCount completions,
// reporting to ev.
func NewResultRecorder(ev *event.Event, groupCount int) *ResultRecorder {
	return &ResultRecorder{ev: ev, toWait: int32(groupCount)}
}

// MarkStarted advances the bound event to RUNNING the first time any group
// calls it; subsequent calls are no-ops. Implemented as a CAS so two
// groups starting concurrently on different workers race safely.
func (r *ResultRecorder) MarkStarted() {
	if atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		if r.ev != nil {
			r.ev.MarkRunning()
		}
	}
}

// Done records one group's completion. Once every expected group has
// reported in, the bound event advances to COMPLETE, or to the generic
// error status if any group reported a non-nil error — the first error
// seen wins (spec §4.E "first non-OK result wins").
func (r *ResultRecorder) Done(err error) {
	if err != nil {
		r.mu.Lock()
		if r.firstErr == nil {
			r.firstErr = err
		}
		r.mu.Unlock()
	}

	if atomic.AddInt32(&r.toWait, -1) == 0 {
		if r.ev == nil {
			return
		}
		r.mu.Lock()
		failed := r.firstErr != nil
		r.mu.Unlock()
		if failed {
			r.ev.MarkCompleted(event.Status(-1))
		} else {
			r.ev.MarkCompleted(event.Complete)
		}
	}
}

// Err returns the first error recorded so far. Safe to call at any time,
// including before every group has completed; returns nil until a group
// reports one.
func (r *ResultRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}
