// Package event implements the runtime's event/status-signaling fabric: a
// monotonic state machine (spec §4.G) that every command produces and every
// wait operation blocks on.
package event

import (
	"sync"

	"github.com/opencrun-go/opencrun/profiler"
	"github.com/opencrun-go/opencrun/refcount"
)

// Status mirrors the OpenCL 1.1 command execution status values (table
// 5.15): positive/zero values are the normal lifecycle, negative values are
// errors. Status is ordered QUEUED > SUBMITTED > RUNNING > COMPLETE, and an
// error status is lower than COMPLETE.
type Status int

const (
	Complete  Status = 0
	Running   Status = 1
	Submitted Status = 2
	Queued    Status = 3
)

// IsError reports whether s represents a runtime/platform error rather than
// a normal lifecycle stage.
func (s Status) IsError() bool { return s < 0 }

func (s Status) String() string {
	switch s {
	case Queued:
		return "queued"
	case Submitted:
		return "submitted"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "error"
	}
}

// CommandDoneNotifier is implemented by the owning queue so an Event can
// report completion back without importing the queue package (which itself
// depends on event) — mirrors InternalEvent calling back into
// CommandQueue::CommandDone.
type CommandDoneNotifier interface {
	CommandDone(*Event)
}

// Event is the runtime's internal event object (spec §4.G): a ref-counted,
// monotonically-advancing status plus its profiling trace. Every command
// enqueue produces exactly one.
type Event struct {
	refcount.Ref

	mu                 sync.Mutex
	cond               *sync.Cond
	status             Status
	queue              CommandDoneNotifier
	commandDescription string
	profile            *profiler.Trace
}

// New creates an event in the QUEUED state, owned by queue (which will be
// told via CommandDone once it reaches a terminal status) and describing
// commandDescription for diagnostics/trace dumps.
func New(queue CommandDoneNotifier, commandDescription string, profiled bool) *Event {
	e := &Event{
		Ref:                refcount.NewRef(),
		status:             Queued,
		queue:              queue,
		commandDescription: commandDescription,
		profile:            profiler.NewTrace(profiled),
	}
	e.cond = sync.NewCond(&e.mu)
	e.profile.Record(profiler.CommandEnqueued, -1)
	return e
}

// Status returns the current status.
func (e *Event) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// HasCompleted reports whether the event reached COMPLETE or an error.
func (e *Event) HasCompleted() bool {
	s := e.Status()
	return s == Complete || s.IsError()
}

// Profile returns the event's profiling trace.
func (e *Event) Profile() *profiler.Trace { return e.profile }

// CommandDescription names the command this event belongs to, for trace
// dumps and diagnostics.
func (e *Event) CommandDescription() string { return e.commandDescription }

// advance applies the strict monotonic rule from the original Signal(): a
// status update is accepted only if it is lower (further along the
// QUEUED->COMPLETE lifecycle, or an error) than the current one. Delayed,
// out-of-order signals are silently dropped rather than rejected as an
// error, matching the original's rationale that a logically-earlier signal
// can arrive late from a concurrent worker.
func (e *Event) advance(s Status) {
	e.mu.Lock()
	if e.status <= s {
		e.mu.Unlock()
		return
	}
	e.status = s
	terminal := s == Complete || s.IsError()
	e.mu.Unlock()

	e.cond.Broadcast()

	if terminal && e.queue != nil {
		e.queue.CommandDone(e)
	}
}

// MarkSubmitted advances the event to SUBMITTED.
func (e *Event) MarkSubmitted() {
	e.profile.Record(profiler.CommandSubmitted, -1)
	e.advance(Submitted)
}

// MarkRunning advances the event to RUNNING.
func (e *Event) MarkRunning() {
	e.profile.Record(profiler.CommandRunning, -1)
	e.advance(Running)
}

// MarkSubRunning records a sub-command (split NDRangeKernel, spec §4.E)
// entering RUNNING without itself advancing the overall event status.
func (e *Event) MarkSubRunning(subID int) {
	e.profile.Record(profiler.CommandRunning, subID)
}

// MarkSubCompleted records one sub-command's completion without advancing
// the overall event status; the caller advances to Complete once every
// sub-command has reported in.
func (e *Event) MarkSubCompleted(subID int) {
	e.profile.Record(profiler.CommandCompleted, subID)
}

// MarkCompleted advances the event to a terminal status: Complete, or a
// negative error code. Any other non-negative value is a caller bug and is
// ignored rather than corrupting the state machine.
func (e *Event) MarkCompleted(status Status) {
	if status != Complete && !status.IsError() {
		return
	}
	e.profile.Record(profiler.CommandCompleted, -1)
	e.advance(status)
}

// Wait blocks until the event reaches COMPLETE or an error, returning the
// terminal status.
func (e *Event) Wait() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.status != Complete && !e.status.IsError() {
		e.cond.Wait()
	}
	return e.status
}
