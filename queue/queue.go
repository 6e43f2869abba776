// Package queue implements the CommandQueue object of spec §3/§4.A: the
// per-device, per-context ordering discipline commands are enqueued
// through.
package queue

import (
	"github.com/opencrun-go/opencrun/command"
	"github.com/opencrun-go/opencrun/context"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/profiler"
	"github.com/opencrun-go/opencrun/system"
)

// scheduler is the in-order/out-of-order strategy difference (spec §4.A):
// RunScheduler reports whether there may be more runnable work
// immediately, the same signal Flush loops on.
type scheduler interface {
	runScheduler(q *CommandQueue) bool
}

// CommandQueue sequences commands for one device within one context (spec
// §3). It owns the still-live command/event pairs and drives them through
// a pluggable scheduler (in-order or out-of-order).
type CommandQueue struct {
	ctx   *context.Context
	dev   *cpu.Device
	sched scheduler

	profiled bool
	metrics  *profiler.Metrics

	mon      system.Monitor
	pending  []*command.Command // in-order backlog, front is oldest
	inflight map[*event.Event]*command.Command
	running  *event.Event // in-order only: command currently executing on the device
}

// NewInOrder creates a queue that runs commands strictly in enqueue order,
// each only once its predecessors and its own wait list have completed
// (spec §4.A InOrderQueue).
func NewInOrder(ctx *context.Context, dev *cpu.Device, profiled bool, metrics *profiler.Metrics) *CommandQueue {
	return newQueue(ctx, dev, profiled, metrics, inOrderScheduler{})
}

// NewOutOfOrder creates a queue whose scheduler never runs anything on its
// own (spec §4.A OutOfOrderQueue: reordering across independent commands is
// explicitly out of scope for this core; RunScheduler is a documented
// stub that always returns false, same as the original).
func NewOutOfOrder(ctx *context.Context, dev *cpu.Device, profiled bool, metrics *profiler.Metrics) *CommandQueue {
	return newQueue(ctx, dev, profiled, metrics, outOfOrderScheduler{})
}

func newQueue(ctx *context.Context, dev *cpu.Device, profiled bool, metrics *profiler.Metrics, sched scheduler) *CommandQueue {
	return &CommandQueue{
		ctx:      ctx,
		dev:      dev,
		sched:    sched,
		profiled: profiled,
		metrics:  metrics,
		inflight: make(map[*event.Event]*command.Command),
	}
}

// Enqueue binds a fresh event to cmd, adds it to the backlog, and drives
// the scheduler — mirroring CommandQueue::Enqueue. The returned event is
// retained once on the caller's behalf; the caller must Release it.
func (q *CommandQueue) Enqueue(cmd *command.Command) (*event.Event, error) {
	// Wait-list events are not checked against this queue's context: an
	// *event.Event carries no owning context, and neither this package nor
	// the cl facade performs a cross-context (CL_INVALID_CONTEXT) check.
	ev := event.New(q, cmd.Kind().String(), q.profiled)
	cmd.BindEvent(ev)

	q.mon.Enter()
	q.pending = append(q.pending, cmd)
	q.inflight[ev] = cmd
	q.mon.Exit()

	ev.Retain()
	q.runScheduler()

	return ev, nil
}

// CommandDone implements event.CommandDoneNotifier: called once an event
// reaches a terminal status, it re-drives the scheduler and drops the
// queue's bookkeeping entry, mirroring CommandQueue::CommandDone.
func (q *CommandQueue) CommandDone(ev *event.Event) {
	q.runScheduler()

	q.mon.Enter()
	delete(q.inflight, ev)
	q.mon.Exit()

	ev.Release()

	if q.metrics != nil {
		q.metrics.ObserveTrace(ev.Profile())
	}
}

// Flush drives the scheduler until it reports no more immediately
// runnable work (spec §4.A: `while(RunScheduler()) {}`).
func (q *CommandQueue) Flush() {
	for q.runScheduler() {
	}
}

// Finish flushes the queue, then blocks until every still-inflight event
// has reached a terminal status (spec §4.A, testable property #8:
// idempotent, safe to call concurrently with further enqueues).
func (q *CommandQueue) Finish() {
	q.Flush()

	q.mon.Enter()
	toWait := make([]*event.Event, 0, len(q.inflight))
	for ev := range q.inflight {
		toWait = append(toWait, ev)
	}
	q.mon.Exit()

	for _, ev := range toWait {
		ev.Wait()
	}
}

// Depth returns the current backlog length, surfaced via
// profiler.Metrics.SetQueueDepth by callers that want to export it.
func (q *CommandQueue) Depth() int {
	q.mon.Enter()
	defer q.mon.Exit()
	return len(q.pending)
}

// Device returns the queue's target device.
func (q *CommandQueue) Device() *cpu.Device { return q.dev }

// Context returns the queue's owning context.
func (q *CommandQueue) Context() *context.Context { return q.ctx }

func (q *CommandQueue) runScheduler() bool {
	return q.sched.runScheduler(q)
}

// inOrderScheduler mirrors InOrderQueue::RunScheduler: only ever look at
// the backlog's front, and only pop it once it can run and the device
// accepted it. A real in-order command processor is a single execution
// unit, so this also holds the front back until whatever is currently
// running on the device has reached a terminal status — without that, a
// device backed by more than one worker could run two "in-order" commands
// concurrently on different workers and let completion order race ahead
// of enqueue order.
type inOrderScheduler struct{}

func (inOrderScheduler) runScheduler(q *CommandQueue) bool {
	q.mon.Enter()
	defer q.mon.Exit()

	if q.running != nil {
		if !q.running.HasCompleted() {
			return false
		}
		q.running = nil
	}

	if len(q.pending) == 0 {
		return false
	}

	cmd := q.pending[0]
	if cmd.CanRun() && q.dev.Submit(cmd) {
		q.pending = q.pending[1:]
		q.running = cmd.Event()
	}
	return len(q.pending) > 0
}

// outOfOrderScheduler mirrors OutOfOrderQueue::RunScheduler: reordering
// across independent backlog entries is out of scope for this core, so
// this always reports nothing runnable; commands still complete once
// submitted, they are just never auto-dispatched out of enqueue order.
type outOfOrderScheduler struct{}

func (outOfOrderScheduler) runScheduler(q *CommandQueue) bool { return false }
