package cpu

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/profiler"
	"github.com/opencrun-go/opencrun/util"
)

// stopDeviceCommand tells a worker to finish its current job then exit its
// loop (spec §4.D TearDown -> Stopped transition).
type stopDeviceCommand struct{}

func (stopDeviceCommand) run(w *Worker) {}

// readBufferCommand copies a device buffer's bytes out to a host slice.
type readBufferCommand struct {
	src    []byte
	dst    []byte
	offset int64
	size   int64
	ev     *event.Event
}

func (c readBufferCommand) run(w *Worker) {
	if c.ev != nil {
		c.ev.MarkRunning()
	}
	copy(c.dst, c.src[c.offset:c.offset+c.size])
	if c.ev != nil {
		c.ev.MarkCompleted(event.Complete)
	}
}

// writeBufferCommand copies host bytes into a device buffer.
type writeBufferCommand struct {
	dst    []byte
	src    []byte
	offset int64
	size   int64
	ev     *event.Event
}

func (c writeBufferCommand) run(w *Worker) {
	if c.ev != nil {
		c.ev.MarkRunning()
	}
	copy(c.dst[c.offset:c.offset+c.size], c.src)
	if c.ev != nil {
		c.ev.MarkCompleted(event.Complete)
	}
}

// nativeKernelCommand runs a plain host function outside the work-item
// execution model (spec §3 NativeKernel).
type nativeKernelCommand struct {
	fn   func([]interface{}) error
	args []interface{}
	ev   *event.Event
}

func (c nativeKernelCommand) run(w *Worker) {
	if c.ev != nil {
		c.ev.MarkRunning()
	}
	err := c.fn(c.args)
	if c.ev != nil {
		if err != nil {
			c.ev.MarkCompleted(event.Status(-1))
		} else {
			c.ev.MarkCompleted(event.Complete)
		}
	}
}

// staticConstructorsCommand runs once per program build, signaling done
// via a rendezvous (spec §4.F step 4).
type staticConstructorsCommand struct {
	done func()
}

func (c staticConstructorsCommand) run(w *Worker) {
	if c.done != nil {
		c.done()
	}
}

// ndRangeBlockCommand runs one work-group's worth of work-items through a
// compiled kernel entry and reports completion to a shared ResultRecorder
// (spec §4.E, §4.F step 5: an NDRange dispatch is split into one
// NDRangeKernelBlock command per work-group, round-robined across
// multiprocessors).
type ndRangeBlockCommand struct {
	fn       workitem.KernelFunc
	args     workitem.Args
	info     *util.DimensionInfo
	group    []int
	groupIdx int
	recorder *ResultRecorder
	trace    *profiler.Trace

	// sem bounds how many work-groups run concurrently across the whole
	// device: each one fans out into len(group) of its own goroutines via
	// StackBank, so round-robining blocks across multiprocessors alone
	// doesn't cap the OS-visible concurrency a burst of large work-groups
	// produces.
	sem *semaphore.Weighted
}

func (c ndRangeBlockCommand) run(w *Worker) {
	if c.sem != nil {
		_ = c.sem.Acquire(context.Background(), 1)
		defer c.sem.Release(1)
	}

	if c.trace != nil {
		c.trace.Record(profiler.CommandRunning, c.groupIdx)
	}
	if c.recorder != nil {
		c.recorder.MarkStarted()
	}

	stub := workitem.GroupParallelStub{Fn: c.fn, Args: c.args}
	bank := workitem.NewStackBank()
	err := stub.Run(bank, c.info, c.group)

	if c.trace != nil {
		c.trace.Record(profiler.CommandCompleted, c.groupIdx)
	}
	if c.recorder != nil {
		c.recorder.Done(err)
	}
}
