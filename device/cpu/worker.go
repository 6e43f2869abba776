package cpu

import (
	"runtime"
	"sync/atomic"

	"github.com/opencrun-go/opencrun/system"
)

// workingMode is a Worker's lifecycle state (spec §4.D "FullyOperational /
// TearDown / Stopped").
type workingMode int32

const (
	fullyOperational workingMode = iota
	tearDown
	stopped
)

// deviceCommand is anything a Worker's loop can execute. The concrete
// variants live in commands.go.
type deviceCommand interface {
	run(w *Worker)
}

// Worker is one hardware thread's monitor-protected command deque (spec
// §4.D), mirroring the original CPUThread: a dedicated goroutine drains its
// deque in FIFO order, blocking on the shared monitor when empty.
type Worker struct {
	mp     *Multiprocessor
	coreID int

	mon   system.Monitor
	deque []deviceCommand

	mode int32 // workingMode, written under mon by Submit, read atomically
}

func newWorker(mp *Multiprocessor, coreID int) *Worker {
	return &Worker{mp: mp, coreID: coreID}
}

// Submit appends cmd to the deque and wakes the worker. Returns false if
// the worker is tearing down or stopped and cannot accept more work.
// Accepting a stopDeviceCommand moves the worker to TearDown: the commands
// already queued still run, nothing new is accepted.
func (w *Worker) Submit(cmd deviceCommand) bool {
	w.mon.Enter()
	defer w.mon.Exit()
	if workingMode(atomic.LoadInt32(&w.mode)) != fullyOperational {
		return false
	}
	w.deque = append(w.deque, cmd)
	if _, isStop := cmd.(stopDeviceCommand); isStop {
		atomic.StoreInt32(&w.mode, int32(tearDown))
	}
	w.mon.Signal()
	return true
}

// Load returns the current deque depth, the "lesser loaded" selector's
// input (spec §4.D GetLesserLoadedThread).
func (w *Worker) Load() int {
	w.mon.Enter()
	n := len(w.deque)
	w.mon.Exit()
	return n
}

// Run is the worker's main loop; it must be started in its own goroutine.
// It returns once a stopDeviceCommand has been processed.
func (w *Worker) Run() {
	runtime.LockOSThread()
	if err := system.PinCurrentThreadTo(w.coreID); err != nil {
		// Affinity is a placement hint, not a correctness requirement; a
		// container or restricted cgroup may reject it.
		_ = err
	}

	for {
		w.mon.Enter()
		for len(w.deque) == 0 {
			w.mon.Wait()
		}
		cmd := w.deque[0]
		w.deque = w.deque[1:]
		w.mon.Exit()

		if _, isStop := cmd.(stopDeviceCommand); isStop {
			atomic.StoreInt32(&w.mode, int32(stopped))
			cmd.run(w)
			return
		}

		cmd.run(w)
	}
}
