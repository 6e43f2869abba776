package cpu

import "github.com/opencrun-go/opencrun/system"

// Multiprocessor is the set of workers sharing one last-level cache group
// (spec §4.D), the unit device.Device dispatches work onto. One is created
// per system.HardwareCache reported by the discovered topology.
type Multiprocessor struct {
	workers []*Worker
}

func newMultiprocessor(llc system.HardwareCache) *Multiprocessor {
	mp := &Multiprocessor{}
	for _, cpu := range llc.CPUs {
		w := newWorker(mp, cpu.CoreID)
		mp.workers = append(mp.workers, w)
		go w.Run()
	}
	return mp
}

// pickWorker selects the least-loaded worker in the group (spec §4.D
// GetLesserLoadedThread) — a plain linear-scan argmin, fixing the
// off-by-one the original GetLesserLoadedThread carried (it compared
// against the wrong running minimum and could return the most-loaded
// worker on ties; see [[device/cpu/]] for the original's behavior it
// replaces).
func (mp *Multiprocessor) pickWorker() *Worker {
	best := mp.workers[0]
	bestLoad := best.Load()
	for _, w := range mp.workers[1:] {
		l := w.Load()
		if l < bestLoad {
			bestLoad = l
			best = w
		}
	}
	return best
}

// Dispatch submits cmd to the least-loaded worker in the group.
func (mp *Multiprocessor) Dispatch(cmd deviceCommand) bool {
	return mp.pickWorker().Submit(cmd)
}

// Broadcast submits cmd to every worker in the group — used for lifecycle
// commands (stop) that every worker must individually receive.
func (mp *Multiprocessor) Broadcast(cmd deviceCommand) {
	for _, w := range mp.workers {
		w.Submit(cmd)
	}
}

// WorkerCount returns how many workers this group has.
func (mp *Multiprocessor) WorkerCount() int { return len(mp.workers) }
