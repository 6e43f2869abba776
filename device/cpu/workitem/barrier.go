// Package workitem implements the per-work-group execution ABI described in
// spec §4.F: the "execution stack bank" that runs every work-item of a
// group and cooperatively rotates them at each barrier.
//
// The spec calls the stack-swap primitive "the one unavoidable bit of
// machine-specific code" and asks implementers to isolate it behind a
// stack_bank capability (reset/run/switch_to_next/dump). Go has no portable
// way to hand-roll assembly stack switching, but it doesn't need one: a
// goroutine per work-item plus a cyclic barrier gives the same
// happens-before guarantee a barrier requires, without leaving the
// language. StackBank (stackbank.go) is that substitution — StackBank.Run
// starts the group's goroutines and joins them back together the way the
// original's run() drained the stack bank, and the Barrier type is
// switch_to_next (every work-item "yields" to its siblings at the barrier
// point).
package workitem

import "sync"

// Barrier is a reusable cyclic barrier for exactly n participants,
// equivalent in effect to the original's switch_work_item(): every
// participant blocks until all n have arrived, then all are released
// together. Safe for a barrier to be crossed multiple times by the same n
// goroutines (one kernel body may call Wait more than once).
type Barrier struct {
	n          int
	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int
}

// NewBarrier returns a Barrier for n participants. n must be >= 1.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the calling goroutine until all n participants have called
// Wait, then releases all of them together.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}
