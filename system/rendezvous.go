package system

// Rendezvous is a one-shot, single-producer/single-consumer handoff used by
// the kernel build pipeline to wait for static constructors to run on a
// worker (spec §4.F step 4). The original FastRendevouz spun on a volatile
// flag; a buffered channel of capacity 1 gives the same wait-free signal
// path without busy-spinning a CPU.
type Rendezvous struct {
	ch chan struct{}
}

// NewRendezvous returns a Rendezvous ready for one Signal/Wait pair.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{ch: make(chan struct{}, 1)}
}

// Signal marks the rendezvous met. Safe to call at most once.
func (r *Rendezvous) Signal() {
	r.ch <- struct{}{}
}

// Wait blocks until Signal is called.
func (r *Rendezvous) Wait() {
	<-r.ch
}
