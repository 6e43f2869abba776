package cpu

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/memobj"
)

// allocation records one buffer's placement in the arena.
type allocation struct {
	addr uintptr
	size int64
}

// GlobalMemory is the device's address-space accounting arena (spec §4.B):
// it hands out cache-line-aligned addresses and tracks available capacity,
// but does not itself back buffers with real storage — a Buffer's bytes
// live in its own HostStorage/InitSource fields (the Go memory model gives
// every buffer its own garbage-collected backing array already, so this
// arena's only job is the address/accounting bookkeeping the original's
// manual heap needed, not bytes-on-bytes emulation of a C heap).
type GlobalMemory struct {
	mu        sync.Mutex
	total     int64
	available int64
	cacheLine int64
	next      uintptr
	table     map[*memobj.Buffer]allocation
}

// NewGlobalMemory creates an arena of the given total capacity.
func NewGlobalMemory(totalBytes int64, cacheLine int) *GlobalMemory {
	if cacheLine <= 0 {
		cacheLine = 64
	}
	return &GlobalMemory{
		total:     totalBytes,
		available: totalBytes,
		cacheLine: int64(cacheLine),
		next:      uintptr(cacheLine), // never hand out address zero: it doubles as "unallocated"
		table:     make(map[*memobj.Buffer]allocation),
	}
}

func alignUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// Alloc reserves space for buf, assigning it a device address (spec §4.B
// Alloc). Fails without side effects if the arena has insufficient
// available capacity.
func (g *GlobalMemory) Alloc(buf *memobj.Buffer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.table[buf]; ok {
		return errors.New("global memory: buffer already allocated")
	}

	size := alignUp(buf.Size, g.cacheLine)
	if size > g.available {
		return errors.Errorf("global memory: insufficient capacity (need %d, have %d)", size, g.available)
	}

	addr := g.next
	g.next += uintptr(size)
	g.available -= size
	g.table[buf] = allocation{addr: addr, size: size}
	buf.SetDeviceAddress(addr)

	// This arena only tracks address/accounting; the buffer's own
	// HostStorage is the byte container every read/write/kernel-argument
	// path actually touches, so seed it here once materialized.
	if buf.HostStorage == nil {
		buf.HostStorage = make([]byte, buf.Size)
		if buf.InitSource != nil {
			copy(buf.HostStorage, buf.InitSource)
		}
	}
	return nil
}

// Free releases buf's reservation, if any, restoring the available
// capacity (spec §4.B Free). A no-op for buffers never allocated on this
// arena.
func (g *GlobalMemory) Free(buf *memobj.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.table[buf]
	if !ok {
		return
	}
	delete(g.table, buf)
	g.available += rec.size
	buf.ClearDeviceAddress()
}

// AvailableBytes returns the arena's current free capacity, exercised by
// testable property #7 (allocation accounting).
func (g *GlobalMemory) AvailableBytes() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// TotalBytes returns the arena's fixed total capacity.
func (g *GlobalMemory) TotalBytes() int64 {
	return g.total
}

// Snapshot returns a full copy of the live buffer-to-address mapping (spec
// §4.B snapshot()), used by NativeKernel dispatch to resolve buffer
// pointers without holding the arena lock for the duration of the call.
func (g *GlobalMemory) Snapshot() map[*memobj.Buffer]uintptr {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[*memobj.Buffer]uintptr, len(g.table))
	for buf, rec := range g.table {
		out[buf] = rec.addr
	}
	return out
}
