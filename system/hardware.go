package system

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// HardwareCPU is a single schedulable core, the leaf of the topology tree
// (mirrors original_source's HardwareCPU).
type HardwareCPU struct {
	CoreID int
}

// HardwareCache groups the cores that share one last-level cache (mirrors
// HardwareCache with Kind=Unified, the only kind the CPU device cares
// about: it is the unit a Multiprocessor is built from).
type HardwareCache struct {
	Level    int
	SizeByte int64
	CPUs     []HardwareCPU
}

// HardwareNode is a NUMA node: a private memory pool plus the LLC groups
// that partition its cores (mirrors HardwareNode).
type HardwareNode struct {
	NodeID     int
	MemoryByte int64
	LLCs       []HardwareCache
}

// Topology is the tree Hardware discovery hands to the CPU device: one
// Multiprocessor is built per HardwareCache entry across all nodes.
type Topology struct {
	Nodes        []HardwareNode
	PageSize     int
	CacheLine    int
}

// defaultLLCGroupSize bounds how many cores share a synthesized
// Multiprocessor when the host doesn't expose real cache-topology data.
// Real deployments obtain Topology from the hardware-topology parser
// (spec §1, out of scope for this core); this is the standalone stand-in.
const defaultLLCGroupSize = 4

// DiscoverTopology builds a Topology from what the Go runtime and the OS
// will tell us without parsing /sys/devices/system — real NUMA/cache
// geometry is produced by the external hardware-topology parser the spec
// treats as an opaque collaborator. This single-node, grouped-by-four
// approximation is enough to exercise multiple Multiprocessors end to end.
func DiscoverTopology() Topology {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}

	var llcs []HardwareCache
	for start := 0; start < n; start += defaultLLCGroupSize {
		end := start + defaultLLCGroupSize
		if end > n {
			end = n
		}
		cache := HardwareCache{Level: 3, SizeByte: 8 << 20}
		for id := start; id < end; id++ {
			cache.CPUs = append(cache.CPUs, HardwareCPU{CoreID: id})
		}
		llcs = append(llcs, cache)
	}

	return Topology{
		Nodes: []HardwareNode{{
			NodeID:     0,
			MemoryByte: 0,
			LLCs:       llcs,
		}},
		PageSize:  GetPageSize(),
		CacheLine: GetCacheLineSize(),
	}
}

// GetPageSize returns the host page size.
func GetPageSize() int {
	return unix.Getpagesize()
}

// GetCacheLineSize returns the assumed cache-line size used for alignment
// in the global memory arena. Go has no portable syscall for this; 64 bytes
// is correct for every x86-64/ARM64 target the module runs on.
func GetCacheLineSize() int {
	return 64
}

// PinCurrentThreadTo sets the calling OS thread's CPU affinity mask to the
// given core — the pin half of the lock-then-pin pattern the reference pack
// uses to bind an io_uring queue loop to one core. It does not lock the
// goroutine to its thread: runtime.LockOSThread must have already been
// called by the caller's goroutine.
func PinCurrentThreadTo(coreID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	return unix.SchedSetaffinity(0, &set)
}
