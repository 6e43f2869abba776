// Package device holds the device-attribute vocabulary shared by every
// device-aware package (spec §3 Device). The only device specialization in
// this module is the CPU device (device/cpu); this package exists so that
// attribute types and execution-capability flags don't have to be defined
// inside device/cpu and re-imported everywhere a capability check is made.
package device

// ExecutionCapability mirrors CL_DEVICE_EXECUTION_CAPABILITIES bits.
type ExecutionCapability uint

const (
	CanExecKernel ExecutionCapability = 1 << iota
	CanExecNativeKernel
)

// QueueProperty mirrors the CL_QUEUE_* property bits a device advertises as
// supported.
type QueueProperty uint

const (
	OutOfOrderExecMode QueueProperty = 1 << iota
	ProfilingEnabled
)

// Attributes is the OpenCL-visible numeric attribute set of a device (spec
// §3), trimmed to the fields the execution core actually consults — the
// full ~40-field CL_DEVICE_* table in the original is mostly inert data
// this core never branches on.
type Attributes struct {
	Name   string
	Vendor string

	MaxComputeUnits         int
	MaxWorkItemDimensions   int
	MaxWorkItemSizes        []int
	MaxWorkGroupSize        int
	PreferredWorkGroupSizeMultiple int

	GlobalMemorySize   int64
	GlobalCacheLineSize int
	LocalMemorySize    int64
	MaxMemoryAllocSize int64

	SizeTypeMax uint64

	ExecutionCapabilities ExecutionCapability
	QueueProperties       QueueProperty

	CompilerAvailable bool
}

// SupportsNativeKernels reports whether CanExecNativeKernel is set.
func (a Attributes) SupportsNativeKernels() bool {
	return a.ExecutionCapabilities&CanExecNativeKernel != 0
}

// DefaultCPUAttributes returns the attribute set device/cpu.New populates a
// device with absent an explicit override — one multiprocessor's worth of
// compute units per LLC group discovered by system.DiscoverTopology, a
// generous work-group ceiling, and both kernel execution capabilities (the
// CPU device is the only backend and must run both NDRange and native
// kernels per spec §3).
func DefaultCPUAttributes(computeUnits int, globalMemoryBytes int64, cacheLine int) Attributes {
	return Attributes{
		Name:                  "opencrun CPU",
		Vendor:                "opencrun",
		MaxComputeUnits:       computeUnits,
		MaxWorkItemDimensions: 3,
		MaxWorkItemSizes:      []int{1 << 20, 1 << 20, 1 << 20},
		MaxWorkGroupSize:      1 << 16,
		PreferredWorkGroupSizeMultiple: 1,
		GlobalMemorySize:      globalMemoryBytes,
		GlobalCacheLineSize:   cacheLine,
		LocalMemorySize:       32 * 1024,
		MaxMemoryAllocSize:    globalMemoryBytes / 4,
		SizeTypeMax:           (uint64(1) << 32) - 1,
		ExecutionCapabilities: CanExecKernel | CanExecNativeKernel,
		QueueProperties:       OutOfOrderExecMode | ProfilingEnabled,
		CompilerAvailable:     true,
	}
}
