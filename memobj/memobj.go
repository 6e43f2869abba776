// Package memobj implements the MemoryObj variants of spec §3: HostBuffer,
// HostAccessibleBuffer, and DeviceBuffer, plus the builder that validates
// and constructs them.
package memobj

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/refcount"
)

// AccessProtection mirrors CL_MEM_{READ_WRITE,WRITE_ONLY,READ_ONLY}; the
// three values are mutually exclusive (spec §3, §6).
type AccessProtection int

const (
	InvalidProtection AccessProtection = iota
	ReadWrite
	WriteOnly
	ReadOnly
)

// Kind distinguishes the three buffer variants (spec §3).
type Kind int

const (
	HostBuffer Kind = iota
	HostAccessibleBuffer
	DeviceBuffer
)

func (k Kind) String() string {
	switch k {
	case HostBuffer:
		return "host_buffer"
	case HostAccessibleBuffer:
		return "host_accessible_buffer"
	case DeviceBuffer:
		return "device_buffer"
	default:
		return "unknown"
	}
}

// ContextView is the narrow slice of context.Context a MemoryObj needs:
// diagnostics reporting on destruction-time failures. Kept as an interface
// here (rather than importing the context package) so memobj stays a leaf
// package; context.Context satisfies this structurally.
type ContextView interface {
	ReportDiagnostic(msg string)
}

// MemoryObj is the common header every buffer variant embeds (spec §3): a
// ref count, its kind, size, access protection, owning context, and a
// stable id for log/profiling correlation.
type MemoryObj struct {
	refcount.Ref

	ID         uuid.UUID
	Kind       Kind
	Size       int64
	Protection AccessProtection
	Ctx        ContextView

	// deviceAddr is populated by device/cpu's GlobalMemory table once the
	// buffer has been materialized; zero value means "not yet allocated".
	deviceAddr uintptr
	allocated  bool
}

// Buffer is any of the three MemoryObj variants — a common type so
// commands and kernel argument slots can hold one without a type switch
// at every call site beyond the places that actually care which kind it
// is.
type Buffer struct {
	MemoryObj

	// HostStorage holds the buffer's bytes. For HostBuffer
	// (CL_MEM_USE_HOST_PTR) it is the caller's storage, never materialized
	// on device; for the other kinds device/cpu.GlobalMemory.Alloc creates
	// it (seeded from InitSource) and every device read, write and kernel
	// argument uses it.
	HostStorage []byte

	// InitSource is set for DeviceBuffer when built with CL_MEM_COPY_HOST_PTR:
	// the device allocation is seeded from this data at alloc time.
	InitSource []byte
}

// SetDeviceAddress records where the global memory arena placed this
// buffer. Called by device/cpu.GlobalMemory.Alloc.
func (b *Buffer) SetDeviceAddress(addr uintptr) {
	b.deviceAddr = addr
	b.allocated = true
}

// DeviceAddress returns the arena address and whether one has been
// assigned yet.
func (b *Buffer) DeviceAddress() (uintptr, bool) {
	return b.deviceAddr, b.allocated
}

// ClearDeviceAddress marks the buffer as no longer resident, called by
// GlobalMemory.Free.
func (b *Buffer) ClearDeviceAddress() {
	b.deviceAddr = 0
	b.allocated = false
}

// Builder validates and constructs a Buffer (spec §4.C: "created by a
// builder validating size <= every device's max-alloc and consistent
// flags"; the max-alloc cross-check against every context device lives in
// context.Context.CreateXxxBuffer, which calls this builder once per
// candidate kind after doing that check).
type Builder struct {
	ctx  ContextView
	size int64

	useHostMemory  bool
	allocHostMemory bool
	copyHostMemory bool
	hostPtr        []byte

	protection AccessProtection

	err error
}

// NewBuilder starts building a Size-byte buffer owned by ctx.
func NewBuilder(ctx ContextView, size int64) *Builder {
	return &Builder{ctx: ctx, size: size, protection: ReadWrite}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetUseHostMemory marks the buffer as CL_MEM_USE_HOST_PTR, backed
// directly by storage (never copied).
func (b *Builder) SetUseHostMemory(storage []byte) *Builder {
	if b.allocHostMemory || b.copyHostMemory {
		return b.fail(errors.New("storage flags are mutually exclusive"))
	}
	b.useHostMemory = true
	b.hostPtr = storage
	return b
}

// SetAllocHostMemory marks the buffer as CL_MEM_ALLOC_HOST_PTR.
func (b *Builder) SetAllocHostMemory() *Builder {
	if b.useHostMemory || b.copyHostMemory {
		return b.fail(errors.New("storage flags are mutually exclusive"))
	}
	b.allocHostMemory = true
	return b
}

// SetCopyHostMemory marks the buffer as CL_MEM_COPY_HOST_PTR, seeded from
// src at allocation time.
func (b *Builder) SetCopyHostMemory(src []byte) *Builder {
	if b.useHostMemory || b.allocHostMemory {
		return b.fail(errors.New("storage flags are mutually exclusive"))
	}
	b.copyHostMemory = true
	b.hostPtr = src
	return b
}

// SetReadWrite / SetWriteOnly / SetReadOnly set the (mutually exclusive)
// access protection.
func (b *Builder) SetReadWrite() *Builder { return b.setProtection(ReadWrite) }
func (b *Builder) SetWriteOnly() *Builder { return b.setProtection(WriteOnly) }
func (b *Builder) SetReadOnly() *Builder  { return b.setProtection(ReadOnly) }

func (b *Builder) setProtection(p AccessProtection) *Builder {
	if b.protection != ReadWrite && b.protection != p {
		return b.fail(errors.New("access protection flags are mutually exclusive"))
	}
	b.protection = p
	return b
}

// Create validates the accumulated flags and returns the appropriate
// Buffer variant, or the accumulated error.
func (b *Builder) Create() (*Buffer, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.size <= 0 {
		return nil, errors.New("buffer size must be positive")
	}
	if b.useHostMemory && len(b.hostPtr) == 0 {
		return nil, errors.New("USE_HOST_PTR requires non-nil storage")
	}

	var kind Kind
	switch {
	case b.useHostMemory:
		kind = HostBuffer
	case b.copyHostMemory:
		kind = DeviceBuffer
	default:
		kind = HostAccessibleBuffer
	}

	buf := &Buffer{
		MemoryObj: MemoryObj{
			Ref:        refcount.NewRef(),
			ID:         uuid.New(),
			Kind:       kind,
			Size:       b.size,
			Protection: b.protection,
			Ctx:        b.ctx,
		},
	}
	if kind == HostBuffer {
		buf.HostStorage = b.hostPtr
	}
	if kind == DeviceBuffer && b.copyHostMemory {
		buf.InitSource = b.hostPtr
	}
	return buf, nil
}
