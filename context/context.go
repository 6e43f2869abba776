// Package context implements the Context object of spec §3: the factory
// for command queues and memory objects, grouping one or more devices and
// a user error callback.
package context

import (
	"fmt"
	"os"

	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/refcount"
	"github.com/opencrun-go/opencrun/system"
	"github.com/sirupsen/logrus"
)

// ErrCallback receives a diagnostic message — the Go equivalent of the C
// API's `CL_CALLBACK void(*)(const char*, const void*, size_t, void*)`,
// trimmed to the one argument any caller ever reads.
type ErrCallback func(msg string)

// Context groups devices and owns the diagnostic callback (spec §3). It
// holds no command queues or memory objects directly: it is their factory,
// and its own lifetime is governed by refcount.Ref like every other fabric
// object.
type Context struct {
	refcount.Ref

	devices  []*cpu.Device
	callback ErrCallback
	log      *logrus.Entry
}

// New groups devices under a context. callback may be nil, in which case
// diagnostics are only logged.
func New(devices []*cpu.Device, callback ErrCallback) *Context {
	devs := make([]*cpu.Device, len(devices))
	copy(devs, devices)
	return &Context{
		Ref:      refcount.NewRef(),
		devices:  devs,
		callback: callback,
		log:      logrus.WithField("component", "context"),
	}
}

// Devices returns the context's device list.
func (c *Context) Devices() []*cpu.Device {
	out := make([]*cpu.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// IsAssociatedWith reports whether dev is one of this context's devices.
func (c *Context) IsAssociatedWith(dev *cpu.Device) bool {
	for _, d := range c.devices {
		if d == dev {
			return true
		}
	}
	return false
}

// ReportDiagnostic delivers msg to the user callback, if any, and always
// logs it — OPENCRUN_INTERNAL_DIAGNOSTIC additionally mirrors it to stderr
// (spec §6).
func (c *Context) ReportDiagnostic(msg string) {
	c.log.Warn(msg)
	if system.InternalDiagnosticEnabled() {
		fmt.Fprintln(os.Stderr, msg)
	}
	if c.callback != nil {
		c.callback(msg)
	}
}

// CreateHostBuffer builds a CL_MEM_USE_HOST_PTR buffer (spec §3
// HostBuffer): not materialized on any device, the value lives entirely at
// storage.
func (c *Context) CreateHostBuffer(size int64, storage []byte, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return c.build(size, prot, func(b *memobj.Builder) *memobj.Builder {
		return b.SetUseHostMemory(storage)
	})
}

// CreateHostAccessibleBuffer builds a host-accessible buffer with a device
// mirror (spec §3 HostAccessibleBuffer).
func (c *Context) CreateHostAccessibleBuffer(size int64, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return c.build(size, prot, func(b *memobj.Builder) *memobj.Builder { return b })
}

// CreateDeviceBuffer builds a device-local buffer (spec §3 DeviceBuffer),
// optionally seeded from src.
func (c *Context) CreateDeviceBuffer(size int64, src []byte, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return c.build(size, prot, func(b *memobj.Builder) *memobj.Builder {
		if src != nil {
			return b.SetCopyHostMemory(src)
		}
		return b
	})
}

func (c *Context) build(size int64, prot memobj.AccessProtection, configure func(*memobj.Builder) *memobj.Builder) (*memobj.Buffer, error) {
	for _, dev := range c.devices {
		if size > dev.Attributes().MaxMemoryAllocSize {
			err := errTooLarge(dev.Attributes().Name, size)
			c.ReportDiagnostic(err.Error())
			return nil, err
		}
	}

	builder := configure(memobj.NewBuilder(c, size))
	switch prot {
	case memobj.WriteOnly:
		builder = builder.SetWriteOnly()
	case memobj.ReadOnly:
		builder = builder.SetReadOnly()
	default:
		builder = builder.SetReadWrite()
	}

	buf, err := builder.Create()
	if err != nil {
		c.ReportDiagnostic(err.Error())
		return nil, err
	}

	// HostBuffer never materializes on a device: its value lives entirely
	// at the caller's storage (spec §3 HostBuffer).
	if buf.Kind == memobj.HostBuffer {
		return buf, nil
	}
	for _, dev := range c.devices {
		if err := dev.GlobalMemory().Alloc(buf); err != nil {
			c.ReportDiagnostic(err.Error())
			return nil, err
		}
	}
	return buf, nil
}

// DestroyBuffer releases buf's device-side allocation on every device it
// was materialized on. Called once a buffer's reference count reaches
// zero.
func (c *Context) DestroyBuffer(buf *memobj.Buffer) {
	for _, dev := range c.devices {
		dev.GlobalMemory().Free(buf)
	}
}
