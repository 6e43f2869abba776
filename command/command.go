// Package command implements the Command object of spec §3/§4.C: the
// queueable unit of work — ReadBuffer, WriteBuffer, NDRangeKernel, and
// NativeKernel — built through single-use, validating builders.
package command

import (
	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/device"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/refcount"
	"github.com/opencrun-go/opencrun/util"
)

// Kind tags which payload a Command carries.
type Kind int

const (
	ReadBuffer Kind = iota
	WriteBuffer
	NDRangeKernel
	NativeKernel
)

func (k Kind) String() string {
	switch k {
	case ReadBuffer:
		return "read_buffer"
	case WriteBuffer:
		return "write_buffer"
	case NDRangeKernel:
		return "ndrange_kernel"
	case NativeKernel:
		return "native_kernel"
	default:
		return "unknown"
	}
}

// DeviceLimits is the narrow device surface NDRange/NativeKernel
// validation needs. device/cpu.Device satisfies this structurally, so
// command never imports device/cpu (device/cpu imports command to accept
// dispatched commands — importing it back here would close a cycle).
type DeviceLimits interface {
	Name() string
	Attributes() device.Attributes
}

// NativeFunc is a host-side function a NativeKernel command runs directly,
// outside any work-item execution model (spec §3 NativeKernel).
type NativeFunc func(args []interface{}) error

// Command is the tagged-variant queueable unit of work. Only the fields
// relevant to Kind are populated; the others are zero.
type Command struct {
	refcount.Ref

	kind Kind

	buffer   *memobj.Buffer
	hostData []byte
	offset   int64
	size     int64

	kern    *kernel.Kernel
	dimInfo *util.DimensionInfo
	device  DeviceLimits

	nativeFn   NativeFunc
	nativeArgs []interface{}

	waitList []*event.Event
	ev       *event.Event
}

// Kind returns the command's variant.
func (c *Command) Kind() Kind { return c.kind }

// WaitList returns the events this command must wait on before running.
func (c *Command) WaitList() []*event.Event {
	out := make([]*event.Event, len(c.waitList))
	copy(out, c.waitList)
	return out
}

// Event returns the event bound to this command by the queue that
// enqueued it, or nil if not yet enqueued.
func (c *Command) Event() *event.Event { return c.ev }

// BindEvent attaches ev to this command. Called once, by the queue, at
// enqueue time.
func (c *Command) BindEvent(ev *event.Event) { c.ev = ev }

// Kernel returns the bound kernel for an NDRangeKernel command.
func (c *Command) Kernel() *kernel.Kernel { return c.kern }

// DimensionInfo returns the NDRange shape for an NDRangeKernel command.
func (c *Command) DimensionInfo() *util.DimensionInfo { return c.dimInfo }

// Device returns the target device for an NDRangeKernel/NativeKernel
// command.
func (c *Command) Device() DeviceLimits { return c.device }

// NativeFunc and NativeArgs return a NativeKernel command's payload.
func (c *Command) NativeFunc() NativeFunc       { return c.nativeFn }
func (c *Command) NativeArgs() []interface{}    { return c.nativeArgs }

// Buffer, HostData, Offset, Size return a ReadBuffer/WriteBuffer
// command's payload.
func (c *Command) Buffer() *memobj.Buffer { return c.buffer }
func (c *Command) HostData() []byte       { return c.hostData }
func (c *Command) Offset() int64          { return c.offset }
func (c *Command) Size() int64            { return c.size }

// CanRun reports whether every event this command waits on has reached a
// terminal status — the in-order scheduler's run condition (spec §4.A,
// mirroring InOrderQueue::RunScheduler's `Cmd.CanRun()`).
func (c *Command) CanRun() bool {
	for _, ev := range c.waitList {
		if !ev.HasCompleted() {
			return false
		}
	}
	return true
}

func newCommand(kind Kind) *Command {
	return &Command{Ref: refcount.NewRef(), kind: kind}
}

var errNilDevice = errors.New("command: device must not be nil")
