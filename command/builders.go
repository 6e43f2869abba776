package command

import (
	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/device"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/util"
)

// ReadBufferBuilder builds a ReadBuffer command (spec §4.C).
type ReadBufferBuilder struct {
	cmd *Command
	err error
}

// NewReadBuffer starts building a command copying [offset,offset+size) of
// buf into dst.
func NewReadBuffer(buf *memobj.Buffer, dst []byte, offset, size int64) *ReadBufferBuilder {
	b := &ReadBufferBuilder{cmd: newCommand(ReadBuffer)}
	if buf == nil {
		b.err = errors.New("read_buffer: buffer must not be nil")
		return b
	}
	if offset < 0 || size <= 0 || offset+size > buf.Size {
		b.err = errors.Errorf("read_buffer: range [%d,%d) out of bounds for buffer of size %d", offset, offset+size, buf.Size)
		return b
	}
	if int64(len(dst)) < size {
		b.err = errors.New("read_buffer: destination shorter than requested size")
		return b
	}
	b.cmd.buffer = buf
	b.cmd.hostData = dst
	b.cmd.offset = offset
	b.cmd.size = size
	return b
}

// WaitFor adds events the command must wait on before running.
func (b *ReadBufferBuilder) WaitFor(evs ...*event.Event) *ReadBufferBuilder {
	b.cmd.waitList = append(b.cmd.waitList, evs...)
	return b
}

// Build validates and returns the finished command.
func (b *ReadBufferBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmd, nil
}

// WriteBufferBuilder builds a WriteBuffer command (spec §4.C).
type WriteBufferBuilder struct {
	cmd *Command
	err error
}

// NewWriteBuffer starts building a command copying src into
// [offset,offset+size) of buf.
func NewWriteBuffer(buf *memobj.Buffer, src []byte, offset, size int64) *WriteBufferBuilder {
	b := &WriteBufferBuilder{cmd: newCommand(WriteBuffer)}
	if buf == nil {
		b.err = errors.New("write_buffer: buffer must not be nil")
		return b
	}
	if offset < 0 || size <= 0 || offset+size > buf.Size {
		b.err = errors.Errorf("write_buffer: range [%d,%d) out of bounds for buffer of size %d", offset, offset+size, buf.Size)
		return b
	}
	if int64(len(src)) < size {
		b.err = errors.New("write_buffer: source shorter than requested size")
		return b
	}
	b.cmd.buffer = buf
	b.cmd.hostData = src
	b.cmd.offset = offset
	b.cmd.size = size
	return b
}

// WaitFor adds events the command must wait on before running.
func (b *WriteBufferBuilder) WaitFor(evs ...*event.Event) *WriteBufferBuilder {
	b.cmd.waitList = append(b.cmd.waitList, evs...)
	return b
}

// Build validates and returns the finished command.
func (b *WriteBufferBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmd, nil
}

// NDRangeKernelBuilder builds an NDRangeKernel command (spec §4.C): the
// heaviest validation of the four, cross-checking the kernel's build state
// and argument bindings against the target device's limits and the
// requested iteration space.
type NDRangeKernelBuilder struct {
	cmd *Command
	err error
}

// NewNDRangeKernel starts building a command launching kern over info on
// dev.
func NewNDRangeKernel(kern *kernel.Kernel, info *util.DimensionInfo, dev DeviceLimits) *NDRangeKernelBuilder {
	b := &NDRangeKernelBuilder{cmd: newCommand(NDRangeKernel)}
	if kern == nil {
		b.err = errors.New("ndrange_kernel: kernel must not be nil")
		return b
	}
	if info == nil {
		b.err = errors.New("ndrange_kernel: dimension info must not be nil")
		return b
	}
	if dev == nil {
		b.err = errNilDevice
		return b
	}
	if !kern.IsBuiltFor(dev) {
		b.err = errors.Errorf("ndrange_kernel: kernel %q is not built for device %q", kern.Name(), dev.Name())
		return b
	}
	if !kern.AllArgsBound() {
		b.err = errors.Errorf("ndrange_kernel: kernel %q has unbound arguments", kern.Name())
		return b
	}

	attrs := dev.Attributes()
	if info.Dimensions() > attrs.MaxWorkItemDimensions {
		b.err = errors.Errorf("ndrange_kernel: work_dim %d exceeds device limit %d", info.Dimensions(), attrs.MaxWorkItemDimensions)
		return b
	}
	groupSize := 1
	for i := 0; i < info.Dimensions(); i++ {
		d := info.Dim(i)
		if i < len(attrs.MaxWorkItemSizes) && d.LocalSize > attrs.MaxWorkItemSizes[i] {
			b.err = errors.Errorf("ndrange_kernel: local size %d in dim %d exceeds device limit %d", d.LocalSize, i, attrs.MaxWorkItemSizes[i])
			return b
		}
		groupSize *= d.LocalSize
	}
	if groupSize > attrs.MaxWorkGroupSize {
		b.err = errors.Errorf("ndrange_kernel: work-group size %d exceeds device limit %d", groupSize, attrs.MaxWorkGroupSize)
		return b
	}

	b.cmd.kern = kern
	b.cmd.dimInfo = info
	b.cmd.device = dev
	return b
}

// WaitFor adds events the command must wait on before running.
func (b *NDRangeKernelBuilder) WaitFor(evs ...*event.Event) *NDRangeKernelBuilder {
	b.cmd.waitList = append(b.cmd.waitList, evs...)
	return b
}

// Build validates and returns the finished command.
func (b *NDRangeKernelBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmd, nil
}

// NativeKernelBuilder builds a NativeKernel command (spec §4.C): a plain
// host function run outside the work-item model, gated on the device
// advertising CanExecNativeKernel.
type NativeKernelBuilder struct {
	cmd *Command
	err error
}

// NewNativeKernel starts building a command running fn(args) on dev.
func NewNativeKernel(fn NativeFunc, args []interface{}, dev DeviceLimits) *NativeKernelBuilder {
	b := &NativeKernelBuilder{cmd: newCommand(NativeKernel)}
	if fn == nil {
		b.err = errors.New("native_kernel: function must not be nil")
		return b
	}
	if dev == nil {
		b.err = errNilDevice
		return b
	}
	if dev.Attributes().ExecutionCapabilities&device.CanExecNativeKernel == 0 {
		b.err = errors.Errorf("native_kernel: device %q does not support native kernels", dev.Name())
		return b
	}
	b.cmd.nativeFn = fn
	b.cmd.nativeArgs = args
	b.cmd.device = dev
	return b
}

// WaitFor adds events the command must wait on before running.
func (b *NativeKernelBuilder) WaitFor(evs ...*event.Event) *NativeKernelBuilder {
	b.cmd.waitList = append(b.cmd.waitList, evs...)
	return b
}

// Build validates and returns the finished command.
func (b *NativeKernelBuilder) Build() (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmd, nil
}
