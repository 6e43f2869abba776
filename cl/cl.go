// Package cl is the public facade (spec §6): a single ergonomic surface
// gluing together platform, context, program, kernel, command, and queue
// into the Platform/Device/Context/Queue/Program/Kernel/Memory/Commands/
// Events vocabulary an OpenCL 1.1 host application expects, without the C
// API's out-parameter error codes — Go callers get ordinary (value, error)
// returns instead.
package cl

import (
	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/command"
	"github.com/opencrun-go/opencrun/context"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/platform"
	"github.com/opencrun-go/opencrun/program"
	"github.com/opencrun-go/opencrun/queue"
	"github.com/opencrun-go/opencrun/util"
)

// Platform returns the process-wide platform singleton (spec §3
// Platform), creating and registering its one CPU device the first time
// it's called with a positive globalMemoryBytes.
func Platform(globalMemoryBytes int64) *platform.Platform {
	p := platform.Get()
	if len(p.Devices()) == 0 && globalMemoryBytes > 0 {
		p.AddDevice(cpu.New("cpu0", globalMemoryBytes))
	}
	return p
}

// Devices returns the platform's device list.
func Devices() []*cpu.Device {
	return platform.Get().Devices()
}

// NewContext groups devices under a new Context (spec §3 Context).
func NewContext(devices []*cpu.Device, onDiagnostic func(msg string)) *context.Context {
	return context.New(devices, onDiagnostic)
}

// NewCommandQueue creates an in-order (or, if outOfOrder is true,
// out-of-order) queue against dev within ctx (spec §3 CommandQueue).
func NewCommandQueue(ctx *context.Context, dev *cpu.Device, profiled, outOfOrder bool) (*queue.CommandQueue, error) {
	if !ctx.IsAssociatedWith(dev) {
		return nil, errors.Errorf("device %q is not associated with this context", dev.Name())
	}
	if outOfOrder {
		return queue.NewOutOfOrder(ctx, dev, profiled, nil), nil
	}
	return queue.NewInOrder(ctx, dev, profiled, nil), nil
}

// NewProgramWithSource creates an unbuilt Program over source (spec §3
// Program).
func NewProgramWithSource(ctx *context.Context, source string) *program.Program {
	return program.New(ctx, source)
}

// BuildProgram builds prog for every device in devices (spec §4.F).
func BuildProgram(prog *program.Program, devices []*cpu.Device, options []string) error {
	targets := make([]program.DeviceBuildTarget, len(devices))
	for i, d := range devices {
		targets[i] = d
	}
	return prog.Build(targets, options)
}

// NewKernel creates a Kernel entry point into prog (spec §3 Kernel).
func NewKernel(prog *program.Program, name string) (*kernel.Kernel, error) {
	return kernel.New(prog, name)
}

// SetKernelArgBuffer binds argument i of k to buf.
func SetKernelArgBuffer(k *kernel.Kernel, i int, buf *memobj.Buffer) error {
	return k.SetArgBuffer(i, buf)
}

// SetKernelArgValue binds argument i of k to a copy of data.
func SetKernelArgValue(k *kernel.Kernel, i int, data []byte) error {
	return k.SetArgValue(i, data)
}

// CreateHostBuffer/CreateHostAccessibleBuffer/CreateDeviceBuffer create the
// three MemoryObj variants of spec §3 within ctx.
func CreateHostBuffer(ctx *context.Context, size int64, storage []byte, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return ctx.CreateHostBuffer(size, storage, prot)
}

func CreateHostAccessibleBuffer(ctx *context.Context, size int64, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return ctx.CreateHostAccessibleBuffer(size, prot)
}

func CreateDeviceBuffer(ctx *context.Context, size int64, src []byte, prot memobj.AccessProtection) (*memobj.Buffer, error) {
	return ctx.CreateDeviceBuffer(size, src, prot)
}

// ReleaseBuffer drops a buffer's reference, destroying its device-side
// allocation once the count reaches zero.
func ReleaseBuffer(ctx *context.Context, buf *memobj.Buffer) error {
	n, err := buf.Release()
	if err != nil {
		return err
	}
	if n == 0 {
		ctx.DestroyBuffer(buf)
	}
	return nil
}

// EnqueueReadBuffer copies [offset,offset+size) of buf into dst through q
// (spec §4.C ReadBuffer).
func EnqueueReadBuffer(q *queue.CommandQueue, buf *memobj.Buffer, dst []byte, offset, size int64, waitFor ...*event.Event) (*event.Event, error) {
	cmd, err := command.NewReadBuffer(buf, dst, offset, size).WaitFor(waitFor...).Build()
	if err != nil {
		return nil, err
	}
	return q.Enqueue(cmd)
}

// EnqueueWriteBuffer copies src into [offset,offset+size) of buf through q
// (spec §4.C WriteBuffer).
func EnqueueWriteBuffer(q *queue.CommandQueue, buf *memobj.Buffer, src []byte, offset, size int64, waitFor ...*event.Event) (*event.Event, error) {
	cmd, err := command.NewWriteBuffer(buf, src, offset, size).WaitFor(waitFor...).Build()
	if err != nil {
		return nil, err
	}
	return q.Enqueue(cmd)
}

// EnqueueNDRangeKernel launches k over info through q (spec §4.C
// NDRangeKernel).
func EnqueueNDRangeKernel(q *queue.CommandQueue, k *kernel.Kernel, info *util.DimensionInfo, waitFor ...*event.Event) (*event.Event, error) {
	cmd, err := command.NewNDRangeKernel(k, info, q.Device()).WaitFor(waitFor...).Build()
	if err != nil {
		return nil, err
	}
	return q.Enqueue(cmd)
}

// EnqueueNativeKernel runs fn(args) outside the work-item model through q
// (spec §4.C NativeKernel).
func EnqueueNativeKernel(q *queue.CommandQueue, fn command.NativeFunc, args []interface{}, waitFor ...*event.Event) (*event.Event, error) {
	cmd, err := command.NewNativeKernel(fn, args, q.Device()).WaitFor(waitFor...).Build()
	if err != nil {
		return nil, err
	}
	return q.Enqueue(cmd)
}

// WaitForEvents blocks until every event reaches a terminal status,
// returning the first error status encountered, if any.
func WaitForEvents(events ...*event.Event) error {
	var firstErr error
	for _, ev := range events {
		s := ev.Wait()
		if s.IsError() && firstErr == nil {
			firstErr = errors.Errorf("event for %q terminated with status %d", ev.CommandDescription(), s)
		}
	}
	return firstErr
}

// Flush and Finish forward to the queue's methods (spec §4.A).
func Flush(q *queue.CommandQueue)  { q.Flush() }
func Finish(q *queue.CommandQueue) { q.Finish() }
