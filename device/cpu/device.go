// Package cpu implements the one concrete device kind this runtime core
// targets (spec §4.D): the host CPU's cores grouped into Multiprocessors,
// each running a pool of Workers that drain a monitor-protected command
// deque, plus the global memory arena and kernel build pipeline every
// higher package (command, program, context) references structurally
// through narrow interfaces rather than importing this package back.
package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/opencrun-go/opencrun/command"
	"github.com/opencrun-go/opencrun/device"
	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/jit"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/system"
)

// Device is the CPU device object (spec §3): one per host process in
// practice, though nothing here prevents constructing more than one for
// testing isolation.
type Device struct {
	name  string
	attrs device.Attributes

	mem             *GlobalMemory
	multiprocessors []*Multiprocessor
	execSem         *semaphore.Weighted

	registry *frontend.Registry
	jitEng   *jit.Engine
	log      *logrus.Entry

	stopOnce sync.Once
	stopped  int32
}

// New discovers the host topology and builds one Multiprocessor per
// last-level-cache group, a global memory arena sized globalMemoryBytes,
// and an empty kernel registry/JIT pair.
func New(name string, globalMemoryBytes int64) *Device {
	topo := system.DiscoverTopology()
	registry := frontend.NewRegistry()

	computeUnits := 0
	var mps []*Multiprocessor
	for _, node := range topo.Nodes {
		for _, llc := range node.LLCs {
			mp := newMultiprocessor(llc)
			mps = append(mps, mp)
			computeUnits += mp.WorkerCount()
		}
	}
	if len(mps) == 0 {
		mps = []*Multiprocessor{newMultiprocessor(system.HardwareCache{CPUs: []system.HardwareCPU{{CoreID: 0}}})}
		computeUnits = 1
	}

	return &Device{
		name:            name,
		attrs:           device.DefaultCPUAttributes(computeUnits, globalMemoryBytes, topo.CacheLine),
		mem:             NewGlobalMemory(globalMemoryBytes, topo.CacheLine),
		multiprocessors: mps,
		execSem:         semaphore.NewWeighted(int64(computeUnits)),
		registry:        registry,
		jitEng:          jit.NewEngine(registry),
		log:             logrus.WithField("device", name),
	}
}

// Name returns the device's display name, part of the DeviceLimits and
// DeviceBuildTarget interfaces other packages validate against.
func (d *Device) Name() string { return d.name }

// Attributes returns the device's capability/limits table (spec §3).
func (d *Device) Attributes() device.Attributes { return d.attrs }

// GlobalMemory returns the device's allocation arena.
func (d *Device) GlobalMemory() *GlobalMemory { return d.mem }

// RegisterKernel binds name to an executable body ahead of a BuildProgram
// call referencing it — the reference front-end's stand-in for what a
// real compiler's codegen would produce (see [[frontend/]]).
func (d *Device) RegisterKernel(name string, meta frontend.KernelMeta, body workitem.KernelFunc) error {
	return d.registry.Register(name, meta, body)
}

// UnregisterKernel removes a previously registered body, allowing it to be
// redefined by a later RegisterKernel call.
func (d *Device) UnregisterKernel(name string) {
	d.registry.Unregister(name)
}

// BuildProgram compiles source and materializes its kernels' JIT entries,
// then runs the module's static constructors on a worker and waits for
// them to finish before returning (spec §4.F step 4). It satisfies
// program.DeviceBuildTarget structurally.
func (d *Device) BuildProgram(source string, options []string) (*frontend.Module, error) {
	options = append(system.CompilerOptions(), options...)
	mod, err := d.registry.Compile(source, options)
	if err != nil {
		d.log.WithError(err).Warn("program compile failed")
		return nil, errors.Wrap(err, "compile")
	}
	if err := d.jitEng.AddModule(mod); err != nil {
		d.log.WithError(err).Warn("program link failed")
		return nil, errors.Wrap(err, "link")
	}

	rv := system.NewRendezvous()
	mp := d.multiprocessors[0]
	if !mp.Dispatch(staticConstructorsCommand{done: rv.Signal}) {
		return nil, errors.New("build: device is shutting down")
	}
	rv.Wait()

	return mod, nil
}

// TeardownProgram evicts mod's kernels from the JIT — the mirror of
// BuildProgram, called once a program is released with no attached
// kernels remaining.
func (d *Device) TeardownProgram(mod *frontend.Module) {
	d.jitEng.RemoveModule(mod)
}

// Stop tears down every worker across every multiprocessor, transitioning
// them FullyOperational -> TearDown -> Stopped (spec §4.D). Safe to call
// more than once; only the first call has effect. After Stop returns,
// Submit always returns false.
func (d *Device) Stop() {
	d.stopOnce.Do(func() {
		atomic.StoreInt32(&d.stopped, 1)
		for _, mp := range d.multiprocessors {
			mp.Broadcast(stopDeviceCommand{})
		}
	})
}

// Submit accepts one enqueued command for execution on this device (spec
// §4.F "NDRange dispatch (per enqueue)" / §4.C command variants),
// translating it into one or more internal device-commands routed to a
// Multiprocessor. It returns false if the device can no longer accept
// work, if the command kind is unknown, or if an NDRangeKernel's kernel has
// no JIT entry (its event is then first marked completed with an error).
func (d *Device) Submit(cmd *command.Command) bool {
	if atomic.LoadInt32(&d.stopped) != 0 {
		return false
	}

	ev := cmd.Event()
	if ev != nil {
		ev.MarkSubmitted()
	}

	switch cmd.Kind() {
	case command.ReadBuffer:
		return d.submitReadBuffer(cmd, ev)
	case command.WriteBuffer:
		return d.submitWriteBuffer(cmd, ev)
	case command.NDRangeKernel:
		return d.submitNDRangeKernel(cmd, ev)
	case command.NativeKernel:
		return d.submitNativeKernel(cmd, ev)
	default:
		return false
	}
}

func (d *Device) submitReadBuffer(cmd *command.Command, ev *event.Event) bool {
	buf := cmd.Buffer()
	src := buf.HostStorage
	if src == nil {
		src = make([]byte, buf.Size)
	}
	mp := d.multiprocessors[0]
	return mp.Dispatch(readBufferCommand{
		src:    src,
		dst:    cmd.HostData(),
		offset: cmd.Offset(),
		size:   cmd.Size(),
		ev:     ev,
	})
}

func (d *Device) submitWriteBuffer(cmd *command.Command, ev *event.Event) bool {
	buf := cmd.Buffer()
	if buf.HostStorage == nil {
		buf.HostStorage = make([]byte, buf.Size)
	}
	mp := d.multiprocessors[0]
	return mp.Dispatch(writeBufferCommand{
		dst:    buf.HostStorage,
		src:    cmd.HostData(),
		offset: cmd.Offset(),
		size:   cmd.Size(),
		ev:     ev,
	})
}

func (d *Device) submitNativeKernel(cmd *command.Command, ev *event.Event) bool {
	fn := cmd.NativeFunc()
	mp := d.multiprocessors[0]
	return mp.Dispatch(nativeKernelCommand{
		fn:   func(args []interface{}) error { return fn(args) },
		args: cmd.NativeArgs(),
		ev:   ev,
	})
}

func (d *Device) submitNDRangeKernel(cmd *command.Command, ev *event.Event) bool {
	kern := cmd.Kernel()
	info := cmd.DimensionInfo()

	fn, ok := d.jitEng.EntryAddress(kern.Name())
	if !ok {
		if ev != nil {
			ev.MarkCompleted(event.Status(-1))
		}
		return false
	}

	args := marshalArgs(kern)
	groupCount := info.WorkGroupsCount()
	recorder := NewResultRecorder(ev, groupCount)

	idx := 0
	accepted := true
	info.EachGroup(func(group []int) {
		g := make([]int, len(group))
		copy(g, group)
		mp := d.multiprocessors[idx%len(d.multiprocessors)]
		if !mp.Dispatch(ndRangeBlockCommand{
			fn:       fn,
			args:     args,
			info:     info,
			group:    g,
			groupIdx: idx,
			recorder: recorder,
			sem:      d.execSem,
		}) {
			accepted = false
		}
		idx++
	})
	return accepted
}

// marshalArgs converts a kernel's bound argument slots into the typed
// Args value a workitem.KernelFunc expects (spec §4.F step 1: unpacking
// the per-call argument array before invoking the stub).
func marshalArgs(kern *kernel.Kernel) workitem.Args {
	slots := kern.Args()
	args := make(workitem.Args, len(slots))
	for i, s := range slots {
		if s.Kind == kernel.BufferArg {
			if s.Buffer != nil {
				args[i] = workitem.BufferArg(s.Buffer.HostStorage)
			} else {
				args[i] = workitem.BufferArg(nil)
			}
		} else {
			args[i] = workitem.ValueArg(s.Value)
		}
	}
	return args
}
