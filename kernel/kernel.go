// Package kernel implements the Kernel object of spec §3: an entry point
// into a built Program together with its bound argument slots.
package kernel

import (
	"github.com/pkg/errors"

	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/program"
	"github.com/opencrun-go/opencrun/refcount"
)

// ArgKind distinguishes a buffer-valued argument (global/local/constant
// address space, passed by reference) from a by-value one (private address
// space, passed as raw bytes — spec §3 "non-pointer kernel argument").
type ArgKind int

const (
	ByValueArg ArgKind = iota
	BufferArg
)

// ArgSlot is one bound (or not yet bound) kernel argument.
type ArgSlot struct {
	AddressSpace frontend.AddressSpace
	Kind         ArgKind
	Buffer       *memobj.Buffer
	Value        []byte
	Bound        bool
}

// Kernel is an entry point name inside a built Program plus its argument
// slots (spec §3). Every device a program is built for must agree on the
// argument signature, so the slot layout is derived once, from whichever
// device's build metadata is found first.
type Kernel struct {
	refcount.Ref

	prog *program.Program
	name string
	args []ArgSlot
}

// New looks name up in prog's build metadata and returns a Kernel with an
// empty, correctly-shaped argument slot list. It attaches itself to prog,
// blocking further rebuilds of prog until released (spec §3 invariant).
func New(prog *program.Program, name string) (*Kernel, error) {
	infos, err := prog.ArgInfo(name)
	if err != nil {
		return nil, err
	}

	args := make([]ArgSlot, len(infos))
	for i, info := range infos {
		args[i] = ArgSlot{AddressSpace: info.AddressSpace}
		if info.AddressSpace == frontend.Private {
			args[i].Kind = ByValueArg
		} else {
			args[i].Kind = BufferArg
		}
	}

	prog.AttachKernel(name)
	return &Kernel{
		Ref:  refcount.NewRef(),
		prog: prog,
		name: name,
		args: args,
	}, nil
}

// Name returns the kernel's entry point name.
func (k *Kernel) Name() string { return k.name }

// Program returns the owning program.
func (k *Kernel) Program() *program.Program { return k.prog }

// ArgCount returns the number of declared arguments.
func (k *Kernel) ArgCount() int { return len(k.args) }

// Arg returns a copy of argument i's current slot.
func (k *Kernel) Arg(i int) (ArgSlot, error) {
	if i < 0 || i >= len(k.args) {
		return ArgSlot{}, errors.Errorf("argument index %d out of range [0,%d)", i, len(k.args))
	}
	return k.args[i], nil
}

// Args returns a copy of every argument slot, in declaration order — used
// by device/cpu to marshal the call into a workitem.Args value at NDRange
// dispatch time.
func (k *Kernel) Args() []ArgSlot {
	out := make([]ArgSlot, len(k.args))
	copy(out, k.args)
	return out
}

// SetArgBuffer binds argument i to buf. Fails if i names a by-value
// (private address space) argument.
func (k *Kernel) SetArgBuffer(i int, buf *memobj.Buffer) error {
	if i < 0 || i >= len(k.args) {
		return errors.Errorf("argument index %d out of range [0,%d)", i, len(k.args))
	}
	if k.args[i].Kind != BufferArg {
		return errors.Errorf("argument %d is not a buffer argument", i)
	}
	k.args[i].Buffer = buf
	k.args[i].Bound = true
	return nil
}

// SetArgValue binds argument i to a copy of data. Fails if i names a
// buffer (pointer address space) argument.
func (k *Kernel) SetArgValue(i int, data []byte) error {
	if i < 0 || i >= len(k.args) {
		return errors.Errorf("argument index %d out of range [0,%d)", i, len(k.args))
	}
	if k.args[i].Kind != ByValueArg {
		return errors.Errorf("argument %d is not a by-value argument", i)
	}
	v := make([]byte, len(data))
	copy(v, data)
	k.args[i].Value = v
	k.args[i].Bound = true
	return nil
}

// AllArgsBound reports whether every declared argument has been set —
// required before a kernel can be enqueued (spec §4.C NDRangeKernel
// validation).
func (k *Kernel) AllArgsBound() bool {
	for _, a := range k.args {
		if !a.Bound {
			return false
		}
	}
	return true
}

// IsBuiltFor reports whether the owning program has a successful build for
// dev. dev only needs to be named; internally it is asserted against
// program.DeviceBuildTarget, which every real device (passed in through a
// narrower interface like command.DeviceLimits) also satisfies — this
// keeps callers like command from needing to import program just to ask
// this question.
func (k *Kernel) IsBuiltFor(dev interface{ Name() string }) bool {
	target, ok := dev.(program.DeviceBuildTarget)
	if !ok {
		return false
	}
	return k.prog.IsBuiltFor(target)
}

// Release decrements the reference count and, once it reaches zero,
// detaches the kernel from its program — shadows refcount.Ref.Release so
// callers always go through the owning program's bookkeeping.
func (k *Kernel) Release() (int32, error) {
	n, err := k.Ref.Release()
	if err == nil && n == 0 {
		k.prog.DetachKernel(k.name)
	}
	return n, err
}
