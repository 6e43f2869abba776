package main

import (
	"encoding/binary"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/opencrun-go/opencrun/cl"
	"github.com/opencrun-go/opencrun/context"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/internal/app"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/program"
	"github.com/opencrun-go/opencrun/queue"
	"github.com/opencrun-go/opencrun/util"
)

func main() {
	op := flag.String("op", "copy", "Demo to run: copy, byvalue, vector3, doublegroup, barrier, recursion, sudoku, benchmark")
	elems := flag.Int("elems", 64, "grid side length for the benchmark op")
	flag.Parse()

	switch *op {
	case "copy":
		copyByKernel()
	case "byvalue":
		byValueArg()
	case "vector3":
		vectorByValueArg()
	case "doublegroup":
		doubleWorkGroup()
	case "barrier":
		barrierButterfly()
	case "recursion":
		recursionRejection()
	case "sudoku":
		sudokuIteration()
	case "benchmark":
		fmt.Println(app.Benchmark(*elems, prometheus.NewRegistry()))
	default:
		fmt.Printf("Unknown op: %s. Options: copy, byvalue, vector3, doublegroup, barrier, recursion, sudoku, benchmark\n", *op)
	}
}

// copyByKernel is scenario E1: a single work-item copies one uint word from
// an input buffer to an output buffer.
func copyByKernel() {
	dev, ctx, q := newDeviceContextQueue("copy")

	if err := dev.RegisterKernel("copy", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "o", AddressSpace: frontend.Global},
			{Name: "i", AddressSpace: frontend.Global},
		},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		o := args[0].Buffer.([]byte)
		i := args[1].Buffer.([]byte)
		copy(o[:4], i[:4])
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void copy(global uint *o, global uint *i) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "copy")
	must(err)

	in := make([]byte, 4)
	binary.LittleEndian.PutUint32(in, 7)

	bufIn, err := cl.CreateDeviceBuffer(ctx, 4, in, memobj.ReadWrite)
	must(err)
	bufOut, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	must(err)

	must(cl.SetKernelArgBuffer(k, 0, bufOut))
	must(cl.SetKernelArgBuffer(k, 1, bufIn))

	info, err := util.New([]util.Dim{{GlobalSize: 1, LocalSize: 1}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	out := binary.LittleEndian.Uint32(bufOut.HostStorage)
	logrus.WithField("demo", "copy").Infof("host output = %d (expected 7)", out)
}

// byValueArg is scenario E2: a private (by-value) uint argument is written
// straight through to an output buffer.
func byValueArg() {
	dev, ctx, q := newDeviceContextQueue("byvalue")

	if err := dev.RegisterKernel("copy", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "o", AddressSpace: frontend.Global},
			{Name: "in", AddressSpace: frontend.Private},
		},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		o := args[0].Buffer.([]byte)
		v := args[1].Value.([]byte)
		copy(o[:4], v)
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void copy(global uint *o, uint in) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "copy")
	must(err)

	bufOut, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	must(err)

	must(cl.SetKernelArgBuffer(k, 0, bufOut))
	val := make([]byte, 4)
	binary.LittleEndian.PutUint32(val, 7)
	must(cl.SetKernelArgValue(k, 1, val))

	info, err := util.New([]util.Dim{{GlobalSize: 1, LocalSize: 1}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	out := binary.LittleEndian.Uint32(bufOut.HostStorage)
	logrus.WithField("demo", "byvalue").Infof("host output = %d (expected 7)", out)
}

// vectorByValueArg is scenario E3: a 3-component by-value argument
// (int3 = (-1, 0, +1)) round-trips through the kernel unchanged.
func vectorByValueArg() {
	dev, ctx, q := newDeviceContextQueue("vector3")

	if err := dev.RegisterKernel("passthrough", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "o", AddressSpace: frontend.Global},
			{Name: "v", AddressSpace: frontend.Private},
		},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		o := args[0].Buffer.([]byte)
		v := args[1].Value.([]byte)
		copy(o[:12], v)
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void passthrough(global int *o, int3 v) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "passthrough")
	must(err)

	bufOut, err := cl.CreateDeviceBuffer(ctx, 12, nil, memobj.ReadWrite)
	must(err)
	must(cl.SetKernelArgBuffer(k, 0, bufOut))

	val := make([]byte, 12)
	binary.LittleEndian.PutUint32(val[0:4], uint32(int32(-1)))
	binary.LittleEndian.PutUint32(val[4:8], uint32(int32(0)))
	binary.LittleEndian.PutUint32(val[8:12], uint32(int32(1)))
	must(cl.SetKernelArgValue(k, 1, val))

	info, err := util.New([]util.Dim{{GlobalSize: 1, LocalSize: 1}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	x := int32(binary.LittleEndian.Uint32(bufOut.HostStorage[0:4]))
	y := int32(binary.LittleEndian.Uint32(bufOut.HostStorage[4:8]))
	z := int32(binary.LittleEndian.Uint32(bufOut.HostStorage[8:12]))
	logrus.WithField("demo", "vector3").Infof("host output = (%d, %d, %d) (expected -1, 0, 1)", x, y, z)
}

// doubleWorkGroup is scenario E4: NDRange(4) split into local size 2, each
// work-item writing its own local id at gid*ws+lid, where gid is its group
// id.
func doubleWorkGroup() {
	dev, ctx, q := newDeviceContextQueue("doublegroup")

	if err := dev.RegisterKernel("lid_fill", frontend.KernelMeta{
		Args: []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		out := args[0].Buffer.([]byte)
		gid, lid, ws := wctx.GroupID(0), wctx.LocalID(0), wctx.LocalSize(0)
		out[gid*ws+lid] = byte(lid)
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void lid_fill(global uchar *out) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "lid_fill")
	must(err)

	bufOut, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	must(err)
	must(cl.SetKernelArgBuffer(k, 0, bufOut))

	info, err := util.New([]util.Dim{{GlobalSize: 4, LocalSize: 2}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	logrus.WithField("demo", "doublegroup").Infof("host output = %v (expected [0 1 0 1])", bufOut.HostStorage)
}

// barrierButterfly is scenario E5: a 4-item work-group writes its id into
// shared scratch, synchronizes, then reads back the mirrored index.
func barrierButterfly() {
	dev, ctx, q := newDeviceContextQueue("barrier")

	if err := dev.RegisterKernel("butterfly", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "out", AddressSpace: frontend.Global},
			{Name: "tmp", AddressSpace: frontend.Local},
		},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		out := args[0].Buffer.([]byte)
		tmp := args[1].Buffer.([]byte)
		id := wctx.GlobalID(0)
		n := wctx.LocalSize(0)

		tmp[id] = byte(id)
		wctx.Barrier(0)
		out[id] = tmp[n-1-id]
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void butterfly(global uchar *out, local uchar *tmp) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "butterfly")
	must(err)

	bufOut, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	must(err)
	bufTmp, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	must(err)

	must(cl.SetKernelArgBuffer(k, 0, bufOut))
	must(cl.SetKernelArgBuffer(k, 1, bufTmp))

	info, err := util.New([]util.Dim{{GlobalSize: 4, LocalSize: 4}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	logrus.WithField("demo", "barrier").Infof("host output = %v (expected [3 2 1 0])", bufOut.HostStorage)
}

// recursionRejection is scenario E6: a kernel declaring a call edge back to
// itself fails the call-graph-forest check at build time.
func recursionRejection() {
	dev, ctx, _ := newDeviceContextQueue("recursion")

	if err := dev.RegisterKernel("selfcall", frontend.KernelMeta{
		Args:  []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
		Calls: []string{"selfcall"},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void selfcall(global uchar *out) {}")
	err := cl.BuildProgram(prog, devicesOf(dev), nil)
	if err == nil {
		logrus.WithField("demo", "recursion").Error("expected build to fail, it succeeded")
		return
	}
	logrus.WithField("demo", "recursion").Infof("build rejected as expected: %v", err)
}

// sudokuIteration is scenario E7: a 9x9 NDRange split into 3x3 work-groups,
// verifying every index triplet the dim-iterator derives.
func sudokuIteration() {
	dev, ctx, q := newDeviceContextQueue("sudoku")

	if err := dev.RegisterKernel("coords", frontend.KernelMeta{
		Args: []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
	}, func(wctx *workitem.Context, args workitem.Args) error {
		out := args[0].Buffer.([]byte)
		gx, gy := wctx.GlobalID(0), wctx.GlobalID(1)
		lx, ly := wctx.LocalID(0), wctx.LocalID(1)
		grx, gry := wctx.GroupID(0), wctx.GroupID(1)

		idx := (gx*9 + gy) * 6
		out[idx+0], out[idx+1] = byte(gx), byte(gy)
		out[idx+2], out[idx+3] = byte(lx), byte(ly)
		out[idx+4], out[idx+5] = byte(grx), byte(gry)
		return nil
	}); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void coords(global uchar *out) {}")
	mustBuild(prog, dev)

	k, err := cl.NewKernel(prog, "coords")
	must(err)

	bufOut, err := cl.CreateDeviceBuffer(ctx, 9*9*6, nil, memobj.ReadWrite)
	must(err)
	must(cl.SetKernelArgBuffer(k, 0, bufOut))

	info, err := util.New([]util.Dim{{GlobalSize: 9, LocalSize: 3}, {GlobalSize: 9, LocalSize: 3}})
	must(err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	must(err)
	must(cl.WaitForEvents(ev))

	mismatches := 0
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			idx := (i*9 + j) * 6
			want := [6]byte{byte(i), byte(j), byte(i % 3), byte(j % 3), byte(i / 3), byte(j / 3)}
			got := [6]byte(bufOut.HostStorage[idx : idx+6])
			if got != want {
				mismatches++
			}
		}
	}
	logrus.WithField("demo", "sudoku").Infof("%d/81 cells mismatched (expected 0)", mismatches)
}

// newDeviceContextQueue builds a fresh single-device context and in-order
// queue for one demo run, named after label for log correlation.
func newDeviceContextQueue(label string) (*cpu.Device, *context.Context, *queue.CommandQueue) {
	dev := cpu.New("cpu-"+label, 1<<20)
	ctx := context.New([]*cpu.Device{dev}, func(msg string) {
		logrus.WithField("demo", label).Warn(msg)
	})
	q, err := cl.NewCommandQueue(ctx, dev, false, false)
	must(err)
	return dev, ctx, q
}

func must(err error) {
	if err != nil {
		logrus.Fatalf("%v", err)
	}
}

func mustBuild(prog *program.Program, dev *cpu.Device) {
	must(cl.BuildProgram(prog, []*cpu.Device{dev}, nil))
}

func devicesOf(dev *cpu.Device) []*cpu.Device {
	return []*cpu.Device{dev}
}
