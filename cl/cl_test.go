package cl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/cl"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/util"
)

func vecAddKernel(ctx *workitem.Context, args workitem.Args) error {
	a := args[0].Buffer.([]byte)
	b := args[1].Buffer.([]byte)
	out := args[2].Buffer.([]byte)
	i := ctx.GlobalID(0)
	out[i] = a[i] + b[i]
	return nil
}

// TestEndToEndWriteComputeReadRoundTrip exercises the full host-side flow
// a caller drives through the cl facade: context -> queue -> program ->
// kernel -> buffers -> write/compute/read -> wait.
func TestEndToEndWriteComputeReadRoundTrip(t *testing.T) {
	dev := cpu.New("cpu-e2e", 1<<20)
	require.NoError(t, dev.RegisterKernel("vecadd", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "a", AddressSpace: frontend.Global},
			{Name: "b", AddressSpace: frontend.Global},
			{Name: "out", AddressSpace: frontend.Global},
		},
	}, vecAddKernel))

	ctx := cl.NewContext([]*cpu.Device{dev}, nil)
	q, err := cl.NewCommandQueue(ctx, dev, false, false)
	require.NoError(t, err)

	prog := cl.NewProgramWithSource(ctx, "kernel void vecadd(global uchar *a, global uchar *b, global uchar *out) {}")
	require.NoError(t, cl.BuildProgram(prog, []*cpu.Device{dev}, nil))

	k, err := cl.NewKernel(prog, "vecadd")
	require.NoError(t, err)

	bufA, err := cl.CreateDeviceBuffer(ctx, 8, nil, memobj.ReadWrite)
	require.NoError(t, err)
	bufB, err := cl.CreateDeviceBuffer(ctx, 8, nil, memobj.ReadWrite)
	require.NoError(t, err)
	bufOut, err := cl.CreateDeviceBuffer(ctx, 8, nil, memobj.ReadWrite)
	require.NoError(t, err)

	require.NoError(t, cl.SetKernelArgBuffer(k, 0, bufA))
	require.NoError(t, cl.SetKernelArgBuffer(k, 1, bufB))
	require.NoError(t, cl.SetKernelArgBuffer(k, 2, bufOut))

	a := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := []byte{10, 20, 30, 40, 50, 60, 70, 80}

	evWriteA, err := cl.EnqueueWriteBuffer(q, bufA, a, 0, 8)
	require.NoError(t, err)
	evWriteB, err := cl.EnqueueWriteBuffer(q, bufB, b, 0, 8)
	require.NoError(t, err)

	info, err := util.New([]util.Dim{{GlobalSize: 8, LocalSize: 4}})
	require.NoError(t, err)

	evCompute, err := cl.EnqueueNDRangeKernel(q, k, info, evWriteA, evWriteB)
	require.NoError(t, err)

	out := make([]byte, 8)
	evRead, err := cl.EnqueueReadBuffer(q, bufOut, out, 0, 8, evCompute)
	require.NoError(t, err)

	require.NoError(t, cl.WaitForEvents(evWriteA, evWriteB, evCompute, evRead))
	cl.Finish(q)

	for i := range out {
		assert.Equal(t, a[i]+b[i], out[i])
	}
}

func TestNewCommandQueueRejectsUnassociatedDevice(t *testing.T) {
	dev := cpu.New("cpu-in-ctx", 1<<16)
	other := cpu.New("cpu-outside-ctx", 1<<16)
	ctx := cl.NewContext([]*cpu.Device{dev}, nil)

	_, err := cl.NewCommandQueue(ctx, other, false, false)
	assert.Error(t, err)
}

func TestWaitForEventsReturnsFirstErrorStatus(t *testing.T) {
	dev := cpu.New("cpu-err", 1<<16)
	require.NoError(t, dev.RegisterKernel("boom", frontend.KernelMeta{
		Args: []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
	}, func(ctx *workitem.Context, args workitem.Args) error {
		return assertErr("boom")
	}))

	ctx := cl.NewContext([]*cpu.Device{dev}, nil)
	q, err := cl.NewCommandQueue(ctx, dev, false, false)
	require.NoError(t, err)

	prog := cl.NewProgramWithSource(ctx, "kernel void boom(global uchar *out) {}")
	require.NoError(t, cl.BuildProgram(prog, []*cpu.Device{dev}, nil))

	k, err := cl.NewKernel(prog, "boom")
	require.NoError(t, err)

	buf, err := cl.CreateDeviceBuffer(ctx, 4, nil, memobj.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, cl.SetKernelArgBuffer(k, 0, buf))

	info, err := util.New([]util.Dim{{GlobalSize: 4, LocalSize: 4}})
	require.NoError(t, err)

	ev, err := cl.EnqueueNDRangeKernel(q, k, info)
	require.NoError(t, err)

	assert.Error(t, cl.WaitForEvents(ev))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
