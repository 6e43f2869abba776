package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/command"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/program"
	"github.com/opencrun-go/opencrun/util"
)

type noopCtx struct{}

func (noopCtx) ReportDiagnostic(string) {}

func fillKernel(ctx *workitem.Context, args workitem.Args) error {
	out := args[0].Buffer.([]byte)
	out[ctx.GlobalID(0)] = byte(ctx.GlobalID(0))
	return nil
}

func TestNDRangeDispatchFillsBufferAcrossGroups(t *testing.T) {
	dev := cpu.New("cpu0", 1<<20)
	require.NoError(t, dev.RegisterKernel("fill", frontend.KernelMeta{
		Args: []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
	}, fillKernel))

	prog := program.New(noopCtx{}, "kernel void fill(global uchar *out) {}")
	require.NoError(t, prog.Build([]program.DeviceBuildTarget{dev}, nil))

	k, err := kernel.New(prog, "fill")
	require.NoError(t, err)

	buf, err := memobj.NewBuilder(noopCtx{}, 16).Create()
	require.NoError(t, err)
	require.NoError(t, dev.GlobalMemory().Alloc(buf))
	require.NoError(t, k.SetArgBuffer(0, buf))

	info, err := util.New([]util.Dim{{GlobalSize: 16, LocalSize: 4}})
	require.NoError(t, err)

	cmd, err := command.NewNDRangeKernel(k, info, dev).Build()
	require.NoError(t, err)

	ev := event.New(nil, "ndrange", false)
	cmd.BindEvent(ev)
	require.True(t, dev.Submit(cmd))

	status := ev.Wait()
	require.Equal(t, event.Complete, status)

	for i := 0; i < 16; i++ {
		assert.Equal(t, byte(i), buf.HostStorage[i])
	}
}

func failingKernel(ctx *workitem.Context, args workitem.Args) error {
	if ctx.GlobalID(0) == 3 {
		return assertErr("boom")
	}
	return nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestNDRangeDispatchReportsFirstError(t *testing.T) {
	dev := cpu.New("cpu1", 1<<20)
	require.NoError(t, dev.RegisterKernel("fails", frontend.KernelMeta{
		Args: []frontend.ArgInfo{{Name: "out", AddressSpace: frontend.Global}},
	}, failingKernel))

	prog := program.New(noopCtx{}, "kernel void fails(global uchar *out) {}")
	require.NoError(t, prog.Build([]program.DeviceBuildTarget{dev}, nil))

	k, err := kernel.New(prog, "fails")
	require.NoError(t, err)

	buf, err := memobj.NewBuilder(noopCtx{}, 8).Create()
	require.NoError(t, err)
	require.NoError(t, dev.GlobalMemory().Alloc(buf))
	require.NoError(t, k.SetArgBuffer(0, buf))

	info, err := util.New([]util.Dim{{GlobalSize: 8, LocalSize: 4}})
	require.NoError(t, err)

	cmd, err := command.NewNDRangeKernel(k, info, dev).Build()
	require.NoError(t, err)

	ev := event.New(nil, "ndrange", false)
	cmd.BindEvent(ev)
	require.True(t, dev.Submit(cmd))

	status := ev.Wait()
	assert.True(t, status.IsError())
}
