package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/command"
	"github.com/opencrun-go/opencrun/device"
	"github.com/opencrun-go/opencrun/event"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/program"
	"github.com/opencrun-go/opencrun/util"
)

type noopCtx struct{}

func (noopCtx) ReportDiagnostic(string) {}

type fakeDevice struct {
	name  string
	attrs device.Attributes
	mod   *frontend.Module
	caps  device.ExecutionCapability
}

func (d *fakeDevice) Name() string                  { return d.name }
func (d *fakeDevice) Attributes() device.Attributes { return d.attrs }
func (d *fakeDevice) BuildProgram(source string, options []string) (*frontend.Module, error) {
	return d.mod, nil
}

func newBuiltKernel(t *testing.T, dev *fakeDevice, allBound bool) *kernel.Kernel {
	t.Helper()
	mod := &frontend.Module{Kernels: map[string]frontend.KernelMeta{
		"k": {Name: "k", Args: []frontend.ArgInfo{{Name: "buf", AddressSpace: frontend.Global}}},
	}}
	dev.mod = mod
	p := program.New(noopCtx{}, "kernel void k(global float *buf) {}")
	require.NoError(t, p.Build([]program.DeviceBuildTarget{dev}, nil))

	k, err := kernel.New(p, "k")
	require.NoError(t, err)
	if allBound {
		require.NoError(t, k.SetArgBuffer(0, nil))
	}
	return k
}

func TestReadBufferRejectsOutOfRange(t *testing.T) {
	buf, err := memobj.NewBuilder(nil, 16).Create()
	require.NoError(t, err)

	_, err = command.NewReadBuffer(buf, make([]byte, 16), 8, 16).Build()
	assert.Error(t, err)
}

func TestReadBufferAcceptsValidRange(t *testing.T) {
	buf, err := memobj.NewBuilder(nil, 16).Create()
	require.NoError(t, err)

	cmd, err := command.NewReadBuffer(buf, make([]byte, 16), 0, 16).Build()
	require.NoError(t, err)
	assert.Equal(t, command.ReadBuffer, cmd.Kind())
}

func TestNDRangeKernelRejectsUnboundArgs(t *testing.T) {
	dev := &fakeDevice{name: "cpu0", attrs: device.DefaultCPUAttributes(4, 1<<20, 64)}
	k := newBuiltKernel(t, dev, false)
	info, err := util.New([]util.Dim{{GlobalSize: 4, LocalSize: 4}})
	require.NoError(t, err)

	_, err = command.NewNDRangeKernel(k, info, dev).Build()
	assert.Error(t, err)
}

func TestNDRangeKernelRejectsOversizedWorkGroup(t *testing.T) {
	dev := &fakeDevice{name: "cpu0", attrs: device.DefaultCPUAttributes(4, 1<<20, 64)}
	dev.attrs.MaxWorkGroupSize = 2
	k := newBuiltKernel(t, dev, true)
	info, err := util.New([]util.Dim{{GlobalSize: 4, LocalSize: 4}})
	require.NoError(t, err)

	_, err = command.NewNDRangeKernel(k, info, dev).Build()
	assert.Error(t, err)
}

func TestNDRangeKernelAcceptsValidLaunch(t *testing.T) {
	dev := &fakeDevice{name: "cpu0", attrs: device.DefaultCPUAttributes(4, 1<<20, 64)}
	k := newBuiltKernel(t, dev, true)
	info, err := util.New([]util.Dim{{GlobalSize: 16, LocalSize: 4}})
	require.NoError(t, err)

	cmd, err := command.NewNDRangeKernel(k, info, dev).Build()
	require.NoError(t, err)
	assert.Equal(t, command.NDRangeKernel, cmd.Kind())
}

func TestNativeKernelRejectsUnsupportedDevice(t *testing.T) {
	dev := &fakeDevice{name: "cpu0", attrs: device.DefaultCPUAttributes(4, 1<<20, 64)}
	dev.attrs.ExecutionCapabilities = device.CanExecKernel
	_, err := command.NewNativeKernel(func([]interface{}) error { return nil }, nil, dev).Build()
	assert.Error(t, err)
}

func TestCanRunReflectsWaitListCompletion(t *testing.T) {
	buf, err := memobj.NewBuilder(nil, 4).Create()
	require.NoError(t, err)
	blocker := event.New(nil, "blocker", false)

	cmd, err := command.NewWriteBuffer(buf, []byte{1, 2, 3, 4}, 0, 4).WaitFor(blocker).Build()
	require.NoError(t, err)
	assert.False(t, cmd.CanRun())

	blocker.MarkCompleted(event.Complete)
	assert.True(t, cmd.CanRun())
}
