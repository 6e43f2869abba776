package program_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/program"
)

type noopCtx struct{ diags []string }

func (c *noopCtx) ReportDiagnostic(msg string) { c.diags = append(c.diags, msg) }

type fakeDevice struct {
	name string
	mod  *frontend.Module
	err  error
}

func (d *fakeDevice) Name() string { return d.name }
func (d *fakeDevice) BuildProgram(source string, options []string) (*frontend.Module, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.mod, nil
}

func TestBuildSucceedsAndRecordsModule(t *testing.T) {
	mod := &frontend.Module{Kernels: map[string]frontend.KernelMeta{
		"square": {Name: "square", Args: []frontend.ArgInfo{{Name: "buf", AddressSpace: frontend.Global}}},
	}}
	dev := &fakeDevice{name: "cpu0", mod: mod}
	p := program.New(&noopCtx{}, "kernel void square(global float *buf) {}")

	err := p.Build([]program.DeviceBuildTarget{dev}, nil)
	require.NoError(t, err)
	assert.True(t, p.IsBuiltFor(dev))

	args, err := p.ArgInfo("square")
	require.NoError(t, err)
	assert.Equal(t, frontend.Global, args[0].AddressSpace)
}

func TestBuildFailureIsRecordedPerDevice(t *testing.T) {
	dev := &fakeDevice{name: "cpu0", err: assertErr("boom")}
	p := program.New(&noopCtx{}, "kernel void square(global float *buf) {}")

	err := p.Build([]program.DeviceBuildTarget{dev}, nil)
	require.Error(t, err)
	assert.False(t, p.IsBuiltFor(dev))

	info, ok := p.BuildInfoFor(dev)
	require.True(t, ok)
	assert.Equal(t, program.Failure, info.Status)
	assert.NotEmpty(t, info.Log)
}

func TestRebuildRejectedWhileKernelsAttached(t *testing.T) {
	mod := &frontend.Module{Kernels: map[string]frontend.KernelMeta{"k": {Name: "k"}}}
	dev := &fakeDevice{name: "cpu0", mod: mod}
	p := program.New(&noopCtx{}, "kernel void k() {}")
	require.NoError(t, p.Build([]program.DeviceBuildTarget{dev}, nil))

	p.AttachKernel("k")
	err := p.Build([]program.DeviceBuildTarget{dev}, nil)
	assert.Error(t, err)

	p.DetachKernel("k")
	err = p.Build([]program.DeviceBuildTarget{dev}, nil)
	assert.NoError(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
