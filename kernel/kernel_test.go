package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/kernel"
	"github.com/opencrun-go/opencrun/program"
)

type noopCtx struct{}

func (noopCtx) ReportDiagnostic(string) {}

type fakeDevice struct {
	mod *frontend.Module
}

func (d *fakeDevice) Name() string { return "cpu0" }
func (d *fakeDevice) BuildProgram(source string, options []string) (*frontend.Module, error) {
	return d.mod, nil
}

func buildKernel(t *testing.T) (*kernel.Kernel, *program.Program) {
	t.Helper()
	mod := &frontend.Module{Kernels: map[string]frontend.KernelMeta{
		"axpy": {
			Name: "axpy",
			Args: []frontend.ArgInfo{
				{Name: "a", AddressSpace: frontend.Private},
				{Name: "x", AddressSpace: frontend.Global},
				{Name: "y", AddressSpace: frontend.Global},
			},
		},
	}}
	dev := &fakeDevice{mod: mod}
	p := program.New(noopCtx{}, "kernel void axpy(float a, global float *x, global float *y) {}")
	require.NoError(t, p.Build([]program.DeviceBuildTarget{dev}, nil))

	k, err := kernel.New(p, "axpy")
	require.NoError(t, err)
	return k, p
}

func TestNewDerivesArgKindsFromAddressSpace(t *testing.T) {
	k, _ := buildKernel(t)
	require.Equal(t, 3, k.ArgCount())

	a0, _ := k.Arg(0)
	assert.Equal(t, kernel.ByValueArg, a0.Kind)
	a1, _ := k.Arg(1)
	assert.Equal(t, kernel.BufferArg, a1.Kind)
}

func TestSetArgRejectsWrongKind(t *testing.T) {
	k, _ := buildKernel(t)
	assert.Error(t, k.SetArgBuffer(0, nil))
	assert.Error(t, k.SetArgValue(1, []byte{1, 2, 3, 4}))
}

func TestAllArgsBoundTracksBindings(t *testing.T) {
	k, _ := buildKernel(t)
	assert.False(t, k.AllArgsBound())

	require.NoError(t, k.SetArgValue(0, []byte{0, 0, 128, 63}))
	require.NoError(t, k.SetArgBuffer(1, nil))
	require.NoError(t, k.SetArgBuffer(2, nil))
	assert.True(t, k.AllArgsBound())
}

func TestReleaseDetachesFromProgram(t *testing.T) {
	k, p := buildKernel(t)

	n, err := k.Release()
	require.NoError(t, err)
	assert.Equal(t, int32(0), n)

	// Program should now accept a rebuild since no kernels remain attached.
	dev := &fakeDevice{mod: &frontend.Module{Kernels: map[string]frontend.KernelMeta{"axpy": {Name: "axpy"}}}}
	assert.NoError(t, p.Build([]program.DeviceBuildTarget{dev}, nil))
}
