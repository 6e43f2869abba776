package memobj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/memobj"
)

type noopCtx struct{ msgs []string }

func (c *noopCtx) ReportDiagnostic(msg string) { c.msgs = append(c.msgs, msg) }

func TestBuilderRejectsConflictingStorageFlags(t *testing.T) {
	b := memobj.NewBuilder(&noopCtx{}, 16)
	b.SetUseHostMemory(make([]byte, 16)).SetAllocHostMemory()
	_, err := b.Create()
	assert.Error(t, err)
}

func TestBuilderRejectsConflictingAccessFlags(t *testing.T) {
	b := memobj.NewBuilder(&noopCtx{}, 16)
	b.SetWriteOnly().SetReadOnly()
	_, err := b.Create()
	assert.Error(t, err)
}

func TestBuilderDefaultsToHostAccessibleReadWrite(t *testing.T) {
	buf, err := memobj.NewBuilder(&noopCtx{}, 64).Create()
	require.NoError(t, err)
	assert.Equal(t, memobj.HostAccessibleBuffer, buf.Kind)
	assert.Equal(t, memobj.ReadWrite, buf.Protection)
	assert.Equal(t, int32(1), buf.Count())
}

func TestUseHostMemoryProducesHostBuffer(t *testing.T) {
	storage := make([]byte, 32)
	buf, err := memobj.NewBuilder(&noopCtx{}, 32).SetUseHostMemory(storage).Create()
	require.NoError(t, err)
	assert.Equal(t, memobj.HostBuffer, buf.Kind)
	assert.Same(t, &storage[0], &buf.HostStorage[0])
}

func TestCopyHostMemoryProducesDeviceBufferWithInitSource(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	buf, err := memobj.NewBuilder(&noopCtx{}, 4).SetCopyHostMemory(src).Create()
	require.NoError(t, err)
	assert.Equal(t, memobj.DeviceBuffer, buf.Kind)
	assert.Equal(t, src, buf.InitSource)
}

func TestDeviceAddressRoundTrip(t *testing.T) {
	buf, err := memobj.NewBuilder(&noopCtx{}, 64).Create()
	require.NoError(t, err)

	_, ok := buf.DeviceAddress()
	assert.False(t, ok)

	buf.SetDeviceAddress(0x1000)
	addr, ok := buf.DeviceAddress()
	assert.True(t, ok)
	assert.Equal(t, uintptr(0x1000), addr)

	buf.ClearDeviceAddress()
	_, ok = buf.DeviceAddress()
	assert.False(t, ok)
}
