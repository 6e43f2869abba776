package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/memobj"
)

func TestAllocAccountsAvailableBytes(t *testing.T) {
	mem := cpu.NewGlobalMemory(1024, 64)
	require.Equal(t, int64(1024), mem.AvailableBytes())

	buf, err := memobj.NewBuilder(nil, 100).Create()
	require.NoError(t, err)

	require.NoError(t, mem.Alloc(buf))
	assert.Less(t, mem.AvailableBytes(), int64(1024))

	before := mem.AvailableBytes()
	mem.Free(buf)
	assert.Equal(t, before+128, mem.AvailableBytes()) // 100 rounded up to 64-byte lines
}

func TestAllocFailsWhenArenaExhausted(t *testing.T) {
	mem := cpu.NewGlobalMemory(64, 64)
	buf1, err := memobj.NewBuilder(nil, 64).Create()
	require.NoError(t, err)
	require.NoError(t, mem.Alloc(buf1))

	buf2, err := memobj.NewBuilder(nil, 1).Create()
	require.NoError(t, err)
	assert.Error(t, mem.Alloc(buf2))
}

func TestFreeIsIdempotentAndClearsDeviceAddress(t *testing.T) {
	mem := cpu.NewGlobalMemory(1024, 64)
	buf, err := memobj.NewBuilder(nil, 100).Create()
	require.NoError(t, err)
	require.NoError(t, mem.Alloc(buf))

	_, ok := buf.DeviceAddress()
	assert.True(t, ok)

	mem.Free(buf)
	mem.Free(buf) // second call must be a no-op, not double-credit capacity
	_, ok = buf.DeviceAddress()
	assert.False(t, ok)
	assert.Equal(t, int64(1024), mem.AvailableBytes())
}

func TestAllocSeedsHostStorageFromInitSource(t *testing.T) {
	mem := cpu.NewGlobalMemory(1024, 64)
	src := []byte{1, 2, 3, 4}
	buf, err := memobj.NewBuilder(nil, 4).SetCopyHostMemory(src).Create()
	require.NoError(t, err)

	require.NoError(t, mem.Alloc(buf))
	assert.Equal(t, src, buf.HostStorage)
}
