package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/platform"
)

func TestGetReturnsSameSingleton(t *testing.T) {
	p1 := platform.Get()
	p2 := platform.Get()
	assert.Same(t, p1, p2)
}

func TestFixedStrings(t *testing.T) {
	p := platform.Get()
	assert.Equal(t, "FULL_PROFILE", p.Profile())
	assert.Equal(t, "OpenCL 1.1", p.Version())
	assert.Equal(t, "OpenCRun", p.Name())
	assert.Equal(t, "opencrun-go", p.Vendor())
	assert.Equal(t, "", p.Extensions())
}

func TestAddDeviceAndDevicesReturnsIndependentCopy(t *testing.T) {
	p := platform.Get()
	before := len(p.Devices())

	dev := cpu.New("cpu-test-add", 1<<16)
	p.AddDevice(dev)

	devices := p.Devices()
	assert.Len(t, devices, before+1)
	assert.Same(t, dev, devices[len(devices)-1])

	// mutating the returned slice must not affect the platform's own.
	devices[0] = nil
	assert.NotNil(t, p.Devices()[0])
}
