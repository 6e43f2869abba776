// Package platform implements the Platform singleton of spec §3: the
// process-wide profile/version/name/vendor string set plus the list of CPU
// devices registered with it.
package platform

import (
	"sync"

	"github.com/opencrun-go/opencrun/device/cpu"
)

const (
	profile = "FULL_PROFILE"
	version = "OpenCL 1.1"
	name    = "OpenCRun"
	vendor  = "opencrun-go"
)

// Platform groups every device this process exposes (spec §3 Platform).
// GPU and accelerator device kinds are explicit non-goals, so this holds
// only CPU devices, unlike the original's three-way split.
type Platform struct {
	mu      sync.Mutex
	devices []*cpu.Device
}

var (
	instance     *Platform
	instanceOnce sync.Once
)

// Get returns the process-wide Platform singleton, mirroring
// GetOpenCRunPlatform(). It is created empty; call AddDevice to populate
// it.
func Get() *Platform {
	instanceOnce.Do(func() { instance = &Platform{} })
	return instance
}

// Profile returns the fixed CL_PLATFORM_PROFILE string.
func (p *Platform) Profile() string { return profile }

// Version returns the fixed CL_PLATFORM_VERSION string.
func (p *Platform) Version() string { return version }

// Name returns the fixed CL_PLATFORM_NAME string.
func (p *Platform) Name() string { return name }

// Vendor returns the fixed CL_PLATFORM_VENDOR string.
func (p *Platform) Vendor() string { return vendor }

// Extensions returns the (empty) CL_PLATFORM_EXTENSIONS string — this core
// implements no optional extensions.
func (p *Platform) Extensions() string { return "" }

// AddDevice registers dev with the platform.
func (p *Platform) AddDevice(dev *cpu.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append(p.devices, dev)
}

// Devices returns every registered device.
func (p *Platform) Devices() []*cpu.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*cpu.Device, len(p.devices))
	copy(out, p.devices)
	return out
}
