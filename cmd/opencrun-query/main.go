// Command opencrun-query dumps the platform and device attribute tables
// this runtime core exposes, the Go analogue of the original's
// platform-query tool that walked clGetPlatformIDs/clGetDeviceIDs and
// printed every CL_DEVICE_* value it found.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opencrun-go/opencrun/device"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/platform"
	"github.com/opencrun-go/opencrun/util"
)

func main() {
	globalMem := flag.Int64("global-mem", 1<<30, "bytes of global memory to report for the discovered device")
	flag.Parse()

	plat := platform.Get()
	plat.AddDevice(cpu.New("cpu-0", *globalMem))

	printPlatformTable(plat)
	fmt.Println()
	for _, dev := range plat.Devices() {
		printDeviceTable(dev)
		fmt.Println()
	}
}

func printPlatformTable(p *platform.Platform) {
	t := util.NewTable("ATTRIBUTE", "VALUE")
	t.AddRow("PROFILE", p.Profile())
	t.AddRow("VERSION", p.Version())
	t.AddRow("NAME", p.Name())
	t.AddRow("VENDOR", p.Vendor())
	t.AddRow("EXTENSIONS", p.Extensions())
	t.AddRow("DEVICES", fmt.Sprintf("%d", len(p.Devices())))

	fmt.Println("=== Platform ===")
	if _, err := t.WriteTo(os.Stdout); err != nil {
		logrus.WithError(err).Warn("failed writing platform table")
	}
}

func printDeviceTable(dev *cpu.Device) {
	a := dev.Attributes()

	t := util.NewTable("ATTRIBUTE", "VALUE")
	t.AddRow("NAME", dev.Name())
	t.AddRowf("VENDOR", a.Vendor)
	t.AddRowf("MAX_COMPUTE_UNITS", a.MaxComputeUnits)
	t.AddRowf("MAX_WORK_ITEM_DIMENSIONS", a.MaxWorkItemDimensions)
	t.AddRowf("MAX_WORK_ITEM_SIZES", a.MaxWorkItemSizes)
	t.AddRowf("MAX_WORK_GROUP_SIZE", a.MaxWorkGroupSize)
	t.AddRowf("PREFERRED_WORK_GROUP_SIZE_MULTIPLE", a.PreferredWorkGroupSizeMultiple)
	t.AddRowf("GLOBAL_MEM_SIZE", a.GlobalMemorySize)
	t.AddRowf("GLOBAL_MEM_CACHELINE_SIZE", a.GlobalCacheLineSize)
	t.AddRowf("LOCAL_MEM_SIZE", a.LocalMemorySize)
	t.AddRowf("MAX_MEM_ALLOC_SIZE", a.MaxMemoryAllocSize)
	t.AddRowf("SIZE_TYPE_MAX", a.SizeTypeMax)
	t.AddRow("EXECUTION_CAPABILITIES", executionCapabilitiesString(a))
	t.AddRow("QUEUE_PROPERTIES", queuePropertiesString(a))
	t.AddRowf("COMPILER_AVAILABLE", a.CompilerAvailable)

	fmt.Printf("=== Device: %s ===\n", dev.Name())
	if _, err := t.WriteTo(os.Stdout); err != nil {
		logrus.WithError(err).Warn("failed writing device table")
	}
}

func executionCapabilitiesString(a device.Attributes) string {
	s := ""
	if a.ExecutionCapabilities&device.CanExecKernel != 0 {
		s += "EXEC_KERNEL "
	}
	if a.ExecutionCapabilities&device.CanExecNativeKernel != 0 {
		s += "EXEC_NATIVE_KERNEL "
	}
	if s == "" {
		return "none"
	}
	return s
}

func queuePropertiesString(a device.Attributes) string {
	s := ""
	if a.QueueProperties&device.OutOfOrderExecMode != 0 {
		s += "OUT_OF_ORDER_EXEC_MODE "
	}
	if a.QueueProperties&device.ProfilingEnabled != 0 {
		s += "PROFILING_ENABLE "
	}
	if s == "" {
		return "none"
	}
	return s
}
