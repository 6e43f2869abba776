// Package app holds the opencrun-demo CLI's benchmark op, driving the
// module's own cl facade end to end rather than a vendor OpenCL driver.
// The end-to-end scenarios themselves live in cmd/opencrun-demo.
package app

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/opencrun-go/opencrun/cl"
	"github.com/opencrun-go/opencrun/device/cpu"
	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/frontend"
	"github.com/opencrun-go/opencrun/memobj"
	"github.com/opencrun-go/opencrun/profiler"
	"github.com/opencrun-go/opencrun/util"
)

func sqrtKernel(wctx *workitem.Context, args workitem.Args) error {
	in := args[0].Buffer.([]byte)
	out := args[1].Buffer.([]byte)
	row := wctx.GlobalID(1)
	col := wctx.GlobalID(0)
	cols := wctx.GlobalSize(0)
	idx := (row*cols + col) * 4

	f := math.Float32frombits(binary.LittleEndian.Uint32(in[idx : idx+4]))
	r := float32(math.Sqrt(float64(f)))
	binary.LittleEndian.PutUint32(out[idx:idx+4], math.Float32bits(r))
	return nil
}

// Benchmark sweeps candidate local work-group sizes over an elems x elems
// NDRange running sqrtKernel, timing each size's enqueue-to-finish latency
// and reporting both a printable table and prometheus histograms, the
// software-runtime replacement for sweeping a real device's preferred
// work-group-size multiple.
func Benchmark(elems int, reg prometheus.Registerer) string {
	metrics := profiler.NewMetrics(reg)

	dev := cpu.New("cpu-benchmark", 1<<30)
	if err := dev.RegisterKernel("squareRoot", frontend.KernelMeta{
		Args: []frontend.ArgInfo{
			{Name: "input", AddressSpace: frontend.Global},
			{Name: "output", AddressSpace: frontend.Global},
		},
	}, sqrtKernel); err != nil {
		logrus.WithError(err).Fatal("register kernel failed")
	}

	ctx := cl.NewContext([]*cpu.Device{dev}, func(msg string) {
		logrus.WithField("demo", "benchmark").Warn(msg)
	})
	q, err := cl.NewCommandQueue(ctx, dev, true, false)
	if err != nil {
		logrus.WithError(err).Fatal("create queue failed")
	}

	prog := cl.NewProgramWithSource(ctx, "kernel void squareRoot(global float *input, global float *output) {}")
	if err := cl.BuildProgram(prog, []*cpu.Device{dev}, nil); err != nil {
		logrus.WithError(err).Fatal("build failed")
	}
	k, err := cl.NewKernel(prog, "squareRoot")
	if err != nil {
		logrus.WithError(err).Fatal("create kernel failed")
	}

	byteCount := elems * elems * 4
	input := make([]byte, byteCount)
	for i := 0; i < elems*elems; i++ {
		binary.LittleEndian.PutUint32(input[i*4:], math.Float32bits(float32(i)))
	}

	bufIn, err := cl.CreateDeviceBuffer(ctx, int64(byteCount), input, memobj.ReadOnly)
	if err != nil {
		logrus.WithError(err).Fatal("create input buffer failed")
	}
	bufOut, err := cl.CreateDeviceBuffer(ctx, int64(byteCount), nil, memobj.WriteOnly)
	if err != nil {
		logrus.WithError(err).Fatal("create output buffer failed")
	}
	if err := cl.SetKernelArgBuffer(k, 0, bufIn); err != nil {
		logrus.WithError(err).Fatal("bind input arg failed")
	}
	if err := cl.SetKernelArgBuffer(k, 1, bufOut); err != nil {
		logrus.WithError(err).Fatal("bind output arg failed")
	}

	attrs := dev.Attributes()
	table := util.NewTable("local size", "iterations", "mean latency")
	const iterations = 8
	for _, local := range []int{1, 2, 4, 8, 16} {
		if local*local > attrs.MaxWorkGroupSize {
			continue
		}
		info, err := util.New([]util.Dim{
			{GlobalSize: elems, LocalSize: local},
			{GlobalSize: elems, LocalSize: local},
		})
		if err != nil {
			continue
		}

		var total time.Duration
		for it := 0; it < iterations; it++ {
			start := time.Now()
			ev, err := cl.EnqueueNDRangeKernel(q, k, info)
			if err != nil {
				logrus.WithError(err).Fatal("enqueue failed")
			}
			if err := cl.WaitForEvents(ev); err != nil {
				logrus.WithError(err).Fatal("wait failed")
			}
			total += time.Since(start)
			metrics.ObserveTrace(ev.Profile())
		}
		mean := total / iterations
		metrics.SetQueueDepth(0)
		table.AddRowf(local, iterations, mean)
	}

	return table.String()
}
