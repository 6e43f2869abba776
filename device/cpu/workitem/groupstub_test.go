package workitem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrun-go/opencrun/device/cpu/workitem"
	"github.com/opencrun-go/opencrun/util"
)

// TestBarrierButterflyReversal is testable property #5 / scenario E5:
// write(tmp[id] = id); barrier(); out[id] = tmp[N-1-id] must reverse the
// input for every valid N.
func TestBarrierButterflyReversal(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 8, 17} {
		info, err := util.New([]util.Dim{{GlobalSize: n, LocalSize: n}})
		require.NoError(t, err)

		tmp := make([]int, n)
		out := make([]int, n)

		fn := workitem.KernelFunc(func(ctx *workitem.Context, args workitem.Args) error {
			id := ctx.GlobalID(0)
			tmpSlice := args[0].Buffer.([]int)
			outSlice := args[1].Buffer.([]int)

			tmpSlice[id] = id
			ctx.Barrier(0)
			outSlice[id] = tmpSlice[n-1-id]
			return nil
		})

		stub := &workitem.GroupParallelStub{
			Fn:   fn,
			Args: workitem.Args{workitem.BufferArg(tmp), workitem.BufferArg(out)},
		}

		bank := workitem.NewStackBank()
		err = stub.Run(bank, info, []int{0})
		require.NoError(t, err)

		want := make([]int, n)
		for i := 0; i < n; i++ {
			want[i] = n - 1 - i
		}
		assert.Equal(t, want, out, "n=%d", n)
	}
}

func TestGroupParallelStubPropagatesItemError(t *testing.T) {
	info, err := util.New([]util.Dim{{GlobalSize: 2, LocalSize: 2}})
	require.NoError(t, err)

	fn := workitem.KernelFunc(func(ctx *workitem.Context, args workitem.Args) error {
		if ctx.LocalID(0) == 1 {
			return assert.AnError
		}
		return nil
	})

	stub := &workitem.GroupParallelStub{Fn: fn}
	err = stub.Run(workitem.NewStackBank(), info, []int{0})
	assert.Error(t, err)
}
