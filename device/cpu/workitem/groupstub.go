package workitem

import "github.com/opencrun-go/opencrun/util"

// GroupParallelStub is the Go-level equivalent of the synthesized
// `_GroupParallelStub_<kernel_name>` wrapper (spec §4.F): given a
// work-group, it runs fn once per work-item over a StackBank and then
// performs the stub's implicit step-3 barrier before returning, so that
// every work-item's post-kernel-body state is synchronized before the
// group is torn down.
type GroupParallelStub struct {
	Fn   KernelFunc
	Args Args
}

// Run executes one work-group of info's index space identified by group,
// on bank, and returns the first non-nil per-work-item error (if any) —
// the per-part exit status the caller folds into a ResultRecorder.
func (s *GroupParallelStub) Run(bank *StackBank, info *util.DimensionInfo, group []int) error {
	points := info.GroupPoints(group)
	n := len(points)

	errs := bank.Run(n, func(i int, barrier func()) error {
		ctx := NewContext(info, points[i], barrier)
		err := s.Fn(ctx, s.Args)
		// Implicit end-of-work-item barrier (spec §4.F step 3): every
		// work-item must reach this point before the group is considered
		// done, whether or not its body errored, so a failing work-item
		// doesn't strand its siblings.
		barrier()
		return err
	})

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
