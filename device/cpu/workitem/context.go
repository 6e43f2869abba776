package workitem

import "github.com/opencrun-go/opencrun/util"

// Context is the per-work-item view a running kernel body sees: its
// position in the index space plus the query builtins get_global_id,
// get_local_id, get_group_id, get_global_size, get_global_offset,
// get_num_groups, and get_work_dim (spec §4.F). These are installed as JIT
// global mappings in the original; here they are just methods, since the
// "kernel" is already a Go closure rather than JITed machine code.
type Context struct {
	info    *util.DimensionInfo
	point   util.Point
	barrier func()
}

// NewContext builds the per-work-item context for one point of info's index
// space, with barrier bound to the enclosing group's Barrier.Wait.
func NewContext(info *util.DimensionInfo, point util.Point, barrier func()) *Context {
	return &Context{info: info, point: point, barrier: barrier}
}

// WorkDim is get_work_dim().
func (c *Context) WorkDim() int { return c.info.Dimensions() }

// GlobalID is get_global_id(dim).
func (c *Context) GlobalID(dim int) int { return c.info.GlobalID(c.point, dim) }

// LocalID is get_local_id(dim).
func (c *Context) LocalID(dim int) int { return c.point.Local[dim] }

// GroupID is get_group_id(dim).
func (c *Context) GroupID(dim int) int { return c.point.Group[dim] }

// GlobalSize is get_global_size(dim).
func (c *Context) GlobalSize(dim int) int { return c.info.Dim(dim).GlobalSize }

// LocalSize is get_local_size(dim).
func (c *Context) LocalSize(dim int) int { return c.info.Dim(dim).LocalSize }

// GlobalOffset is get_global_offset(dim).
func (c *Context) GlobalOffset(dim int) int { return c.info.Dim(dim).Offset }

// NumGroups is get_num_groups(dim).
func (c *Context) NumGroups(dim int) int { return c.info.WorkGroupsCountDim(dim) }

// Barrier is the builtin barrier(flags). Memory fence flags are accepted
// for ABI compatibility but carry no meaning on this single-address-space
// device (spec §4.F: "implemented as ordinary compiler fences"); Go's
// cyclic barrier already establishes the happens-before edge the flags
// would otherwise request.
func (c *Context) Barrier(flags int) {
	c.barrier()
}
