// Package util holds small value types shared across the runtime core that
// don't belong to any one subsystem: the NDRange index-space walker and the
// profile-table text formatter.
package util

import (
	"fmt"

	"github.com/pkg/errors"
)

// Dim describes one dimension of an NDRange: its offset into the global
// index space, its global size, and the local (work-group) size that must
// evenly divide it. Mirrors DimensionInfo::InfoWrapper.
type Dim struct {
	Offset     int
	GlobalSize int
	LocalSize  int
}

// DimensionInfo is the 1-, 2-, or 3-dimensional index space of an NDRange
// launch (spec §3 DimensionInfo). It is immutable once built; Iterator()
// returns a fresh, restartable walk over it.
type DimensionInfo struct {
	dims []Dim
}

// New validates and builds a DimensionInfo. work_dim must be 1..3, and every
// dimension's global size must be an exact multiple of its local size (spec
// §3 invariant).
func New(dims []Dim) (*DimensionInfo, error) {
	if len(dims) < 1 || len(dims) > 3 {
		return nil, errors.Errorf("work_dim must be 1..3, got %d", len(dims))
	}
	for i, d := range dims {
		if d.GlobalSize <= 0 {
			return nil, errors.Errorf("dim %d: global size must be positive", i)
		}
		if d.LocalSize <= 0 {
			return nil, errors.Errorf("dim %d: local size must be positive", i)
		}
		if d.GlobalSize%d.LocalSize != 0 {
			return nil, errors.Errorf("dim %d: global size %d is not a multiple of local size %d", i, d.GlobalSize, d.LocalSize)
		}
	}
	cp := make([]Dim, len(dims))
	copy(cp, dims)
	return &DimensionInfo{dims: cp}, nil
}

// Dimensions returns the work_dim of this NDRange (1, 2, or 3).
func (d *DimensionInfo) Dimensions() int { return len(d.dims) }

// Dim returns the i-th dimension's (offset, global, local) triple.
func (d *DimensionInfo) Dim(i int) Dim { return d.dims[i] }

// GlobalWorkItems returns the total number of work-items across all
// dimensions.
func (d *DimensionInfo) GlobalWorkItems() int {
	n := 1
	for _, dim := range d.dims {
		n *= dim.GlobalSize
	}
	return n
}

// LocalWorkItems returns the number of work-items in one work-group.
func (d *DimensionInfo) LocalWorkItems() int {
	n := 1
	for _, dim := range d.dims {
		n *= dim.LocalSize
	}
	return n
}

// WorkGroupsCount returns the total number of work-groups the NDRange is
// partitioned into.
func (d *DimensionInfo) WorkGroupsCount() int {
	return d.GlobalWorkItems() / d.LocalWorkItems()
}

// WorkGroupsCountDim returns the number of work-groups along dimension i.
func (d *DimensionInfo) WorkGroupsCountDim(i int) int {
	dim := d.dims[i]
	return dim.GlobalSize / dim.LocalSize
}

// Point is one visited coordinate of the index space: the work-item's local
// id and its work-group id, per dimension.
type Point struct {
	Local []int
	Group []int
}

// GlobalID returns the absolute global id of the point along dimension i,
// i.e. group[i]*local_size[i] + local[i] + offset[i].
func (d *DimensionInfo) GlobalID(p Point, i int) int {
	dim := d.dims[i]
	return dim.Offset + p.Group[i]*dim.LocalSize + p.Local[i]
}

// Iterator walks every point of the index space exactly once, in canonical
// row-major order (last dimension fastest), group id advancing only after
// every local id of that group has been visited — this is testable property
// #4. Mirrors DimensionInfo::DimensionInfoIterator, restartable via a fresh
// call to Iterator() rather than a begin()/end() pair.
type Iterator struct {
	info    *DimensionInfo
	local   []int
	group   []int
	started bool
	done    bool
}

// Iterator returns a new, freshly-reset walk over the index space.
func (d *DimensionInfo) Iterator() *Iterator {
	n := len(d.dims)
	return &Iterator{
		info:  d,
		local: make([]int, n),
		group: make([]int, n),
	}
}

// Next advances to the next point and reports whether one exists. Call
// Point() after a true return to read the current coordinate.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		return true
	}
	return it.advance()
}

// Point returns the current (local, group) coordinate. Only valid after a
// call to Next() returned true.
func (it *Iterator) Point() Point {
	local := make([]int, len(it.local))
	group := make([]int, len(it.group))
	copy(local, it.local)
	copy(group, it.group)
	return Point{Local: local, Group: group}
}

// advance increments the local-id tuple (last dimension fastest); on wrap it
// increments the group-id tuple the same way. Returns false once the group
// tuple itself wraps past the last group.
func (it *Iterator) advance() bool {
	dims := it.info.dims
	n := len(dims)

	// Advance local indices, last dimension fastest.
	for i := n - 1; i >= 0; i-- {
		it.local[i]++
		if it.local[i] < dims[i].LocalSize {
			return true
		}
		it.local[i] = 0
		// carry into the next-more-significant local dimension
	}

	// Local tuple wrapped entirely: advance to the next work-group.
	for i := n - 1; i >= 0; i-- {
		it.group[i]++
		if it.group[i] < it.info.WorkGroupsCountDim(i) {
			return true
		}
		it.group[i] = 0
	}

	it.done = true
	return false
}

// GroupPoints enumerates every local-id tuple for the fixed work-group
// identified by group, in canonical row-major order (last dimension
// fastest). This is the one-work-group-at-a-time slice of the full
// Iterator walk that the group-parallel stub needs to spin up a
// StackBank for a single group.
func (d *DimensionInfo) GroupPoints(group []int) []Point {
	n := len(d.dims)
	sizes := make([]int, n)
	total := 1
	for i, dim := range d.dims {
		sizes[i] = dim.LocalSize
		total *= dim.LocalSize
	}

	points := make([]Point, total)
	idx := make([]int, n)
	for k := 0; k < total; k++ {
		local := make([]int, n)
		copy(local, idx)
		grp := make([]int, n)
		copy(grp, group)
		points[k] = Point{Local: local, Group: grp}

		for i := n - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < sizes[i] {
				break
			}
			idx[i] = 0
		}
	}
	return points
}

// EachGroup calls fn once per work-group, with that group's index tuple.
func (d *DimensionInfo) EachGroup(fn func(group []int)) {
	n := len(d.dims)
	counts := make([]int, n)
	for i := range d.dims {
		counts[i] = d.WorkGroupsCountDim(i)
	}
	total := 1
	for _, c := range counts {
		total *= c
	}

	idx := make([]int, n)
	for k := 0; k < total; k++ {
		group := make([]int, n)
		copy(group, idx)
		fn(group)

		for i := n - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < counts[i] {
				break
			}
			idx[i] = 0
		}
	}
}

// String renders a point for debug/log output, e.g. "local=[1 0] group=[0 2]".
func (p Point) String() string {
	return fmt.Sprintf("local=%v group=%v", p.Local, p.Group)
}
