package workitem

// Arg is one marshalled kernel argument as seen from inside a work-item
// body. Buffer args share one backing value across every work-item in the
// launch (global/constant/local address space); Value args are an
// immutable copy every work-item reads identically — the Go-level
// equivalent of the group-parallel stub's "direct load" vs "load-of-load"
// distinction (spec §4.F step 1), without an actual packed-pointer array
// to unpack since Go closures already carry typed arguments.
type Arg struct {
	IsBuffer bool
	Buffer   interface{}
	Value    interface{}
}

// BufferArg wraps a shared value (expected to be a slice, e.g. []uint32)
// as a buffer-typed argument.
func BufferArg(v interface{}) Arg {
	return Arg{IsBuffer: true, Buffer: v}
}

// ValueArg wraps a by-value scalar or struct argument.
func ValueArg(v interface{}) Arg {
	return Arg{IsBuffer: false, Value: v}
}

// Args is the full marshalled argument list for one kernel invocation, in
// declared parameter order.
type Args []Arg

// KernelFunc is a registered kernel body: the executable counterpart to a
// frontend.KernelMeta signature. It runs once per work-item; ctx exposes
// the query builtins and the barrier.
type KernelFunc func(ctx *Context, args Args) error
