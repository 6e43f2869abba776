// Package refcount is the object fabric every runtime object (Context,
// Command, MemoryObj, Program, Kernel, Event) embeds: a thread-safe
// reference count with Retain/Release, matching the cl*Retain/cl*Release
// pairs of the public API (spec §1, §6).
package refcount

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrAlreadyDead is returned by Retain when called on an object whose count
// already reached zero — retaining a dead object is a caller bug, not a
// recoverable condition.
var ErrAlreadyDead = errors.New("refcount: retain of a released object")

// Ref is an atomic reference count, embedded by value in every fabric
// object. The zero value holds no live reference (Retain on it fails);
// NewRef starts at one, mirroring every cl*Create* call returning an object
// already retained once.
type Ref struct {
	n int32
}

// NewRef returns a Ref starting at one reference.
func NewRef() Ref {
	return Ref{n: 1}
}

// Retain increments the count and returns the new value. It returns
// ErrAlreadyDead without incrementing if the object was already released to
// zero.
func (r *Ref) Retain() (int32, error) {
	for {
		cur := atomic.LoadInt32(&r.n)
		if cur <= 0 {
			return cur, ErrAlreadyDead
		}
		if atomic.CompareAndSwapInt32(&r.n, cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// Release decrements the count and returns the new value. The caller must
// finalize the object when the returned value reaches zero; Release never
// finalizes on its own, since finalization is object-specific (spec §1).
func (r *Ref) Release() (int32, error) {
	for {
		cur := atomic.LoadInt32(&r.n)
		if cur <= 0 {
			return cur, ErrAlreadyDead
		}
		next := cur - 1
		if atomic.CompareAndSwapInt32(&r.n, cur, next) {
			return next, nil
		}
	}
}

// Count returns the current reference count without mutating it.
func (r *Ref) Count() int32 {
	return atomic.LoadInt32(&r.n)
}

// Live reports whether the object still has at least one reference.
func (r *Ref) Live() bool {
	return r.Count() > 0
}
