// Package managed provides an array handle that keeps its data coherent
// across execution spaces.
//
// An Array is a lightweight value: a cached pointer into the space that
// last resolved it, an element count, and a reference to the shared
// residency manager. Handing an array off to another space is an
// explicit observable copy (ToSpace), which migrates the authoritative
// data there when needed and returns a handle valid in that space.
// Element access never migrates; it reads through the already-resolved
// pointer, so the intended shape is "copy once across the boundary,
// index many times inside it".
//
// Contract violations (use after free, double free, out-of-range
// indexing) panic with the sentinels in package core. Concurrent
// observable copies of the same array from multiple goroutines are not
// synchronized; serialize them externally.
package managed

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/core"
	"github.com/djeday123/gomanaged/manager"
)

// Array is a managed array of T resident in one or more spaces.
type Array[T any] struct {
	// active is the cached pointer valid in the space that last
	// resolved this handle; nil for empty handles and for handles
	// whose allocation space has not been resolved yet.
	active unsafe.Pointer
	elems  int

	rm  *manager.Manager
	rec *manager.Record

	// observable marks a primary handle, one that represents a real
	// hand-off of the array. Derived (incidental) copies propagate
	// state verbatim and never talk to the manager.
	observable bool
}

// New returns an empty array bound to the process-wide manager.
// No allocation is performed.
func New[T any]() Array[T] {
	return NewWith[T](manager.Instance())
}

// NewWith returns an empty array bound to a specific manager.
func NewWith[T any](m *manager.Manager) Array[T] {
	return Array[T]{rm: m, observable: true}
}

// Make allocates elems elements in the given space (core.NONE uses the
// manager's default).
func Make[T any](elems int, space core.Space) (Array[T], error) {
	return MakeWith[T](manager.Instance(), elems, space)
}

// MakeWith is Make against a specific manager.
func MakeWith[T any](m *manager.Manager, elems int, space core.Space) (Array[T], error) {
	a := NewWith[T](m)
	if err := a.alloc(elems, space, nil); err != nil {
		return Array[T]{}, err
	}
	return a, nil
}

// Allocate allocates storage for an empty array. The optional callback
// receives alloc, free and move events for this array from now on.
// Allocating a non-empty array is a contract violation.
func (a *Array[T]) Allocate(elems int, space core.Space, cb manager.Callback) error {
	if a.rec != nil {
		panic(fmt.Errorf("%w: %d elements already allocated", core.ErrAlreadyAllocated, a.elems))
	}
	if a.rm == nil {
		a.rm = manager.Instance()
	}
	return a.alloc(elems, space, cb)
}

func (a *Array[T]) alloc(elems int, space core.Space, cb manager.Callback) error {
	if elems == 0 {
		return nil
	}
	if space == core.NONE {
		space = a.rm.DefaultSpace()
	}
	rec, err := a.rm.Allocate(int64(elems)*mustSizeOf[T](), space, cb)
	if err != nil {
		return err
	}
	a.rec = rec
	a.elems = elems
	// A mutable allocation is registered as touched in its space: the
	// allocating context is its first writer, and data written through
	// this handle must migrate on the first hand-off elsewhere.
	a.rm.RegisterTouch(rec, space)
	// Construction executes on the host, so only host allocations have
	// a usable pointer right away; anything else resolves on the first
	// observable copy into its space.
	if space == core.CPU {
		a.active = rec.Pointer(core.CPU)
	}
	return nil
}

// ToSpace is the observable copy: it hands the array off to the given
// space, migrating the most recently written data there if the copy
// resident in that space is stale, and marks the space touched. The
// returned handle is valid for element access in that space.
//
// Incidental copies pass through unchanged: the hand-off they derive
// from has already been resolved.
func (a Array[T]) ToSpace(space core.Space) Array[T] {
	if !a.observable || a.rec == nil {
		return a
	}
	p := mustResolve(a.rm, a.rec, space, true)
	return Array[T]{
		active:     p,
		elems:      int(a.rec.Size() / sizeOf[T]()),
		rm:         a.rm,
		rec:        a.rec,
		observable: true,
	}
}

// Incidental returns a derived copy of the handle. Derived copies are
// for embedding in larger values whose copies must not re-trigger
// migration or release storage; they propagate the already-resolved
// pointer verbatim.
func (a Array[T]) Incidental() Array[T] {
	a.observable = false
	return a
}

// Const converts the array to a read-only view over the same
// allocation. There is no conversion back.
func (a Array[T]) Const() ConstArray[T] {
	return ConstArray[T]{a: a}
}

// Size returns the number of elements.
func (a Array[T]) Size() int { return a.elems }

// Get returns element i.
func (a Array[T]) Get(i int) T { return *a.index(i) }

// Set stores v at element i.
func (a Array[T]) Set(i int, v T) { *a.index(i) = v }

// At returns a pointer to element i.
func (a Array[T]) At(i int) *T { return a.index(i) }

// Data returns the elements as a slice over the active pointer. The
// slice is only valid in the space this handle was last resolved for.
func (a Array[T]) Data() []T {
	if a.elems == 0 {
		return nil
	}
	a.index(0)
	return sliceOf[T](a.active, a.elems)
}

// Reallocate resizes the array in every space holding a resident copy,
// preserving the first min(old, new) elements of each. Handles other
// than this one keep stale pointers until their next observable copy.
func (a *Array[T]) Reallocate(elems int) error {
	if a.rec == nil || a.rec.Freed() {
		panic(fmt.Errorf("%w", core.ErrReallocateUnallocated))
	}
	p, err := a.rm.ReallocateAll(a.rec, int64(elems)*sizeOf[T](), a.active)
	if err != nil {
		return err
	}
	a.active = p
	a.elems = elems
	return nil
}

// Free releases the array in every resident space. Unowned wrapped
// memory is dropped from tracking but not released. Freeing through an
// incidental copy is a storage no-op.
func (a *Array[T]) Free() {
	if !a.observable || a.rec == nil {
		a.active = nil
		a.elems = 0
		return
	}
	a.rm.FreeAll(a.rec)
	a.active = nil
	a.elems = 0
}

// Clear resets the handle to the empty state without consulting the
// manager. Storage is not released and other handles over the same
// allocation stay valid.
func (a *Array[T]) Clear() {
	a.active = nil
	a.elems = 0
	a.rec = nil
}

// Reset clears the touched bookkeeping: the next access from any space
// is treated as a first touch and migrates nothing, trusting whatever
// data is already resident there. Use after writing the array directly
// in several spaces outside the copy protocol.
func (a Array[T]) Reset() {
	if a.rec == nil {
		return
	}
	a.rm.ResetTouch(a.rec)
}

// RegisterTouch marks a space as written without going through the
// copy protocol.
func (a Array[T]) RegisterTouch(space core.Space) {
	if a.rec == nil {
		return
	}
	a.rm.RegisterTouch(a.rec, space)
}

// SetCallback registers the memory-event callback for this array.
func (a Array[T]) SetCallback(cb manager.Callback) {
	if a.rec == nil {
		return
	}
	a.rm.SetCallback(a.rec, cb)
}

func (a Array[T]) index(i int) *T {
	if a.rec != nil && a.rec.Freed() {
		panic(fmt.Errorf("%w: element access", core.ErrUseAfterFree))
	}
	if a.active == nil {
		panic(fmt.Errorf("%w: element access on empty or unresolved array", core.ErrUseAfterFree))
	}
	if i < 0 || i >= a.elems {
		panic(fmt.Errorf("%w: %d not in [0,%d)", core.ErrIndexOutOfRange, i, a.elems))
	}
	return (*T)(unsafe.Add(a.active, uintptr(i)*uintptr(sizeOf[T]())))
}

func mustResolve(m *manager.Manager, rec *manager.Record, space core.Space, mutable bool) unsafe.Pointer {
	p, err := m.Resolve(rec, space, mutable)
	if err != nil {
		panic(err)
	}
	return p
}
