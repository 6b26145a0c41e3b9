package managed

import (
	"github.com/djeday123/gomanaged/core"
	"github.com/djeday123/gomanaged/manager"
)

// ConstArray is a read-only view over a managed allocation. Observable
// copies of a ConstArray still migrate data into the destination space,
// but never mark it touched: a space that only reads stays
// non-authoritative and forces no migration back.
type ConstArray[T any] struct {
	a Array[T]
}

// ToSpace hands the view off to the given space, migrating stale data
// without marking the destination touched.
func (c ConstArray[T]) ToSpace(space core.Space) ConstArray[T] {
	if !c.a.observable || c.a.rec == nil {
		return c
	}
	p := mustResolve(c.a.rm, c.a.rec, space, false)
	return ConstArray[T]{a: Array[T]{
		active:     p,
		elems:      int(c.a.rec.Size() / sizeOf[T]()),
		rm:         c.a.rm,
		rec:        c.a.rec,
		observable: true,
	}}
}

// Incidental returns a derived copy, see Array.Incidental.
func (c ConstArray[T]) Incidental() ConstArray[T] {
	c.a.observable = false
	return c
}

// Size returns the number of elements.
func (c ConstArray[T]) Size() int { return c.a.Size() }

// Get returns element i.
func (c ConstArray[T]) Get(i int) T { return c.a.Get(i) }

// SetCallback registers the memory-event callback for this array.
func (c ConstArray[T]) SetCallback(cb manager.Callback) { c.a.SetCallback(cb) }
