package managed

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/core"
	"github.com/djeday123/gomanaged/manager"
)

// Wrap adopts a host slice as a managed array. The caller is assumed to
// have just written the data, so the host space is marked touched. When
// owned is true the manager releases the memory on Free.
func Wrap[T any](data []T, owned bool) Array[T] {
	return WrapWith(manager.Instance(), data, owned)
}

// WrapWith is Wrap against a specific manager.
func WrapWith[T any](m *manager.Manager, data []T, owned bool) Array[T] {
	if len(data) == 0 {
		return NewWith[T](m)
	}
	ptr := unsafe.Pointer(&data[0])
	rec := m.MakeManaged(ptr, int64(len(data))*mustSizeOf[T](), core.CPU, owned)
	m.RegisterTouch(rec, core.CPU)
	return Array[T]{active: ptr, elems: len(data), rm: m, rec: rec, observable: true}
}

// WrapConst adopts a host slice as a read-only managed view. No touch
// is recorded: the data is migrated outward on demand but never back.
func WrapConst[T any](m *manager.Manager, data []T, owned bool) ConstArray[T] {
	if len(data) == 0 {
		return NewWith[T](m).Const()
	}
	ptr := unsafe.Pointer(&data[0])
	rec := m.MakeManaged(ptr, int64(len(data))*mustSizeOf[T](), core.CPU, owned)
	return ConstArray[T]{a: Array[T]{active: ptr, elems: len(data), rm: m, rec: rec, observable: true}}
}

// WrapPointer adopts a raw pointer resident in the given space, for
// memory that did not originate in Go (device allocations, interop).
// The space is marked touched like Wrap.
func WrapPointer[T any](m *manager.Manager, ptr unsafe.Pointer, elems int, space core.Space, owned bool) Array[T] {
	if ptr == nil || elems == 0 {
		return NewWith[T](m)
	}
	rec := m.MakeManaged(ptr, int64(elems)*mustSizeOf[T](), space, owned)
	m.RegisterTouch(rec, space)
	a := Array[T]{elems: elems, rm: m, rec: rec, observable: true}
	if space == core.CPU {
		a.active = ptr
	}
	return a
}

// FromPointer rebuilds a handle from a raw pointer previously handed
// out by this manager. This is the explicit, unsafe counterpart of
// implicit pointer conversion: a pointer the manager does not know is
// a contract violation.
func FromPointer[T any](m *manager.Manager, ptr unsafe.Pointer) Array[T] {
	rec := m.Lookup(ptr)
	if rec == nil {
		panic(fmt.Errorf("%w: %p", core.ErrInvalidExternalPointer, ptr))
	}
	return Array[T]{
		active:     ptr,
		elems:      int(rec.Size() / mustSizeOf[T]()),
		rm:         m,
		rec:        rec,
		observable: true,
	}
}
