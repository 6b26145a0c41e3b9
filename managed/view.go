package managed

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/core"
)

func sizeOf[T any]() int64 {
	var zero T
	return int64(unsafe.Sizeof(zero))
}

// mustSizeOf guards the entry points that create records: an array of
// zero-sized elements has no storage to manage.
func mustSizeOf[T any]() int64 {
	n := sizeOf[T]()
	if n == 0 {
		var zero T
		panic(fmt.Errorf("%w: %T", core.ErrZeroSizedElement, zero))
	}
	return n
}

// sliceOf interprets raw memory as a typed slice.
func sliceOf[T any](ptr unsafe.Pointer, n int) []T {
	if n == 0 || ptr == nil {
		return nil
	}
	return unsafe.Slice((*T)(ptr), n)
}
