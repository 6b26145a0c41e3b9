//go:build cuda

package cuda

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/core"
)

// Storage is a device memory buffer. The pointer is a CUDA device
// pointer, a numeric handle that must never be dereferenced on the host.
type Storage struct {
	ptr     uintptr
	byteLen int
}

func alloc(byteLen int) (*Storage, error) {
	s := &Storage{byteLen: byteLen}
	if r := cuMemAlloc(&s.ptr, uint64(byteLen)); r != CUDA_SUCCESS {
		return nil, fmt.Errorf("cuMemAlloc(%d bytes): %s", byteLen, r.Error())
	}
	return s, nil
}

func (s *Storage) Space() core.Space   { return core.GPU }
func (s *Storage) Ptr() unsafe.Pointer { return unsafe.Pointer(s.ptr) }
func (s *Storage) Bytes() []byte       { return nil } // device memory, no host access
func (s *Storage) ByteLen() int        { return s.byteLen }

// Free releases the device buffer. The residency tracker never calls
// this for wrapped pointers it does not own.
func (s *Storage) Free() {
	if s.ptr != 0 {
		cuMemFree(s.ptr)
	}
	s.ptr = 0
}
