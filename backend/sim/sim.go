// Package sim provides a simulated accelerator backend.
//
// Buffers are ordinary host allocations standing in for device memory,
// so the full residency protocol (including element access from "device"
// code) is exercisable on machines without an accelerator. The real
// device backend lives in backend/cuda behind the cuda build tag.
package sim

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

// DefaultCapacity bounds total simulated device memory.
const DefaultCapacity = 1 << 30

// Backend implements backend.Backend for a simulated GPU.
type Backend struct {
	mu       sync.Mutex
	capacity int
	used     int
}

func init() {
	backend.Register(&Backend{capacity: DefaultCapacity})
}

func (b *Backend) Name() string      { return "sim" }
func (b *Backend) Space() core.Space { return core.GPU }

func (b *Backend) Alloc(byteLen int) (backend.Storage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used+byteLen > b.capacity {
		return nil, fmt.Errorf("insufficient device memory: need %d, available %d",
			byteLen, b.capacity-b.used)
	}
	b.used += byteLen
	return &storage{data: make([]byte, byteLen), owner: b}, nil
}

func (b *Backend) Wrap(ptr unsafe.Pointer, byteLen int) backend.Storage {
	return &storage{data: unsafe.Slice((*byte)(ptr), byteLen), ext: true, owner: b}
}

func (b *Backend) Free(s backend.Storage) {
	s.Free()
}

func (b *Backend) Copy(dst, src backend.Storage, n int) error {
	copy(dst.Bytes()[:n], src.Bytes()[:n])
	return nil
}

func (b *Backend) Upload(dst backend.Storage, src []byte, n int) error {
	copy(dst.Bytes()[:n], src[:n])
	return nil
}

func (b *Backend) Download(dst []byte, src backend.Storage, n int) error {
	copy(dst[:n], src.Bytes()[:n])
	return nil
}

// Used returns the currently allocated simulated device bytes.
func (b *Backend) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *Backend) release(n int) {
	b.mu.Lock()
	b.used -= n
	b.mu.Unlock()
}

// storage is a simulated device buffer. Bytes() is host-addressable on
// purpose: it is what lets "device context" code index the array.
type storage struct {
	data  []byte
	ext   bool
	owner *Backend
}

func (s *storage) Space() core.Space { return core.GPU }

func (s *storage) Ptr() unsafe.Pointer {
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&s.data[0])
}

func (s *storage) Bytes() []byte { return s.data }

func (s *storage) ByteLen() int { return len(s.data) }

func (s *storage) Free() {
	if s.data != nil && !s.ext {
		s.owner.release(len(s.data))
	}
	s.data = nil
}
