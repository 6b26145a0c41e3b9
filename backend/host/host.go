package host

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

// mapThreshold is the allocation size above which buffers come from
// anonymous mmap instead of the Go heap. Page-aligned buffers matter
// for pinned-transfer interop with device runtimes.
const mapThreshold = 1 << 20

// Backend implements backend.Backend for host memory.
type Backend struct{}

func init() {
	backend.Register(&Backend{})
}

func (b *Backend) Name() string      { return "host" }
func (b *Backend) Space() core.Space { return core.CPU }

func (b *Backend) Alloc(byteLen int) (backend.Storage, error) {
	if byteLen >= mapThreshold {
		if data, ok := mapAlloc(byteLen); ok {
			return &storage{data: data, mapped: true}, nil
		}
	}
	return &storage{data: make([]byte, byteLen)}, nil
}

func (b *Backend) Wrap(ptr unsafe.Pointer, byteLen int) backend.Storage {
	return &storage{data: unsafe.Slice((*byte)(ptr), byteLen), ext: true}
}

func (b *Backend) Free(s backend.Storage) {
	s.Free()
}

func (b *Backend) Copy(dst, src backend.Storage, n int) error {
	if dst.ByteLen() < n || src.ByteLen() < n {
		return fmt.Errorf("host copy of %d bytes exceeds storage", n)
	}
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
