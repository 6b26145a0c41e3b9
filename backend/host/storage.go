package host

import (
	"unsafe"

	"github.com/djeday123/gomanaged/core"
)

// storage is a host memory buffer backed by a Go byte slice.
// Large buffers come from anonymous mmap for page alignment.
type storage struct {
	data   []byte
	mapped bool
	ext    bool // adopted via Wrap, never released by Free
}

func (s *storage) Space() core.Space { return core.CPU }

func (s *storage) Ptr() unsafe.Pointer {
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&s.data[0])
}

func (s *storage) Bytes() []byte { return s.data }

func (s *storage) ByteLen() int { return len(s.data) }

func (s *storage) Free() {
	if s.mapped && !s.ext {
		mapFree(s.data)
	}
	s.data = nil
	s.mapped = false
}
