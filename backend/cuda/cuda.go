//go:build cuda

// Package cuda provides the real NVIDIA device backend.
//
// Registration: import _ "github.com/djeday123/gomanaged/backend/cuda"
// (which replaces the sim backend for the GPU space if both are linked).
// The driver is initialized lazily on first allocation.
package cuda

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

// Backend implements backend.Backend over the CUDA driver API.
type Backend struct {
	mu          sync.Mutex
	initialized bool
	device      int32
	ctx         uintptr
}

func init() {
	backend.Register(&Backend{})
}

func (b *Backend) Name() string      { return "cuda" }
func (b *Backend) Space() core.Space { return core.GPU }

// ensureInit loads the driver and creates a context on device 0.
func (b *Backend) ensureInit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	if err := initDriver(); err != nil {
		return err
	}
	if err := check(cuInit(0), "cuInit"); err != nil {
		return err
	}
	if err := check(cuDeviceGet(&b.device, 0), "cuDeviceGet"); err != nil {
		return err
	}
	if err := check(cuCtxCreate(&b.ctx, 0, b.device), "cuCtxCreate"); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

func (b *Backend) Alloc(byteLen int) (backend.Storage, error) {
	if err := b.ensureInit(); err != nil {
		return nil, err
	}
	return alloc(byteLen)
}

func (b *Backend) Wrap(ptr unsafe.Pointer, byteLen int) backend.Storage {
	return &Storage{ptr: uintptr(ptr), byteLen: byteLen}
}

func (b *Backend) Free(s backend.Storage) {
	s.Free()
}

func (b *Backend) Copy(dst, src backend.Storage, n int) error {
	d, ok1 := dst.(*Storage)
	s, ok2 := src.(*Storage)
	if !ok1 || !ok2 {
		return fmt.Errorf("cuda copy: storage not device-resident")
	}
	return check(cuMemcpyDtoD(d.ptr, s.ptr, uint64(n)), "cuMemcpyDtoD")
}

func (b *Backend) Upload(dst backend.Storage, src []byte, n int) error {
	d, ok := dst.(*Storage)
	if !ok {
		return fmt.Errorf("cuda upload: storage not device-resident")
	}
	return check(cuMemcpyHtoD(d.ptr, unsafe.Pointer(&src[0]), uint64(n)), "cuMemcpyHtoD")
}

func (b *Backend) Download(dst []byte, src backend.Storage, n int) error {
	s, ok := src.(*Storage)
	if !ok {
		return fmt.Errorf("cuda download: storage not device-resident")
	}
	return check(cuMemcpyDtoH(unsafe.Pointer(&dst[0]), s.ptr, uint64(n)), "cuMemcpyDtoH")
}
