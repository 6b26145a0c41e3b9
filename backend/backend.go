package backend

import (
	"fmt"
	"unsafe"

	"github.com/djeday123/gomanaged/core"
)

// Storage represents a raw memory buffer resident in one execution space.
type Storage interface {
	// Space returns which execution space this storage lives in.
	Space() core.Space

	// Ptr returns the raw pointer to the data.
	// For host storage this is a Go pointer, for device storage it is
	// a device pointer that must not be dereferenced on the host.
	Ptr() unsafe.Pointer

	// Bytes returns the underlying byte slice when the storage is
	// host-addressable, nil otherwise.
	Bytes() []byte

	// ByteLen returns the total size in bytes.
	ByteLen() int

	// Free releases the memory.
	Free()
}

// Backend allocates and moves memory for one execution space.
type Backend interface {
	Name() string
	Space() core.Space

	// Alloc allocates byteLen bytes in this backend's space.
	Alloc(byteLen int) (Storage, error)

	// Wrap adopts an existing pointer in this backend's space without
	// allocating. The returned storage never releases the memory on
	// Free unless the backend owns pointers of this kind.
	Wrap(ptr unsafe.Pointer, byteLen int) Storage

	// Free releases a storage obtained from this backend.
	Free(s Storage)

	// Copy moves n bytes between two storages in this space.
	Copy(dst, src Storage, n int) error

	// Upload moves n bytes of host memory into dst.
	Upload(dst Storage, src []byte, n int) error

	// Download moves n bytes of src into host memory.
	Download(dst []byte, src Storage, n int) error
}

// Registry holds all available backends, one per space.
var registry = map[core.Space]Backend{}

// Register adds a backend to the global registry, replacing any
// previous backend for the same space.
func Register(b Backend) {
	registry[b.Space()] = b
}

// Get returns the backend for a space.
func Get(space core.Space) (Backend, error) {
	b, ok := registry[space]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no registered backend", core.ErrSpaceUnavailable, space)
	}
	return b, nil
}

// Transfer copies n bytes from src to dst across any pair of spaces.
// Host-addressable endpoints go through memmove; device endpoints go
// through their backend's Upload/Download, staging through the host
// when both ends are non-addressable and live in different spaces.
func Transfer(dst, src Storage, n int) error {
	if n == 0 {
		return nil
	}
	db, sb := dst.Bytes(), src.Bytes()
	switch {
	case db != nil && sb != nil:
		copy(db[:n], sb[:n])
		return nil
	case db != nil:
		be, err := Get(src.Space())
		if err != nil {
			return err
		}
		return be.Download(db[:n], src, n)
	case sb != nil:
		be, err := Get(dst.Space())
		if err != nil {
			return err
		}
		return be.Upload(dst, sb[:n], n)
	}
	if dst.Space() == src.Space() {
		be, err := Get(dst.Space())
		if err != nil {
			return err
		}
		return be.Copy(dst, src, n)
	}
	staging := make([]byte, n)
	sbe, err := Get(src.Space())
	if err != nil {
		return err
	}
	if err := sbe.Download(staging, src, n); err != nil {
		return err
	}
	dbe, err := Get(dst.Space())
	if err != nil {
		return err
	}
	return dbe.Upload(dst, staging, n)
}
