package manager

import (
	"unsafe"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

// Callback receives memory events for one managed array: allocation,
// release, and data migration. Move events fire exactly once per actual
// migration, with the destination space and the number of bytes moved.
type Callback func(action core.Action, space core.Space, bytes int64)

// Record is the residency state of one logical array: which spaces hold
// a copy, which of them have been written, and which was resolved last.
// All handles over the same array share one Record.
type Record struct {
	storages [core.NumSpaces]backend.Storage
	touched  [core.NumSpaces]bool

	// last is the space of the most recent resolve or touch; it names
	// the authoritative copy whenever it is marked touched.
	last core.Space

	size int64

	// extSpace/owned track memory adopted from outside: an unowned
	// wrapped pointer is never released by FreeAll.
	extSpace core.Space
	owned    bool

	cb    Callback
	freed bool
}

// Size returns the allocation size in bytes.
func (r *Record) Size() int64 { return r.size }

// Freed reports whether the allocation has been released.
func (r *Record) Freed() bool { return r.freed }

// Touched reports whether the given space has a recorded write.
func (r *Record) Touched(space core.Space) bool { return r.touched[space] }

// Resident reports whether the given space currently holds a copy.
func (r *Record) Resident(space core.Space) bool { return r.storages[space] != nil }

// Pointer returns the resident pointer for a space, nil when absent.
func (r *Record) Pointer(space core.Space) unsafe.Pointer {
	if st := r.storages[space]; st != nil {
		return st.Ptr()
	}
	return nil
}

func (r *Record) emit(action core.Action, space core.Space, bytes int64) {
	if r.cb != nil {
		r.cb(action, space, bytes)
	}
}
