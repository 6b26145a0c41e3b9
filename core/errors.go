package core

import "errors"

// Contract violations. These are programmer errors, not recoverable
// runtime conditions: reading stale or unallocated memory silently is
// unacceptable in numerical code, so the library panics with one of
// these sentinels wrapped in the panic value. Only allocation failure
// is surfaced as an ordinary error return, at the call site that
// requested the allocation.
var (
	ErrUseAfterFree           = errors.New("managed: use after free")
	ErrDoubleFree             = errors.New("managed: double free")
	ErrAlreadyAllocated       = errors.New("managed: allocate on non-empty array")
	ErrReallocateUnallocated  = errors.New("managed: reallocate on unallocated array")
	ErrIndexOutOfRange        = errors.New("managed: index out of range")
	ErrInvalidExternalPointer = errors.New("managed: pointer does not belong to a managed allocation")
	ErrZeroSizedElement       = errors.New("managed: zero-sized element type")
	ErrSpaceUnavailable       = errors.New("managed: execution space not available")
	ErrAllocationFailed       = errors.New("managed: allocation failed")
)
