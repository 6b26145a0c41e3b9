// Package manager implements the residency tracker shared by all
// managed arrays: per-array pointer tables, touched-space bookkeeping,
// migration, and memory-event callbacks.
//
// Coherence state is per-record and deliberately unsynchronized:
// concurrent observable copies of the same array from multiple host
// threads are a race and must be serialized by the caller. Only the
// pointer registry itself is guarded, for map integrity.
package manager

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

// Manager tracks every managed allocation in the process.
type Manager struct {
	mu    sync.Mutex
	byPtr map[uintptr]*Record

	defaultSpace core.Space
	log          zerolog.Logger
}

var (
	instance *Manager
	once     sync.Once
)

// Instance returns the process-wide manager, constructing it with the
// default configuration on first use.
func Instance() *Manager {
	once.Do(func() {
		m, err := New(DefaultConfig())
		if err != nil {
			panic(err)
		}
		instance = m
	})
	return instance
}

// New builds a manager from a configuration. Handles are normally bound
// to Instance(); tests inject their own manager here.
func New(cfg Config) (*Manager, error) {
	space, err := core.ParseSpace(cfg.DefaultSpace)
	if err != nil {
		return nil, err
	}
	if space == core.NONE {
		space = core.CPU
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bad log_level %q: %w", cfg.LogLevel, err)
	}
	return &Manager{
		byPtr:        make(map[uintptr]*Record),
		defaultSpace: space,
		log:          zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level),
	}, nil
}

// DefaultSpace is the space used when callers pass core.NONE.
func (m *Manager) DefaultSpace() core.Space { return m.defaultSpace }

// Allocate creates a new record with byteSize bytes resident in the
// given space. An unregistered space is a contract violation; failure
// of the underlying allocation is returned as core.ErrAllocationFailed.
func (m *Manager) Allocate(byteSize int64, space core.Space, cb Callback) (*Record, error) {
	if space == core.NONE {
		space = m.defaultSpace
	}
	be := m.backendFor(space)
	st, err := be.Alloc(int(byteSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes in %s: %v", core.ErrAllocationFailed, byteSize, space, err)
	}
	rec := &Record{size: byteSize, last: space, owned: true, extSpace: core.NONE, cb: cb}
	rec.storages[space] = st
	m.registerPtr(st.Ptr(), rec)
	rec.emit(core.ActionAlloc, space, byteSize)
	m.log.Debug().Stringer("space", space).Int64("bytes", byteSize).Msg("alloc")
	return rec, nil
}

// MakeManaged adopts an externally allocated pointer resident in the
// given space. When owned is true, FreeAll releases it like any other
// allocation; otherwise the memory is left alone.
func (m *Manager) MakeManaged(ptr unsafe.Pointer, byteSize int64, space core.Space, owned bool) *Record {
	if space == core.NONE {
		space = m.defaultSpace
	}
	be := m.backendFor(space)
	rec := &Record{size: byteSize, last: space, owned: owned, extSpace: space}
	rec.storages[space] = be.Wrap(ptr, int(byteSize))
	m.registerPtr(ptr, rec)
	m.log.Debug().Stringer("space", space).Int64("bytes", byteSize).Bool("owned", owned).Msg("adopt")
	return rec
}

// Resolve returns the pointer resident in the given space, migrating
// the authoritative copy there first when the destination is stale.
// The authoritative copy is the one in the last touched space; if no
// space has been touched yet, the destination becomes authoritative
// with no data movement. When mutable, the destination is marked
// touched so later resolves elsewhere migrate fresh data.
func (m *Manager) Resolve(rec *Record, space core.Space, mutable bool) (unsafe.Pointer, error) {
	m.check(rec)
	if space == core.NONE {
		space = m.defaultSpace
	}
	st := rec.storages[space]
	if st == nil {
		be := m.backendFor(space)
		var err error
		st, err = be.Alloc(int(rec.size))
		if err != nil {
			return nil, fmt.Errorf("%w: %d bytes in %s: %v", core.ErrAllocationFailed, rec.size, space, err)
		}
		rec.storages[space] = st
		m.registerPtr(st.Ptr(), rec)
		rec.emit(core.ActionAlloc, space, rec.size)
		m.log.Debug().Stringer("space", space).Int64("bytes", rec.size).Msg("alloc")
	}
	// A touched space with no resident copy has nothing to migrate
	// (RegisterTouch can run ahead of residency); treat it as a first
	// touch of the destination.
	if rec.last != core.NONE && rec.last != space && rec.touched[rec.last] && rec.storages[rec.last] != nil {
		if err := backend.Transfer(st, rec.storages[rec.last], int(rec.size)); err != nil {
			return nil, fmt.Errorf("migrate %d bytes %s->%s: %w", rec.size, rec.last, space, err)
		}
		rec.emit(core.ActionMove, space, rec.size)
		m.log.Debug().Stringer("from", rec.last).Stringer("to", space).
			Int64("bytes", rec.size).Msg("move")
	}
	rec.last = space
	if mutable {
		rec.touched[space] = true
	}
	return st.Ptr(), nil
}

// RegisterTouch marks a space as written, making it authoritative.
func (m *Manager) RegisterTouch(rec *Record, space core.Space) {
	m.check(rec)
	if space == core.NONE {
		space = m.defaultSpace
	}
	rec.touched[space] = true
	rec.last = space
}

// ResetTouch clears all touched state. The next access from any space
// is treated as a first touch: no migration fires and the data already
// resident there is trusted as authoritative.
func (m *Manager) ResetTouch(rec *Record) {
	m.check(rec)
	for sp := range rec.touched {
		rec.touched[sp] = false
	}
}

// SetCallback registers the memory-event callback for one array.
func (m *Manager) SetCallback(rec *Record, cb Callback) {
	m.check(rec)
	rec.cb = cb
}

// ReallocateAll resizes the array in every space holding a resident
// copy, preserving the first min(old, new) bytes of each. It returns
// the replacement for the caller's active pointer (nil when the caller
// had none).
func (m *Manager) ReallocateAll(rec *Record, newSize int64, active unsafe.Pointer) (unsafe.Pointer, error) {
	m.check(rec)
	keep := rec.size
	if newSize < keep {
		keep = newSize
	}
	var out unsafe.Pointer
	for sp := core.Space(0); sp < core.NumSpaces; sp++ {
		old := rec.storages[sp]
		if old == nil {
			continue
		}
		be := m.backendFor(sp)
		st, err := be.Alloc(int(newSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %d bytes in %s: %v", core.ErrAllocationFailed, newSize, sp, err)
		}
		if keep > 0 {
			if err := be.Copy(st, old, int(keep)); err != nil {
				be.Free(st)
				return nil, fmt.Errorf("reallocate in %s: %w", sp, err)
			}
		}
		wasActive := old.Ptr() == active
		m.unregisterPtr(old.Ptr())
		if !(sp == rec.extSpace && !rec.owned) {
			be.Free(old)
		}
		rec.storages[sp] = st
		m.registerPtr(st.Ptr(), rec)
		rec.emit(core.ActionAlloc, sp, newSize)
		rec.emit(core.ActionFree, sp, rec.size)
		m.log.Debug().Stringer("space", sp).Int64("from", rec.size).Int64("to", newSize).Msg("realloc")
		if wasActive {
			out = st.Ptr()
		}
	}
	// every copy is manager-allocated from here on
	rec.extSpace = core.NONE
	rec.owned = true
	rec.size = newSize
	return out, nil
}

// FreeAll releases the array in every resident space. Unowned wrapped
// memory is unregistered but not released. The record is poisoned so
// any later use fails loudly.
func (m *Manager) FreeAll(rec *Record) {
	if rec.freed {
		panic(fmt.Errorf("%w: record already freed", core.ErrDoubleFree))
	}
	for sp := core.Space(0); sp < core.NumSpaces; sp++ {
		st := rec.storages[sp]
		if st == nil {
			continue
		}
		m.unregisterPtr(st.Ptr())
		if !(sp == rec.extSpace && !rec.owned) {
			m.backendFor(sp).Free(st)
		}
		rec.storages[sp] = nil
		rec.emit(core.ActionFree, sp, rec.size)
		m.log.Debug().Stringer("space", sp).Int64("bytes", rec.size).Msg("free")
	}
	rec.freed = true
}

// Lookup returns the record owning a pointer previously handed out by
// this manager, or nil for foreign pointers.
func (m *Manager) Lookup(ptr unsafe.Pointer) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPtr[uintptr(ptr)]
}

func (m *Manager) backendFor(space core.Space) backend.Backend {
	be, err := backend.Get(space)
	if err != nil {
		panic(err)
	}
	return be
}

func (m *Manager) check(rec *Record) {
	if rec == nil || rec.freed {
		panic(fmt.Errorf("%w: record released", core.ErrUseAfterFree))
	}
}

func (m *Manager) registerPtr(ptr unsafe.Pointer, rec *Record) {
	if ptr == nil {
		return
	}
	m.mu.Lock()
	m.byPtr[uintptr(ptr)] = rec
	m.mu.Unlock()
}

func (m *Manager) unregisterPtr(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	m.mu.Lock()
	delete(m.byPtr, uintptr(ptr))
	m.mu.Unlock()
}
