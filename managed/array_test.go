package managed_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	_ "github.com/djeday123/gomanaged/backend/host"
	_ "github.com/djeday123/gomanaged/backend/sim"
	"github.com/djeday123/gomanaged/core"
	"github.com/djeday123/gomanaged/managed"
	"github.com/djeday123/gomanaged/manager"
)

func newManager(t *testing.T) *manager.Manager {
	t.Helper()
	m, err := manager.New(manager.DefaultConfig())
	require.NoError(t, err)
	return m
}

// moveCounter tallies migration events per destination space.
type moveCounter struct {
	moves     map[core.Space]int
	lastBytes int64
}

func newMoveCounter() *moveCounter {
	return &moveCounter{moves: make(map[core.Space]int)}
}

func (c *moveCounter) callback(action core.Action, space core.Space, bytes int64) {
	if action == core.ActionMove {
		c.moves[space]++
		c.lastBytes = bytes
	}
}

func (c *moveCounter) total() int {
	n := 0
	for _, v := range c.moves {
		n += v
	}
	return n
}

func requirePanicsIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value is not an error: %v", r)
		require.ErrorIs(t, err, target)
	}()
	fn()
}

func TestScenarioWriteThenHandOff(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.CPU, cnt.callback))
	a.Set(2, 42)

	g := a.ToSpace(core.GPU)
	require.Equal(t, int32(42), g.Get(2))
	require.Equal(t, 1, cnt.moves[core.GPU])
	require.Equal(t, 1, cnt.total())
	require.Equal(t, int64(16), cnt.lastBytes)
}

func TestRoundTripCoherence(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[float64](m, 8, core.CPU)
	require.NoError(t, err)
	for i := 0; i < a.Size(); i++ {
		a.Set(i, float64(i)*1.5)
	}

	g := a.ToSpace(core.GPU)
	back := g.ToSpace(core.CPU)
	for i := 0; i < back.Size(); i++ {
		require.Equal(t, float64(i)*1.5, back.Get(i))
	}
}

func TestTouchTriggersExactlyOneMigration(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.CPU, cnt.callback))
	a.Set(0, 1)

	g := a.ToSpace(core.GPU)
	g.Set(1, 99)

	c := g.ToSpace(core.CPU)
	require.Equal(t, int32(99), c.Get(1))
	require.Equal(t, 1, cnt.moves[core.CPU], "exactly one migration back to the host")
}

func TestTouchAheadOfResidency(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.CPU, cnt.callback))
	a.Set(1, 5)

	// registering a touch in a space with no copy yet must not
	// make later hand-offs migrate from it
	a.RegisterTouch(core.GPU)

	h := a.ToSpace(core.CPU)
	require.Equal(t, int32(5), h.Get(1))
	require.Equal(t, 0, cnt.total())
}

func TestZeroSizedElementRejected(t *testing.T) {
	m := newManager(t)
	requirePanicsIs(t, core.ErrZeroSizedElement, func() {
		_, _ = managed.MakeWith[struct{}](m, 4, core.CPU)
	})
}

func TestIncidentalCopyIdempotence(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.CPU, cnt.callback))
	a.Set(2, 7)

	// one observable hand-off, then the handle rides inside a value
	type kernelArgs struct {
		arr   managed.Array[int32]
		scale int32
	}
	args := kernelArgs{arr: a.ToSpace(core.GPU).Incidental(), scale: 3}
	require.Equal(t, 1, cnt.total())

	for i := 0; i < 16; i++ {
		inner := args // nested structural copy
		nested := inner.arr.ToSpace(core.CPU)
		require.Equal(t, int32(7), nested.Get(2))
	}
	require.Equal(t, 1, cnt.total(), "incidental copies must not migrate")
}

func TestIncidentalFreeIsStorageNoOp(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	a.Set(0, 5)

	inc := a.Incidental()
	inc.Free()
	require.Equal(t, int32(5), a.Get(0), "incidental Free must not release storage")
}

func TestResetClearsCoherence(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[float32](m)
	require.NoError(t, a.Allocate(8, core.CPU, cnt.callback))
	a.Set(3, 2.5)

	a.Reset()
	g := a.ToSpace(core.GPU)
	require.Equal(t, 0, cnt.total(), "first access after reset is a first touch")
	_ = g
}

func TestReallocatePreservesPrefix(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 8, core.CPU)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		a.Set(i, int32(100+i))
	}
	g := a.ToSpace(core.GPU) // second resident space
	require.Equal(t, int32(107), g.Get(7))

	require.NoError(t, a.Reallocate(4))
	require.Equal(t, 4, a.Size())
	for i := 0; i < 4; i++ {
		require.Equal(t, int32(100+i), a.Get(i))
	}

	// the GPU copy was resized in place as well
	g2 := a.ToSpace(core.GPU)
	require.Equal(t, 4, g2.Size())
	for i := 0; i < 4; i++ {
		require.Equal(t, int32(100+i), g2.Get(i))
	}
}

func TestReallocateGrows(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 2, core.CPU)
	require.NoError(t, err)
	a.Set(1, 11)

	require.NoError(t, a.Reallocate(6))
	require.Equal(t, 6, a.Size())
	require.Equal(t, int32(11), a.Get(1))
	a.Set(5, 55)
	require.Equal(t, int32(55), a.Get(5))
}

func TestFreeThenIndexPanics(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	a.Free()
	requirePanicsIs(t, core.ErrUseAfterFree, func() { a.Get(0) })
}

func TestFreeThenCopyPanics(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	a.Free()
	requirePanicsIs(t, core.ErrUseAfterFree, func() { a.ToSpace(core.GPU) })
}

func TestDoubleFreePanics(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	a.Free()
	requirePanicsIs(t, core.ErrDoubleFree, func() { a.Free() })
}

func TestIndexOutOfRangePanics(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	requirePanicsIs(t, core.ErrIndexOutOfRange, func() { a.Get(4) })
	requirePanicsIs(t, core.ErrIndexOutOfRange, func() { a.Get(-1) })
}

func TestEmptyHandle(t *testing.T) {
	m := newManager(t)
	a := managed.NewWith[int32](m)
	require.Equal(t, 0, a.Size())
	require.Nil(t, a.Data())

	b := a.ToSpace(core.GPU) // no allocation, no migration
	require.Equal(t, 0, b.Size())

	a.Free() // storage no-op
	requirePanicsIs(t, core.ErrUseAfterFree, func() { a.Get(0) })
}

func TestClearDetachesWithoutFreeing(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[int32](m, 4, core.CPU)
	require.NoError(t, err)
	a.Set(1, 8)

	b := a.ToSpace(core.CPU)
	a.Clear()
	require.Equal(t, 0, a.Size())
	require.Equal(t, int32(8), b.Get(1), "clearing one handle must not release storage")
}

func TestAllocateTwicePanics(t *testing.T) {
	m := newManager(t)
	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.CPU, nil))
	requirePanicsIs(t, core.ErrAlreadyAllocated, func() { _ = a.Allocate(4, core.CPU, nil) })
}

func TestReallocateUnallocatedPanics(t *testing.T) {
	m := newManager(t)
	a := managed.NewWith[int32](m)
	requirePanicsIs(t, core.ErrReallocateUnallocated, func() { _ = a.Reallocate(8) })
}

func TestDeviceAllocationResolvesOnFirstCopy(t *testing.T) {
	m := newManager(t)
	cnt := newMoveCounter()

	a := managed.NewWith[int32](m)
	require.NoError(t, a.Allocate(4, core.GPU, cnt.callback))
	// construction ran on the host: no usable pointer yet
	requirePanicsIs(t, core.ErrUseAfterFree, func() { a.Get(0) })

	g := a.ToSpace(core.GPU)
	g.Set(0, 1)
	require.Equal(t, int32(1), g.Get(0))
	require.Equal(t, 0, cnt.total())
}

func TestDataSliceView(t *testing.T) {
	m := newManager(t)
	a, err := managed.MakeWith[float32](m, 4, core.CPU)
	require.NoError(t, err)
	d := a.Data()
	d[2] = 3.25
	require.Equal(t, float32(3.25), a.Get(2))
	require.Equal(t, unsafe.Pointer(a.At(0)), unsafe.Pointer(&d[0]))
}
