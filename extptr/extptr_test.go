package extptr_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/extptr"
	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
	"github.com/wippyai/rbridge/vector"
)

func newHeap(t *testing.T, cfg *heap.Config) *heap.Heap {
	t.Helper()
	if cfg == nil {
		cfg = &heap.Config{GCInterval: -1}
	}
	h, err := heap.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

type point struct {
	x, y int
}

type resource struct {
	drops *int
	name  string
}

func (r *resource) Drop() { *r.drops++ }

func TestRoundTrip(t *testing.T) {
	h := newHeap(t, nil)

	n := 1
	p, err := extptr.New(h, &n)
	require.NoError(t, err)
	assert.Equal(t, 1, *p.Get())
	assert.Equal(t, "int", p.Tag())

	q, err := extptr.From[int](p.Value())
	require.NoError(t, err)
	assert.Same(t, p.Get(), q.Get())
	assert.Equal(t, p.Handle(), q.Handle())
}

func TestDeref(t *testing.T) {
	h := newHeap(t, nil)

	p, err := extptr.New(h, &point{x: 1, y: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Get().x)
	assert.Equal(t, 2, p.Get().y)

	p.Get().x = 10
	q, _ := extptr.From[point](p.Value())
	assert.Equal(t, 10, q.Get().x)
}

func TestRelease_ExactlyOnce(t *testing.T) {
	h := newHeap(t, nil)

	drops := 0
	p, err := extptr.New(h, &resource{drops: &drops, name: "a"})
	require.NoError(t, err)

	require.NoError(t, p.Release())
	assert.Equal(t, 1, drops, "destructor must run before Release returns")
	assert.Equal(t, extptr.StateReleased, p.State())

	h.Collect()
	h.Collect()
	assert.Equal(t, 1, drops)

	err = p.Release()
	assert.ErrorIs(t, err, rerrors.ErrDoubleRelease)
	assert.Equal(t, 1, drops)

	assert.Panics(t, func() { p.Get() })
}

func TestRelease_ThroughOtherWrapper(t *testing.T) {
	h := newHeap(t, nil)

	drops := 0
	p, _ := extptr.New(h, &resource{drops: &drops})
	q, err := p.Clone()
	require.NoError(t, err)

	require.NoError(t, q.Release())
	assert.ErrorIs(t, p.Release(), rerrors.ErrDoubleRelease)
	assert.Equal(t, extptr.StateReleased, p.State())
	assert.Panics(t, func() { p.Get() })

	_, err = extptr.From[resource](p.Value())
	assert.ErrorIs(t, err, rerrors.ErrClosed)

	p.Close()
	h.Collect()
	assert.Equal(t, 1, drops)
	assert.False(t, h.Live(p.Handle()))
}

func TestCollect_FinalizesOnceWhenUnreachable(t *testing.T) {
	h := newHeap(t, nil)

	drops := 0
	p, err := extptr.New(h, &resource{drops: &drops})
	require.NoError(t, err)
	assert.Equal(t, extptr.StateRooted, p.State())

	h.Collect()
	assert.Equal(t, 0, drops, "rooted pointer must not be finalized")

	p.Close()
	assert.Equal(t, extptr.StateUnrooted, p.State())
	assert.Equal(t, 0, drops, "Close must not destroy")

	h.Collect()
	assert.Equal(t, 1, drops)
	assert.Equal(t, extptr.StateFinalized, p.State())

	h.Collect()
	assert.Equal(t, 1, drops)
	assert.ErrorIs(t, p.Release(), rerrors.ErrDoubleRelease)
}

func TestCollect_WaitsForEveryWrapper(t *testing.T) {
	h := newHeap(t, nil)

	drops := 0
	p, _ := extptr.New(h, &resource{drops: &drops})
	q, _ := extptr.From[resource](p.Value())

	p.Close()
	h.Collect()
	assert.Equal(t, 0, drops)
	assert.Equal(t, extptr.StateRooted, q.State())

	q.Close()
	h.Collect()
	assert.Equal(t, 1, drops)
}

func TestCollect_UnreachableWrapper(t *testing.T) {
	h := newHeap(t, nil)

	drops := 0
	func() {
		_, err := extptr.New(h, &resource{drops: &drops})
		require.NoError(t, err)
	}()

	for i := 0; i < 100 && drops == 0; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
		h.Collect()
	}
	assert.Equal(t, 1, drops)
}

func TestDestructorConfig(t *testing.T) {
	h := newHeap(t, nil)

	var destroyed []int
	p, err := extptr.NewWithConfig(h, &point{x: 3}, &extptr.Config[point]{
		Tag:        "geom::point",
		Destructor: func(pt *point) { destroyed = append(destroyed, pt.x) },
	})
	require.NoError(t, err)
	assert.Equal(t, "geom::point", p.Tag())

	q, err := extptr.From[point](p.Value())
	require.NoError(t, err)
	assert.Equal(t, "geom::point", q.Tag())

	require.NoError(t, q.Release())
	assert.Equal(t, []int{3}, destroyed)
}

func TestFrom_TypeMismatch(t *testing.T) {
	h := newHeap(t, nil)

	p, _ := extptr.New(h, &point{x: 1})

	_, err := extptr.From[int](p.Value())
	assert.ErrorIs(t, err, rerrors.ErrTypeMismatch)

	_, err = extptr.From[resource](p.Value())
	assert.ErrorIs(t, err, rerrors.ErrTypeMismatch)

	v, _ := vector.FromValues(h, []scalar.Rint{1})
	_, err = extptr.From[point](v.Value())
	assert.ErrorIs(t, err, rerrors.ErrTypeMismatch)

	raw, _ := h.MakeExternalPtr("raw", "raw", 0)
	_, err = extptr.From[point](h.Value(raw))
	assert.ErrorIs(t, err, rerrors.ErrTypeMismatch)

	_, err = extptr.From[point](heap.Value{})
	assert.ErrorIs(t, err, rerrors.ErrTypeMismatch)

	// The mismatch did not disturb the original.
	assert.Equal(t, 1, p.Get().x)
}

func TestProt(t *testing.T) {
	h := newHeap(t, nil)

	v, _ := vector.FromValues(h, []scalar.Rfloat{1, 2})
	data := v.Value()

	p, err := extptr.NewWithConfig(h, &point{}, &extptr.Config[point]{Prot: data})
	require.NoError(t, err)
	v.Close()

	h.Collect()
	require.True(t, h.Live(data.Handle()), "prot must live as long as the pointer")
	assert.Equal(t, data.Handle(), p.Prot().Handle())

	p.Close()
	h.Collect()
	assert.False(t, h.Live(data.Handle()))
}

func TestGetAfterClosePanics(t *testing.T) {
	h := newHeap(t, nil)

	p, _ := extptr.New(h, &point{})
	p.Close()
	p.Close()
	assert.Panics(t, func() { p.Get() })

	_, err := p.Clone()
	assert.ErrorIs(t, err, rerrors.ErrClosed)
	assert.ErrorIs(t, p.Release(), rerrors.ErrClosed)
}

func TestNew_NilObject(t *testing.T) {
	h := newHeap(t, nil)

	_, err := extptr.New[point](h, nil)
	assert.Error(t, err)
}

func TestTorture(t *testing.T) {
	h := newHeap(t, &heap.Config{Torture: true})

	drops := 0
	var ptrs []*extptr.ExternalPtr[resource]
	for i := 0; i < 20; i++ {
		p, err := extptr.New(h, &resource{drops: &drops})
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	assert.Equal(t, 0, drops)

	for _, p := range ptrs {
		p.Close()
	}
	h.Collect()
	assert.Equal(t, 20, drops)
}

func TestFinalizeOnClose(t *testing.T) {
	h, err := heap.NewWithConfig(context.Background(), &heap.Config{FinalizeOnClose: true})
	require.NoError(t, err)

	drops := 0
	released := 0
	p, _ := extptr.New(h, &resource{drops: &drops})
	_, _ = extptr.New(h, &resource{drops: &drops})
	q, _ := extptr.New(h, &resource{drops: &released})
	require.NoError(t, q.Release())

	require.NoError(t, h.Close(context.Background()))
	assert.Equal(t, 2, drops)
	assert.Equal(t, 1, released)
	assert.Equal(t, extptr.StateFinalized, p.State())
}

func TestFinalizerPanicIsContained(t *testing.T) {
	h := newHeap(t, nil)

	p, _ := extptr.NewWithConfig(h, &point{}, &extptr.Config[point]{
		Destructor: func(*point) { panic("destructor failed") },
	})
	drops := 0
	q, _ := extptr.New(h, &resource{drops: &drops})
	p.Close()
	q.Close()

	assert.NotPanics(t, func() { h.Collect() })
	assert.Equal(t, 1, drops)
	assert.Equal(t, extptr.StateFinalized, p.State())
}
