package vector

import (
	"context"
	"iter"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
)

// Vector is a rooted handle to a heap vector of one element kind. The
// backing is either materialized storage in the heap or a lazy generator;
// every read operation returns the same values for both.
//
// A Vector must only be used on the heap's thread. It keeps its handle
// rooted until Close; a vector that becomes unreachable without Close is
// unrooted at the next collection after the Go runtime notices.
type Vector[T Element] struct {
	heap    *heap.Heap
	root    *heap.Root
	cleanup runtime.Cleanup
	handle  heap.Handle
	length  int
}

type (
	Doubles  = Vector[scalar.Rfloat]
	Integers = Vector[scalar.Rint]
	Logicals = Vector[scalar.Rbool]
)

// New allocates a materialized vector of n elements. Elements start as
// 0.0, 0 or FALSE; never NA.
func New[T Element](h *heap.Heap, n int) (*Vector[T], error) {
	handle, err := h.AllocVector(TypeOf[T](), n)
	if err != nil {
		return nil, err
	}
	return wrap[T](h, handle), nil
}

// FromValues builds a vector holding values. Below the heap's altrep
// threshold the values are copied into heap storage; at or above it the
// vector is lazy and serves a private copy.
func FromValues[T Element](h *heap.Heap, values []T) (*Vector[T], error) {
	if len(values) >= h.Config().AltrepThreshold {
		return NewLazy(h, Slice(values))
	}
	v, err := New[T](h, len(values))
	if err != nil {
		return nil, err
	}
	copy(v.cells(), values)
	return v, nil
}

// FromFunc builds a vector whose element i is fn(i). fn must be pure.
func FromFunc[T Element](h *heap.Heap, n int, fn func(i int) T) (*Vector[T], error) {
	return FromGenerator(h, Func(n, fn))
}

// FromSeq builds a vector from a restartable sequence that yields exactly
// n values. Lazy vectors walk the sequence once up front to check its
// length.
func FromSeq[T Element](h *heap.Heap, n int, seq iter.Seq[T]) (*Vector[T], error) {
	if n >= h.Config().AltrepThreshold {
		if seqLen(seq, n+1) != n {
			return nil, seqLenError[T](n)
		}
		return NewLazy(h, Seq(n, seq))
	}
	v, err := New[T](h, n)
	if err != nil {
		return nil, err
	}
	dst := v.cells()
	i := 0
	for x := range seq {
		if i == n {
			i++
			break
		}
		dst[i] = x
		i++
	}
	if i != n {
		v.Close()
		return nil, seqLenError[T](n)
	}
	return v, nil
}

// seqLen counts the values of seq, stopping at limit.
func seqLen[T any](seq iter.Seq[T], limit int) int {
	n := 0
	for range seq {
		if n++; n == limit {
			break
		}
	}
	return n
}

func seqLenError[T Element](n int) error {
	return errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
		Op("from_seq").GoType(goType[T]()).
		Detail("sequence does not yield exactly %d values", n).Build()
}

// FromGenerator applies the altrep threshold to gen: short vectors are
// generated up front, long ones on demand.
func FromGenerator[T Element](h *heap.Heap, gen Generator[T]) (*Vector[T], error) {
	n := gen.Len()
	if n >= h.Config().AltrepThreshold {
		return NewLazy(h, gen)
	}
	v, err := New[T](h, n)
	if err != nil {
		return nil, err
	}
	fill(gen, 0, v.cells())
	return v, nil
}

// NewLazy builds a lazily backed vector regardless of length.
func NewLazy[T Element](h *heap.Heap, gen Generator[T]) (*Vector[T], error) {
	if gen.Len() < 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "negative generator length")
	}
	cfg := h.Config()
	payload := newLazy(gen, cfg.RegionSize, cfg.CacheRegions)
	handle, err := h.AllocAltrep(TypeOf[T](), gen.Len(), payload)
	if err != nil {
		return nil, err
	}
	return wrap[T](h, handle), nil
}

// TryFrom roots a boundary value as a typed vector. It fails with a type
// mismatch when the value is not a vector of T's kind.
func TryFrom[T Element](v heap.Value) (*Vector[T], error) {
	want := TypeOf[T]()
	if v.Heap() == nil || v.Type() != want {
		return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
			Op("vector.TryFrom").GoType(goType[T]()).RType(v.Type().String()).
			Detail("expected %s vector", want).Build()
	}
	return wrap[T](v.Heap(), v.Handle()), nil
}

func wrap[T Element](h *heap.Heap, handle heap.Handle) *Vector[T] {
	v := &Vector[T]{
		heap:   h,
		handle: handle,
		length: h.Length(handle),
		root:   h.Root(handle),
	}
	v.cleanup = runtime.AddCleanup(v, (*heap.Root).ReleaseDeferred, v.root)
	return v
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int {
	return v.length
}

// Handle returns the underlying heap handle.
func (v *Vector[T]) Handle() heap.Handle {
	return v.handle
}

// Value returns the boundary representation.
func (v *Vector[T]) Value() heap.Value {
	return v.heap.Value(v.handle)
}

// IsLazy reports whether elements come from a generator.
func (v *Vector[T]) IsLazy() bool {
	return v.heap.IsAltrep(v.handle)
}

// IsShared reports whether another owner may observe the storage.
func (v *Vector[T]) IsShared() bool {
	return v.heap.IsShared(v.handle)
}

// Closed reports whether Close was called.
func (v *Vector[T]) Closed() bool {
	return v.root.Released()
}

// Close unroots the vector. It is safe to call more than once.
func (v *Vector[T]) Close() {
	v.cleanup.Stop()
	v.root.Release()
}

// Elt returns element i.
func (v *Vector[T]) Elt(i int) (T, error) {
	var zero T
	if err := v.check("elt"); err != nil {
		return zero, err
	}
	if i < 0 || i >= v.length {
		return zero, errors.OutOfBounds(errors.PhaseAccess, "elt", i, v.length)
	}
	if l := v.lazy(); l != nil {
		return l.elt(i), nil
	}
	return v.cells()[i], nil
}

// GetRegion copies len(dst) elements starting at start into dst. Lazy
// vectors generate only the regions the span touches.
func (v *Vector[T]) GetRegion(start int, dst []T) error {
	if err := v.check("get_region"); err != nil {
		return err
	}
	if start < 0 || start > v.length || len(dst) > v.length-start {
		return errors.RegionOutOfBounds(errors.PhaseAccess, "get_region", start, len(dst), v.length)
	}
	if l := v.lazy(); l != nil {
		l.read(start, dst)
		return nil
	}
	copy(dst, v.cells()[start:])
	return nil
}

// SetElt writes element i in place. Only uniquely owned, materialized
// vectors may be written; Materialize or Duplicate first otherwise.
func (v *Vector[T]) SetElt(i int, x T) error {
	if err := v.checkWritable("set_elt"); err != nil {
		return err
	}
	if i < 0 || i >= v.length {
		return errors.OutOfBounds(errors.PhaseAccess, "set_elt", i, v.length)
	}
	v.cells()[i] = x
	return nil
}

// View returns the elements as a slice that must not be written. For a
// materialized vector it aliases heap storage and is valid while the
// vector is open; a lazy vector is generated into a new slice.
func (v *Vector[T]) View() ([]T, error) {
	if err := v.check("view"); err != nil {
		return nil, err
	}
	if l := v.lazy(); l != nil {
		out := make([]T, v.length)
		if err := l.generate(context.Background(), out, v.heap.Config().Workers); err != nil {
			return nil, err
		}
		return out, nil
	}
	return v.cells(), nil
}

// Mut returns a writable slice aliasing heap storage. Lazy vectors have no
// storage to alias and shared vectors are not ours to change, so both fail.
func (v *Vector[T]) Mut() ([]T, error) {
	if err := v.checkWritable("mut"); err != nil {
		return nil, err
	}
	return v.cells(), nil
}

// All yields index and element pairs in order. Each call starts a fresh
// pass; iteration stops early if the vector is closed.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		chunk := v.heap.Config().RegionSize
		buf := make([]T, min(chunk, v.length))
		for start := 0; start < v.length; start += chunk {
			n := min(chunk, v.length-start)
			if err := v.GetRegion(start, buf[:n]); err != nil {
				return
			}
			for j, x := range buf[:n] {
				if !yield(start+j, x) {
					return
				}
			}
		}
	}
}

// Values yields the elements in order.
func (v *Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.All() {
			if !yield(x) {
				return
			}
		}
	}
}

// Materialize converts a lazy vector to heap storage owned by this
// wrapper alone. Regions are generated in parallel, bounded by
// heap.Config.Workers. Other wrappers of the old handle stay lazy.
func (v *Vector[T]) Materialize(ctx context.Context) error {
	if err := v.check("materialize"); err != nil {
		return err
	}
	l := v.lazy()
	if l == nil {
		return nil
	}

	start := time.Now()
	handle, err := v.heap.AllocVector(TypeOf[T](), v.length)
	if err != nil {
		return err
	}
	root := v.heap.Root(handle)

	data, err := v.heap.Data(handle)
	if err != nil {
		root.Release()
		return err
	}
	if err := l.generate(ctx, cells[T](data), v.heap.Config().Workers); err != nil {
		root.Release()
		return err
	}

	v.cleanup.Stop()
	v.root.Release()
	v.root = root
	v.handle = handle
	v.cleanup = runtime.AddCleanup(v, (*heap.Root).ReleaseDeferred, v.root)

	v.heap.Config().Logger.Debug("materialized vector",
		zap.Stringer("type", TypeOf[T]()),
		zap.Int("length", v.length),
		zap.Uint32("handle", uint32(handle)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Clone returns a second rooted wrapper for the same handle. Both see
// each other's writes, so the storage becomes shared and read-only.
func (v *Vector[T]) Clone() (*Vector[T], error) {
	if err := v.check("clone"); err != nil {
		return nil, err
	}
	return wrap[T](v.heap, v.handle), nil
}

// Duplicate returns a copy under a new handle that is not shared with v.
// A lazy source yields a lazy duplicate over the same generator; call
// Materialize on it before writing.
func (v *Vector[T]) Duplicate() (*Vector[T], error) {
	if err := v.check("duplicate"); err != nil {
		return nil, err
	}
	handle, err := v.heap.Duplicate(v.handle)
	if err != nil {
		return nil, err
	}
	return wrap[T](v.heap, handle), nil
}

// Equal reports whether both vectors hold identical elements, NA matching
// NA, regardless of backing.
func (v *Vector[T]) Equal(o *Vector[T]) bool {
	if v.length != o.length {
		return false
	}
	next, stop := iter.Pull(o.Values())
	defer stop()
	n := 0
	for x := range v.Values() {
		y, ok := next()
		if !ok || !identical(x, y) {
			return false
		}
		n++
	}
	return n == v.length
}

// AnyNA reports whether some element is NA.
func (v *Vector[T]) AnyNA() bool {
	for x := range v.Values() {
		if isNA(x) {
			return true
		}
	}
	return false
}

const previewLen = 8

func (v *Vector[T]) String() string {
	var b strings.Builder
	b.WriteString(v.Value().String())
	if v.Closed() {
		return b.String()
	}
	b.WriteString(" [")
	for i, x := range v.All() {
		if i == previewLen {
			b.WriteString(" ...")
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(format(x))
	}
	b.WriteByte(']')
	return b.String()
}

func (v *Vector[T]) check(op string) error {
	if v.root.Released() {
		return errors.New(errors.PhaseAccess, errors.KindClosed).
			Op(op).GoType(goType[T]()).Detail("vector is closed").Build()
	}
	if !v.heap.Live(v.handle) {
		return errors.Closed(errors.PhaseAccess, "heap")
	}
	return nil
}

func (v *Vector[T]) checkWritable(op string) error {
	if err := v.check(op); err != nil {
		return err
	}
	if v.IsLazy() {
		return errors.Ownership(errors.PhaseAccess, op, "lazy vector has no writable storage; materialize first")
	}
	if v.IsShared() {
		return errors.Ownership(errors.PhaseAccess, op, "vector is shared; duplicate first")
	}
	return nil
}

func (v *Vector[T]) lazy() *lazy[T] {
	payload, ok := v.heap.Altrep(v.handle)
	if !ok {
		return nil
	}
	return payload.(*lazy[T])
}

func (v *Vector[T]) cells() []T {
	data, err := v.heap.Data(v.handle)
	if err != nil {
		return nil
	}
	return cells[T](data)
}
