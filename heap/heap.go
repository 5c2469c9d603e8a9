package heap

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/rbridge/errors"
)

// Heap is a single-threaded managed heap. It is NOT safe for concurrent
// use: every call must happen on one logical thread (see Do). The only
// exception is Root.ReleaseDeferred, which may be called from anywhere.
type Heap struct {
	cfg       Config
	log       *zap.Logger
	memory    *linearMemory
	alloc     *allocator
	objects   *table
	stack     []Handle
	preserved map[Handle]int
	observers []subscription

	deferredMu sync.Mutex
	deferred   []Handle

	thread *thread

	nextObserver int
	sinceGC      int
	collecting   bool
	collections  int
	freed        int
	finalized    int
	closed       bool
}

type subscription struct {
	o  Observer
	id int
}

// New creates a heap with default configuration.
func New(ctx context.Context) (*Heap, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a heap with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*Heap, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	mem, err := newLinearMemory(ctx, c.InitialPages, c.MemoryLimitPages)
	if err != nil {
		return nil, err
	}

	h := &Heap{
		cfg:       c,
		log:       c.Logger,
		memory:    mem,
		alloc:     newAllocator(mem.mem),
		objects:   newTable(),
		preserved: make(map[Handle]int),
	}
	h.thread = newThread()
	return h, nil
}

// Config returns the effective configuration.
func (h *Heap) Config() Config {
	return h.cfg
}

// Close releases linear memory and stops the heap thread. With
// FinalizeOnClose, pending external pointer finalizers run first.
func (h *Heap) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	if h.cfg.FinalizeOnClose {
		h.objects.each(func(handle Handle, e *entry) bool {
			h.runFinalizer(handle, e)
			return true
		})
	}
	h.closed = true
	h.thread.stop()
	h.objects = newTable()
	h.stack = nil
	h.preserved = nil
	return h.memory.close(ctx)
}

// AllocVector allocates a zero-filled materialized vector: 0.0 for
// doubles, 0 for integers, FALSE for logicals. May trigger a collection
// before allocating, so callers must protect every handle they still need.
func (h *Heap) AllocVector(typ Type, length int) (Handle, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	if !typ.IsVector() {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Op("alloc_vector").RType(typ.String()).Detail("not a vector type").Build()
	}
	if length < 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "negative vector length")
	}
	size64 := uint64(length) * uint64(typ.ElemSize())
	if size64 > uint64(^uint32(0)) {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, ^uint32(0), allocAlign)
	}
	size := uint32(size64)

	h.maybeCollect()

	var off uint32
	if size > 0 {
		var err error
		off, err = h.alloc.Alloc(size, allocAlign)
		if err != nil {
			// Retry once after reclaiming garbage.
			h.Collect()
			off, err = h.alloc.Alloc(size, allocAlign)
			if err != nil {
				return 0, err
			}
		}
	}

	handle := h.objects.insert(entry{
		typ:    typ,
		length: length,
		offset: off,
		size:   size,
	})
	h.notify(Event{Type: EventAllocated, Handle: handle, Object: typ, Length: length})
	return handle, nil
}

// AllocAltrep registers a lazily backed vector. The payload produces the
// elements; the heap only stores it and never reads it.
func (h *Heap) AllocAltrep(typ Type, length int, payload any) (Handle, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	if !typ.IsVector() {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Op("alloc_altrep").RType(typ.String()).Detail("not a vector type").Build()
	}
	if length < 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "negative vector length")
	}

	h.maybeCollect()

	handle := h.objects.insert(entry{
		typ:     typ,
		length:  length,
		payload: payload,
		altrep:  true,
	})
	h.notify(Event{Type: EventAllocated, Handle: handle, Object: typ, Length: length})
	return handle, nil
}

// Duplicate makes an unshared copy. Materialized data is copied; altrep
// vectors share their (pure) payload.
func (h *Heap) Duplicate(handle Handle) (Handle, error) {
	e, err := h.entry(handle, "duplicate")
	if err != nil {
		return 0, err
	}
	if !e.typ.IsVector() {
		return 0, errors.Unsupported(errors.PhaseAlloc, "duplicate "+e.typ.String())
	}
	if e.altrep {
		return h.AllocAltrep(e.typ, e.length, e.payload)
	}

	typ, length := e.typ, e.length
	h.Protect(handle)
	dup, err := h.AllocVector(typ, length)
	h.mustUnprotect(1)
	if err != nil {
		return 0, err
	}

	src, err := h.Data(handle)
	if err != nil {
		return 0, err
	}
	dst, err := h.Data(dup)
	if err != nil {
		return 0, err
	}
	copy(dst, src)
	return dup, nil
}

// Data returns the storage of a materialized vector as a view into linear
// memory. Writes through the view are visible to every holder of the handle.
func (h *Heap) Data(handle Handle) ([]byte, error) {
	e, err := h.entry(handle, "data")
	if err != nil {
		return nil, err
	}
	if e.altrep {
		return nil, errors.Ownership(errors.PhaseAccess, "data", "vector has no addressable storage")
	}
	if !e.typ.IsVector() {
		return nil, errors.TypeMismatch(errors.PhaseAccess, "", e.typ.String())
	}
	data, err := h.memory.view(e.offset, e.size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseAccess, errors.KindOutOfBounds, err, "vector storage")
	}
	return data, nil
}

// Altrep returns the payload of a lazily backed vector.
func (h *Heap) Altrep(handle Handle) (any, bool) {
	e, ok := h.objects.get(handle)
	if !ok || !e.altrep {
		return nil, false
	}
	return e.payload, true
}

// IsAltrep reports whether the vector is lazily backed.
func (h *Heap) IsAltrep(handle Handle) bool {
	e, ok := h.objects.get(handle)
	return ok && e.altrep
}

// TypeOf returns the type tag, or NilSxp for dead or NULL handles.
func (h *Heap) TypeOf(handle Handle) Type {
	e, ok := h.objects.get(handle)
	if !ok {
		return NilSxp
	}
	return e.typ
}

// Length returns the element count of a vector, 0 otherwise.
func (h *Heap) Length(handle Handle) int {
	e, ok := h.objects.get(handle)
	if !ok {
		return 0
	}
	return e.length
}

// Live reports whether handle refers to a live object.
func (h *Heap) Live(handle Handle) bool {
	_, ok := h.objects.get(handle)
	return ok
}

// MarkShared records that foreign code may hold the object, so native
// code no longer owns it exclusively.
func (h *Heap) MarkShared(handle Handle) {
	if e, ok := h.objects.get(handle); ok {
		e.shared = true
	}
}

// IsShared reports whether more than one owner may observe the object:
// it was marked shared or is preserved by more than one root.
func (h *Heap) IsShared(handle Handle) bool {
	e, ok := h.objects.get(handle)
	if !ok {
		return false
	}
	return e.shared || h.preserved[handle] > 1
}

// Value wraps a handle as a boundary value.
func (h *Heap) Value(handle Handle) Value {
	return Value{heap: h, handle: handle}
}

// Each visits every live object in handle order.
func (h *Heap) Each(fn func(Value) bool) {
	h.objects.each(func(handle Handle, _ *entry) bool {
		return fn(h.Value(handle))
	})
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (h *Heap) Subscribe(o Observer) (unsubscribe func()) {
	h.nextObserver++
	id := h.nextObserver
	h.observers = append(h.observers, subscription{id: id, o: o})
	return func() {
		for i, s := range h.observers {
			if s.id == id {
				h.observers = append(h.observers[:i], h.observers[i+1:]...)
				return
			}
		}
	}
}

// Stats returns a snapshot of heap bookkeeping.
func (h *Heap) Stats() Stats {
	return Stats{
		Live:        h.objects.live,
		Protected:   len(h.stack),
		Preserved:   len(h.preserved),
		BytesInUse:  h.alloc.inUse,
		Collections: h.collections,
		Freed:       h.freed,
		Finalized:   h.finalized,
	}
}

func (h *Heap) entry(handle Handle, op string) (*entry, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	e, ok := h.objects.get(handle)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseAccess, op, uint32(handle))
	}
	return e, nil
}

func (h *Heap) checkOpen() error {
	if h.closed {
		return errors.Closed(errors.PhaseRuntime, "heap")
	}
	return nil
}

func (h *Heap) notify(e Event) {
	for _, s := range h.observers {
		s.o.OnHeapEvent(e)
	}
}
