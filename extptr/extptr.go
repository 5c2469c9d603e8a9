package extptr

import (
	"fmt"
	"reflect"
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/heap"
)

// Dropper is implemented by native objects that release resources when
// destroyed. It is the default destructor.
type Dropper interface {
	Drop()
}

// Config holds configuration for external pointer creation.
type Config[T any] struct {
	// Destructor runs exactly once, on Release or when the collector finds
	// the pointer unreachable. Nil means Drop for Dropper types and
	// nothing otherwise.
	Destructor func(*T)

	// Tag names the native type. Defaults to the Go type name.
	Tag string

	// Prot is kept alive for as long as the pointer is.
	Prot heap.Value
}

// cell is the heap payload shared by every wrapper of one handle.
type cell[T any] struct {
	obj        *T
	destructor func(*T)
	state      State
}

func (c *cell[T]) destroy(final State) bool {
	if c.state.destroyed() {
		return false
	}
	c.state = final
	obj := c.obj
	c.obj = nil
	if c.destructor != nil {
		c.destructor(obj)
	}
	return true
}

// ExternalPtr owns one native object through a heap handle. The object is
// destroyed exactly once: by Release, or by the collector after every
// wrapper is closed and nothing else roots the handle.
//
// Not safe for concurrent use; call it on the heap's thread.
type ExternalPtr[T any] struct {
	heap    *heap.Heap
	root    *heap.Root
	cleanup runtime.Cleanup
	cell    *cell[T]
	handle  heap.Handle
	tag     string
}

// New moves obj into a new external pointer with default configuration.
func New[T any](h *heap.Heap, obj *T) (*ExternalPtr[T], error) {
	return NewWithConfig(h, obj, nil)
}

// NewWithConfig moves obj into a new external pointer.
func NewWithConfig[T any](h *heap.Heap, obj *T, cfg *Config[T]) (*ExternalPtr[T], error) {
	if obj == nil {
		return nil, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Op("extptr.New").GoType(typeName[T]()).Detail("nil object").Build()
	}
	var c Config[T]
	if cfg != nil {
		c = *cfg
	}
	if c.Tag == "" {
		c.Tag = typeName[T]()
	}
	if c.Destructor == nil {
		c.Destructor = defaultDestructor[T]
	}

	payload := &cell[T]{obj: obj, destructor: c.Destructor, state: StateConstructed}
	handle, err := h.MakeExternalPtr(payload, c.Tag, c.Prot.Handle())
	if err != nil {
		return nil, err
	}
	p := wrap(h, handle, c.Tag, payload)

	log := h.Config().Logger
	err = h.RegisterFinalizer(handle, func(addr any) {
		if addr.(*cell[T]).destroy(StateFinalized) {
			log.Debug("external pointer finalized",
				zap.Uint32("handle", uint32(handle)), zap.String("tag", c.Tag))
		}
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// From roots a boundary value as a typed external pointer. It fails with a
// type mismatch unless the value is an external pointer created for T.
func From[T any](v heap.Value) (*ExternalPtr[T], error) {
	h := v.Heap()
	if h == nil || v.Type() != heap.ExtPtrSxp {
		return nil, errors.TypeMismatch(errors.PhaseConvert, typeName[T](), v.Type().String())
	}
	addr, err := h.ExternalPtrAddr(v.Handle())
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, errors.New(errors.PhaseConvert, errors.KindClosed).
			Op("extptr.From").GoType(typeName[T]()).Detail("external pointer was released").Build()
	}
	tag, _ := h.ExternalPtrTag(v.Handle())
	payload, ok := addr.(*cell[T])
	if !ok {
		return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
			Op("extptr.From").GoType(typeName[T]()).RType(heap.ExtPtrSxp.String()).
			Detail("tag %q does not hold %s", tag, typeName[T]()).Build()
	}
	return wrap(h, v.Handle(), tag, payload), nil
}

func wrap[T any](h *heap.Heap, handle heap.Handle, tag string, c *cell[T]) *ExternalPtr[T] {
	p := &ExternalPtr[T]{
		heap:   h,
		handle: handle,
		tag:    tag,
		cell:   c,
		root:   h.Root(handle),
	}
	if c.state == StateConstructed {
		c.state = StateRooted
	}
	p.cleanup = runtime.AddCleanup(p, (*heap.Root).ReleaseDeferred, p.root)
	return p
}

// Get returns the native object. Calling it after Release, after
// finalization or after Close is a programming error and panics.
func (p *ExternalPtr[T]) Get() *T {
	switch {
	case p.cell.state.destroyed():
		panic(errors.New(errors.PhaseAccess, errors.KindClosed).
			Op("extptr.Get").GoType(typeName[T]()).
			Detail("dereference of %s external pointer %d", p.cell.state, p.handle).Build())
	case p.root.Released():
		panic(errors.New(errors.PhaseAccess, errors.KindClosed).
			Op("extptr.Get").GoType(typeName[T]()).
			Detail("dereference of closed external pointer %d", p.handle).Build())
	}
	return p.cell.obj
}

// Handle returns the underlying heap handle.
func (p *ExternalPtr[T]) Handle() heap.Handle {
	return p.handle
}

// Value returns the boundary representation.
func (p *ExternalPtr[T]) Value() heap.Value {
	return p.heap.Value(p.handle)
}

// Tag returns the native type tag.
func (p *ExternalPtr[T]) Tag() string {
	return p.tag
}

// Prot returns the value kept alive by this pointer, or NULL.
func (p *ExternalPtr[T]) Prot() heap.Value {
	if p.cell.state.destroyed() || p.root.Released() {
		return p.heap.Nil()
	}
	prot, err := p.heap.ExternalPtrProt(p.handle)
	if err != nil {
		return p.heap.Nil()
	}
	return p.heap.Value(prot)
}

// State reports where the pointer is in its lifecycle. Destruction is
// shared by every wrapper of the handle; rooting is per wrapper.
func (p *ExternalPtr[T]) State() State {
	if p.cell.state.destroyed() {
		return p.cell.state
	}
	if p.root.Released() {
		return StateUnrooted
	}
	return StateRooted
}

// Clone returns a second rooted wrapper for the same object.
func (p *ExternalPtr[T]) Clone() (*ExternalPtr[T], error) {
	if err := p.check("extptr.Clone"); err != nil {
		return nil, err
	}
	return wrap(p.heap, p.handle, p.tag, p.cell), nil
}

// Close drops this wrapper's root. The object stays alive until the
// collector finds no other root; Close never runs the destructor.
func (p *ExternalPtr[T]) Close() {
	p.cleanup.Stop()
	p.root.Release()
}

// Release destroys the object now and unroots the handle. The collector
// will not run the destructor again. A second Release, on this or any
// other wrapper of the handle, returns a double release error.
func (p *ExternalPtr[T]) Release() error {
	if p.cell.state.destroyed() {
		return errors.DoubleRelease(typeName[T](), uint32(p.handle))
	}
	if err := p.check("extptr.Release"); err != nil {
		return err
	}

	defer p.Close()
	if err := p.heap.ClearExternalPtr(p.handle); err != nil {
		return err
	}
	p.cell.destroy(StateReleased)
	p.heap.Config().Logger.Debug("external pointer released",
		zap.Uint32("handle", uint32(p.handle)), zap.String("tag", p.tag))
	return nil
}

func (p *ExternalPtr[T]) String() string {
	return fmt.Sprintf("%s %s", p.Value(), p.State())
}

func (p *ExternalPtr[T]) check(op string) error {
	if p.root.Released() {
		return errors.New(errors.PhaseAccess, errors.KindClosed).
			Op(op).GoType(typeName[T]()).Detail("external pointer is closed").Build()
	}
	if !p.heap.Live(p.handle) {
		return errors.Closed(errors.PhaseAccess, "heap")
	}
	return nil
}

func defaultDestructor[T any](obj *T) {
	if d, ok := any(obj).(Dropper); ok {
		d.Drop()
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
