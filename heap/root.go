package heap

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/rbridge/errors"
)

// Protect pushes handle onto the protect stack and returns it.
// Pair every Protect with Unprotect in strict stack order, or use Scope.
func (h *Heap) Protect(handle Handle) Handle {
	h.stack = append(h.stack, handle)
	return handle
}

// Unprotect pops n handles from the protect stack.
func (h *Heap) Unprotect(n int) error {
	if n < 0 || n > len(h.stack) {
		return errors.StackImbalance(n, len(h.stack))
	}
	clear(h.stack[len(h.stack)-n:])
	h.stack = h.stack[:len(h.stack)-n]
	return nil
}

func (h *Heap) mustUnprotect(n int) {
	if err := h.Unprotect(n); err != nil {
		panic(err)
	}
}

// ProtectDepth returns the size of the protect stack.
func (h *Heap) ProtectDepth() int {
	return len(h.stack)
}

// Preserve adds a counted root that survives across calls.
func (h *Heap) Preserve(handle Handle) {
	if handle == 0 || h.closed {
		return
	}
	h.preserved[handle]++
}

// ReleasePreserved drops one count added by Preserve.
func (h *Heap) ReleasePreserved(handle Handle) error {
	n, ok := h.preserved[handle]
	if !ok {
		return errors.New(errors.PhaseRoot, errors.KindInvalidHandle).
			Op("release_preserved").Value(uint32(handle)).Detail("handle %d is not preserved", handle).Build()
	}
	if n <= 1 {
		delete(h.preserved, handle)
	} else {
		h.preserved[handle] = n - 1
	}
	return nil
}

// IsPreserved reports whether handle holds at least one counted root.
func (h *Heap) IsPreserved(handle Handle) bool {
	return h.preserved[handle] > 0
}

// Root is a counted root owned by one native wrapper. Release is
// idempotent; the root guarantees its handle survives collections until
// then.
type Root struct {
	heap     *Heap
	handle   Handle
	released atomic.Bool
}

// Root preserves handle and returns the guard that releases it.
func (h *Heap) Root(handle Handle) *Root {
	h.Preserve(handle)
	return &Root{heap: h, handle: handle}
}

// Handle returns the rooted handle.
func (r *Root) Handle() Handle {
	return r.handle
}

// Released reports whether the root was given up.
func (r *Root) Released() bool {
	return r.released.Load()
}

// Release unroots the handle. Must run on the heap thread.
func (r *Root) Release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if r.heap.closed {
		return
	}
	if err := r.heap.ReleasePreserved(r.handle); err != nil {
		r.heap.log.Warn("release root", zap.Uint32("handle", uint32(r.handle)), zap.Error(err))
	}
}

// ReleaseDeferred queues the unroot for the next collection point. Safe to
// call from any goroutine, including runtime cleanups.
func (r *Root) ReleaseDeferred() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	r.heap.deferredMu.Lock()
	r.heap.deferred = append(r.heap.deferred, r.handle)
	r.heap.deferredMu.Unlock()
}

func (h *Heap) drainDeferred() {
	h.deferredMu.Lock()
	pending := h.deferred
	h.deferred = nil
	h.deferredMu.Unlock()

	for _, handle := range pending {
		if err := h.ReleasePreserved(handle); err != nil {
			h.log.Warn("deferred release", zap.Uint32("handle", uint32(handle)), zap.Error(err))
		}
	}
}

// Scope tracks protections made inside one call of Heap.Scope.
type Scope struct {
	heap *Heap
	base int
}

// Scope runs fn and unwinds every protection fn made, even on panic.
func (h *Heap) Scope(fn func(s *Scope) error) error {
	s := &Scope{heap: h, base: len(h.stack)}
	defer s.unwind()
	return fn(s)
}

// Protect protects handle until the scope ends.
func (s *Scope) Protect(handle Handle) Handle {
	return s.heap.Protect(handle)
}

func (s *Scope) unwind() {
	if n := len(s.heap.stack) - s.base; n > 0 {
		s.heap.mustUnprotect(n)
	}
}
