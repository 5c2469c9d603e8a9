package heap

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"github.com/wippyai/rbridge/errors"
)

// CollectResult describes one collection cycle.
type CollectResult struct {
	Marked    int
	Freed     int
	Finalized int
	Duration  time.Duration
}

func (h *Heap) maybeCollect() {
	if h.collecting {
		return
	}
	h.sinceGC++
	if h.cfg.Torture || (h.cfg.GCInterval > 0 && h.sinceGC >= h.cfg.GCInterval) {
		h.Collect()
	}
}

// Collect runs a full mark and sweep. Roots are the protect stack and the
// preserved set; external pointers keep their prot object alive. Every
// unreachable external pointer with a finalizer has it run exactly once
// before its slot is freed.
func (h *Heap) Collect() CollectResult {
	if h.closed || h.collecting {
		return CollectResult{}
	}
	start := time.Now()
	h.collecting = true
	defer func() { h.collecting = false }()

	h.drainDeferred()

	marks := h.mark()

	var garbage []Handle
	h.objects.each(func(handle Handle, _ *entry) bool {
		if !marks.Contains(uint32(handle)) {
			garbage = append(garbage, handle)
		}
		return true
	})

	res := CollectResult{Marked: int(marks.GetCardinality())}

	// Finalizers run before any storage is released so they may still
	// inspect the objects they own.
	for _, handle := range garbage {
		if e, ok := h.objects.get(handle); ok && e.finalizer != nil {
			h.runFinalizer(handle, e)
			res.Finalized++
		}
	}

	// A finalizer may have rooted something again.
	if res.Finalized > 0 {
		marks = h.mark()
	}

	for _, handle := range garbage {
		e, ok := h.objects.get(handle)
		if !ok || marks.Contains(uint32(handle)) {
			continue
		}
		typ, length := e.typ, e.length
		if e.size > 0 {
			h.alloc.Free(e.offset, e.size, allocAlign)
		}
		h.objects.remove(handle)
		res.Freed++
		h.notify(Event{Type: EventCollected, Handle: handle, Object: typ, Length: length})
	}

	h.sinceGC = 0
	h.collections++
	h.freed += res.Freed
	res.Duration = time.Since(start)

	h.log.Debug("collection",
		zap.Int("cycle", h.collections),
		zap.Int("marked", res.Marked),
		zap.Int("freed", res.Freed),
		zap.Int("finalized", res.Finalized),
		zap.Int("live", h.objects.live),
		zap.Uint64("bytes_in_use", h.alloc.inUse),
		zap.Duration("took", res.Duration))

	return res
}

func (h *Heap) mark() *roaring.Bitmap {
	marks := roaring.New()
	work := make([]Handle, 0, len(h.stack)+len(h.preserved))
	work = append(work, h.stack...)
	for handle := range h.preserved {
		work = append(work, handle)
	}

	for len(work) > 0 {
		handle := work[len(work)-1]
		work = work[:len(work)-1]

		e, ok := h.objects.get(handle)
		if !ok || marks.Contains(uint32(handle)) {
			continue
		}
		marks.Add(uint32(handle))
		if e.typ == ExtPtrSxp && e.prot != 0 {
			work = append(work, e.prot)
		}
	}
	return marks
}

// runFinalizer detaches the finalizer before calling it so it can never
// run twice. A panicking finalizer is logged and does not stop the sweep.
func (h *Heap) runFinalizer(handle Handle, e *entry) {
	fin := e.finalizer
	if fin == nil {
		return
	}
	e.finalizer = nil
	addr, tag := e.payload, e.tag
	h.finalized++

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("finalizer panicked",
				zap.Uint32("handle", uint32(handle)),
				zap.String("tag", tag),
				zap.Any("panic", r))
		}
	}()
	fin(addr)
	h.notify(Event{Type: EventFinalized, Handle: handle, Object: ExtPtrSxp})
}

// RegisterFinalizer attaches fn to an external pointer. A later
// registration replaces an earlier one that has not yet run.
func (h *Heap) RegisterFinalizer(handle Handle, fn Finalizer) error {
	e, err := h.entry(handle, "register_finalizer")
	if err != nil {
		return err
	}
	if e.typ != ExtPtrSxp {
		return errors.New(errors.PhaseCollect, errors.KindTypeMismatch).
			Op("register_finalizer").RType(e.typ.String()).Detail("finalizers attach to external pointers").Build()
	}
	e.finalizer = fn
	return nil
}
