// Package heap implements the garbage-collected foreign heap that typed
// wrappers bind to.
//
// Materialized vector data lives in a wazero linear memory carved up by a
// first-fit allocator; objects are addressed by Handle. The full memory
// capacity is reserved up front, so a view returned by Data stays valid
// until its handle is collected.
//
// # Rooting
//
// Any allocation may trigger a collection. A handle survives only while it
// is reachable from a root:
//
//	protect stack   Protect / Unprotect, strictly LIFO; Scope unwinds automatically
//	preserved set   Preserve / ReleasePreserved, counted; Root wraps one count
//	prot edges      an external pointer keeps its prot object alive
//
//	err := h.Scope(func(s *heap.Scope) error {
//		x := s.Protect(must(h.AllocVector(heap.RealSxp, 10)))
//		y, err := h.AllocVector(heap.IntSxp, 10) // x survives this
//		...
//	})
//
// Torture mode collects before every allocation and is the quickest way to
// find a missing Protect.
//
// # Threading
//
// A Heap is single-threaded. Call it from one goroutine, or submit work
// through Do, which runs it on the heap's own OS-thread-pinned goroutine.
// Root.ReleaseDeferred is the only method safe from any goroutine; the
// release is applied at the next collection.
//
// # Finalizers
//
// RegisterFinalizer attaches a function to an external pointer. It runs at
// most once, when the pointer is found unreachable, or at Close when
// Config.FinalizeOnClose is set. Panics in finalizers are logged and
// swallowed.
package heap
