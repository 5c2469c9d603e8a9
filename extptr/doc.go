// Package extptr lets the heap own native Go objects.
//
// An ExternalPtr[T] moves a *T into a heap external pointer and registers a
// finalizer with the collector. The object is destroyed exactly once, by
// whichever comes first:
//
//	p.Release()   synchronous; the collector will not destroy it again
//	h.Collect()   after every wrapper is closed and nothing roots the handle
//
// Destruction calls Config.Destructor, or Drop when *T implements Dropper.
//
// Converting through the boundary keeps identity:
//
//	p, _ := extptr.New(h, &Counter{n: 1})
//	q, _ := extptr.From[Counter](p.Value())
//	q.Get() == p.Get() // true
//
// From fails with errors.KindTypeMismatch when the pointer holds another
// type. Dereferencing a released, finalized or closed pointer panics.
package extptr
