// Package vector provides NA-aware typed vectors over the foreign heap.
//
// A Vector[T] is a rooted handle to one heap vector of doubles, integers or
// logicals. Its storage is either materialized (a buffer in heap memory) or
// lazy (a Generator plus a small LRU cache of generated regions). The two
// backings are interchangeable for every read:
//
//	v, _ := vector.FromFunc(h, 1_000_000_000, func(i int) scalar.Rfloat {
//		return scalar.Rfloat(i)
//	})
//	v.IsLazy()         // true, nothing was generated yet
//	x, _ := v.Elt(42)  // generates one region
//
// Constructors taking values or generators switch to lazy backing once the
// length reaches heap.Config.AltrepThreshold (64Ki elements by default).
// New always materializes and fills with 0.0, 0 or FALSE.
//
// # Ownership
//
// Writes (SetElt, Mut) require a materialized vector that no other wrapper
// shares. Lazy vectors must be materialized first; shared ones duplicated.
// Both cases report errors.KindOwnership instead of writing.
//
// Every vector holds a heap root until Close. Vectors are not safe for
// concurrent use; call them on the heap's thread (see heap.Heap.Do).
package vector
