// Package rbridge is a kernel for exchanging data between Go and a
// managed R-style heap.
//
// The heap is simulated: objects live behind opaque handles, vector data
// sits in a wazero linear memory, and a mark-and-sweep collector reclaims
// anything not rooted. Go code holds objects through typed wrappers that
// root them for as long as the wrapper is open.
//
// # Packages
//
//	rbridge/
//	├── na/          NA sentinels for double, integer, logical and string
//	├── scalar/      Rfloat, Rint and Rbool with NA-aware arithmetic
//	├── heap/        handle table, rooting, collector, finalizers, heap thread
//	├── vector/      typed vectors with materialized or lazy backing
//	├── extptr/      native Go objects owned through heap handles
//	├── serialize/   compressed save and load of vectors
//	├── errors/      structured error kinds
//	└── cmd/rheap/   command line and interactive heap inspector
//
// # Quick Start
//
//	h, err := heap.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	err = h.Do(ctx, func() error {
//	    v, err := vector.FromFunc(h, 1e9, func(i int) scalar.Rfloat {
//	        return scalar.Rfloat(i) / 2
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    defer v.Close()
//
//	    x, err := v.Elt(12345678) // generated on demand
//	    fmt.Println(x)
//	    return err
//	})
//
// # NA Values
//
// Each element type reserves one bit pattern as NA. Arithmetic with an NA
// operand yields NA and comparisons return a three-valued Rbool. Use
// Identical when a plain bool is needed.
//
// # Thread Safety
//
// A heap is single-threaded. Wrappers must be used on the heap's thread,
// reached through Heap.Do. The only calls safe from any goroutine are
// Do itself and the unroot queue fed by wrappers that were garbage
// collected without Close.
package rbridge
