// Package errors provides structured error types for the rbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation, Go/R type names, and a cause chain.
//
// The four conditions a caller is expected to handle are:
//
//	KindOutOfBounds   - element or region index outside the vector
//	KindTypeMismatch  - boundary value converted to the wrong typed wrapper
//	KindOwnership     - mutation of shared or lazily backed storage
//	KindDoubleRelease - releasing an external pointer that is already destroyed
//
// All of them are returned, never panicked. NA values flowing through
// arithmetic are data, not errors.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		Op("vector.TryFrom").
//		GoType("scalar.Rfloat").
//		RType("integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseAccess, "elt", 10, 5)
//
// Kind sentinels match regardless of phase:
//
//	if errors.Is(err, rerrors.ErrOutOfBounds) { ... }
package errors
