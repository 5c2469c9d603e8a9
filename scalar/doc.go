// Package scalar provides NA-aware wrappers for doubles, integers and
// logicals.
//
// The NA state is not a separate field: it lives in the bit pattern of the
// wrapped primitive (see package na). Arithmetic with an NA operand yields NA.
// Comparisons return an Rbool that is NA whenever an operand is NA.
package scalar
