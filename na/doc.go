// Package na implements the missing-value sentinels of the foreign runtime.
//
// Every primitive kind reserves one encoding that means "absent":
//
//	float64  NaN carrying 1954 in its low word (not every NaN is NA)
//	int32    math.MinInt32
//	Logical  math.MinInt32 in the int32 storage cell
//	string   one process-wide "NA" instance, compared by address
//
// The generic pair Value[T] / Is[T] exposes the same contract for all kinds,
// and Is(Value[T]()) is always true.
//
// # The string sentinel is an identity test
//
// String NA is NOT a content comparison. Only strings sharing storage with
// the singleton returned by String (or Value[string]) report NA:
//
//	na.IsString(na.String())  // true
//	na.IsString("NA")         // false, a literal has its own storage
//	na.String() == "NA"       // true, contents are equal
//
// Building an "NA" string by concatenation, conversion from bytes, or
// strings.Clone produces a new instance that is not NA. Code that needs an
// NA string must obtain it from this package and pass it along unchanged.
package na
