package na

import (
	"math"
	"strings"
	"unsafe"
)

// Logical is the storage representation of a tri-state boolean:
// FALSE, TRUE or NA, held in a 32-bit integer cell.
type Logical int32

const (
	False     Logical = 0
	True      Logical = 1
	NALogical Logical = math.MinInt32
)

// NAInt is the integer sentinel.
const NAInt int32 = math.MinInt32

// realNABits is NaN with 1954 in the low word.
const (
	realNABits  uint64 = 0x7FF00000000007A2
	realNALow   uint32 = 1954
	lowWordMask uint64 = 0xFFFFFFFF
)

// naString is allocated at init so it never shares storage with a literal.
var naString = strings.Clone("NA")

// Kind lists the primitive encodings that can represent NA.
type Kind interface {
	float64 | int32 | Logical | string
}

// Value returns the NA sentinel for kind T.
func Value[T Kind]() T {
	var out T
	switch p := any(&out).(type) {
	case *float64:
		*p = Real()
	case *int32:
		*p = NAInt
	case *Logical:
		*p = NALogical
	case *string:
		*p = naString
	}
	return out
}

// Is reports whether v is the NA sentinel of its kind.
func Is[T Kind](v T) bool {
	switch x := any(v).(type) {
	case float64:
		return IsReal(x)
	case int32:
		return IsInt(x)
	case Logical:
		return IsLogical(x)
	case string:
		return IsString(x)
	}
	return false
}

// Real returns the double NA.
func Real() float64 {
	return math.Float64frombits(realNABits)
}

// IsReal reports whether x is the double NA. An ordinary NaN such as the
// result of 0/0 is not NA.
func IsReal(x float64) bool {
	return x != x && uint32(math.Float64bits(x)&lowWordMask) == realNALow
}

// IsNaN reports whether x is any NaN, NA included.
func IsNaN(x float64) bool {
	return x != x
}

// Int returns the integer NA.
func Int() int32 {
	return NAInt
}

// IsInt reports whether x is the integer NA.
func IsInt(x int32) bool {
	return x == NAInt
}

// IsLogical reports whether x is the logical NA.
func IsLogical(x Logical) bool {
	return x == NALogical
}

// String returns the NA string singleton.
func String() string {
	return naString
}

// IsString reports whether s is the NA string singleton. The test is by
// identity: s must share storage with the value returned by String.
// A string that merely reads "NA" is not NA.
func IsString(s string) bool {
	return len(s) == len(naString) && unsafe.StringData(s) == unsafe.StringData(naString)
}
