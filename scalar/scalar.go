package scalar

import (
	"math"
	"strconv"

	"github.com/wippyai/rbridge/na"
)

// Scalar is implemented by the NA-aware wrappers.
type Scalar interface {
	IsNA() bool
	String() string
}

// Rfloat wraps a double. NA is encoded in the bit pattern.
type Rfloat float64

// Rint wraps a 32-bit integer. NA is math.MinInt32.
type Rint int32

// Rbool wraps a logical: TRUE, FALSE or NA.
type Rbool na.Logical

const (
	False = Rbool(na.False)
	True  = Rbool(na.True)
)

// NAFloat returns the double NA.
func NAFloat() Rfloat { return Rfloat(na.Real()) }

// NAInt returns the integer NA.
func NAInt() Rint { return Rint(na.NAInt) }

// NABool returns the logical NA.
func NABool() Rbool { return Rbool(na.NALogical) }

// FromBool converts a Go bool.
func FromBool(b bool) Rbool {
	if b {
		return True
	}
	return False
}

func (x Rfloat) IsNA() bool { return na.IsReal(float64(x)) }
func (x Rint) IsNA() bool   { return na.IsInt(int32(x)) }
func (x Rbool) IsNA() bool  { return na.IsLogical(na.Logical(x)) }

// IsNaN reports any NaN, NA included.
func (x Rfloat) IsNaN() bool { return na.IsNaN(float64(x)) }

// IsFinite reports whether x is neither NA, NaN nor infinite.
func (x Rfloat) IsFinite() bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func (x Rfloat) Inner() float64   { return float64(x) }
func (x Rint) Inner() int32       { return int32(x) }
func (x Rbool) Inner() na.Logical { return na.Logical(x) }

func (x Rfloat) String() string {
	if x.IsNA() {
		return "NA"
	}
	if x.IsNaN() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(x), 'g', -1, 64)
}

func (x Rint) String() string {
	if x.IsNA() {
		return "NA"
	}
	return strconv.FormatInt(int64(x), 10)
}

func (x Rbool) String() string {
	switch {
	case x.IsNA():
		return "NA"
	case x == False:
		return "FALSE"
	default:
		return "TRUE"
	}
}

// Float converts to a double; NA stays NA.
func (x Rint) Float() Rfloat {
	if x.IsNA() {
		return NAFloat()
	}
	return Rfloat(x)
}

// Int truncates toward zero. NA, NaN and values outside the int32 range
// become NA.
func (x Rfloat) Int() Rint {
	f := float64(x)
	if math.IsNaN(f) || f >= math.MaxInt32+1 || f <= math.MinInt32 {
		return NAInt()
	}
	return Rint(int32(f))
}

// Int converts TRUE/FALSE to 1/0; NA stays NA.
func (x Rbool) Int() Rint {
	return Rint(x)
}

// Bool reports the Go value and whether it is defined.
func (x Rbool) Bool() (value, ok bool) {
	if x.IsNA() {
		return false, false
	}
	return x != False, true
}
