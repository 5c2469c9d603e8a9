package scalar

import "math"

// Arithmetic never fails: an NA operand yields NA.

func (x Rfloat) Add(y Rfloat) Rfloat {
	if x.IsNA() || y.IsNA() {
		return NAFloat()
	}
	return x + y
}

func (x Rfloat) Sub(y Rfloat) Rfloat {
	if x.IsNA() || y.IsNA() {
		return NAFloat()
	}
	return x - y
}

func (x Rfloat) Mul(y Rfloat) Rfloat {
	if x.IsNA() || y.IsNA() {
		return NAFloat()
	}
	return x * y
}

// Div follows IEEE rules for zero divisors (Inf or NaN, not NA).
func (x Rfloat) Div(y Rfloat) Rfloat {
	if x.IsNA() || y.IsNA() {
		return NAFloat()
	}
	return x / y
}

func (x Rfloat) Neg() Rfloat {
	if x.IsNA() {
		return x
	}
	return -x
}

// intResult maps results outside the representable range to NA.
func intResult(v int64) Rint {
	if v > math.MaxInt32 || v <= math.MinInt32 {
		return NAInt()
	}
	return Rint(v)
}

func (x Rint) Add(y Rint) Rint {
	if x.IsNA() || y.IsNA() {
		return NAInt()
	}
	return intResult(int64(x) + int64(y))
}

func (x Rint) Sub(y Rint) Rint {
	if x.IsNA() || y.IsNA() {
		return NAInt()
	}
	return intResult(int64(x) - int64(y))
}

func (x Rint) Mul(y Rint) Rint {
	if x.IsNA() || y.IsNA() {
		return NAInt()
	}
	return intResult(int64(x) * int64(y))
}

// Quo is floored integer division (%/%). A zero divisor yields NA.
func (x Rint) Quo(y Rint) Rint {
	if x.IsNA() || y.IsNA() || y == 0 {
		return NAInt()
	}
	q := int64(x) / int64(y)
	if (int64(x)%int64(y) != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return intResult(q)
}

// Rem is the modulus (%%); the result takes the sign of y.
// A zero divisor yields NA.
func (x Rint) Rem(y Rint) Rint {
	if x.IsNA() || y.IsNA() || y == 0 {
		return NAInt()
	}
	r := int64(x) % int64(y)
	if r != 0 && ((r < 0) != (y < 0)) {
		r += int64(y)
	}
	return Rint(r)
}

func (x Rint) Neg() Rint {
	if x.IsNA() {
		return x
	}
	return -x
}
