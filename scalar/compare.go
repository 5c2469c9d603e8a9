package scalar

// Comparisons return a logical. Any NA operand (and, for doubles, any NaN)
// makes the result NA, including NA compared with NA. Use Identical for a
// plain Go bool where NA equals NA.

func cmpResult(undefined bool, v bool) Rbool {
	if undefined {
		return NABool()
	}
	return FromBool(v)
}

func (x Rfloat) Eq(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x == y) }
func (x Rfloat) Ne(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x != y) }
func (x Rfloat) Lt(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x < y) }
func (x Rfloat) Le(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x <= y) }
func (x Rfloat) Gt(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x > y) }
func (x Rfloat) Ge(y Rfloat) Rbool { return cmpResult(x.IsNaN() || y.IsNaN(), x >= y) }

func (x Rint) Eq(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x == y) }
func (x Rint) Ne(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x != y) }
func (x Rint) Lt(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x < y) }
func (x Rint) Le(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x <= y) }
func (x Rint) Gt(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x > y) }
func (x Rint) Ge(y Rint) Rbool { return cmpResult(x.IsNA() || y.IsNA(), x >= y) }

func (x Rbool) Eq(y Rbool) Rbool {
	return cmpResult(x.IsNA() || y.IsNA(), x.truth() == y.truth())
}

func (x Rbool) Ne(y Rbool) Rbool {
	return cmpResult(x.IsNA() || y.IsNA(), x.truth() != y.truth())
}

func (x Rbool) truth() bool { return x != False }

// IsTrue reports a defined TRUE.
func (x Rbool) IsTrue() bool { return !x.IsNA() && x != False }

// IsFalse reports a defined FALSE.
func (x Rbool) IsFalse() bool { return x == False }

// Not negates; NA stays NA.
func (x Rbool) Not() Rbool {
	if x.IsNA() {
		return x
	}
	return FromBool(!x.truth())
}

// And is three-valued: FALSE wins over NA.
func (x Rbool) And(y Rbool) Rbool {
	if x.IsFalse() || y.IsFalse() {
		return False
	}
	if x.IsNA() || y.IsNA() {
		return NABool()
	}
	return True
}

// Or is three-valued: TRUE wins over NA.
func (x Rbool) Or(y Rbool) Rbool {
	if x.IsTrue() || y.IsTrue() {
		return True
	}
	if x.IsNA() || y.IsNA() {
		return NABool()
	}
	return False
}

// Identical is strict equality: NA matches NA, a plain NaN matches a plain
// NaN, and NA never matches NaN.
func (x Rfloat) Identical(y Rfloat) bool {
	switch {
	case x.IsNA() || y.IsNA():
		return x.IsNA() && y.IsNA()
	case x.IsNaN() || y.IsNaN():
		return x.IsNaN() && y.IsNaN()
	}
	return x == y
}

func (x Rint) Identical(y Rint) bool { return x == y }

func (x Rbool) Identical(y Rbool) bool {
	if x.IsNA() || y.IsNA() {
		return x.IsNA() && y.IsNA()
	}
	return x.truth() == y.truth()
}
