package scalar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNAConstructors(t *testing.T) {
	assert.True(t, NAFloat().IsNA())
	assert.True(t, NAInt().IsNA())
	assert.True(t, NABool().IsNA())

	assert.False(t, Rfloat(0).IsNA())
	assert.False(t, Rint(0).IsNA())
	assert.False(t, True.IsNA())
	assert.False(t, False.IsNA())
}

func TestFloatArithmeticPropagatesNA(t *testing.T) {
	ops := map[string]func(a, b Rfloat) Rfloat{
		"add": Rfloat.Add,
		"sub": Rfloat.Sub,
		"mul": Rfloat.Mul,
		"div": Rfloat.Div,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.True(t, op(NAFloat(), 2).IsNA())
			assert.True(t, op(2, NAFloat()).IsNA())
			assert.False(t, op(6, 2).IsNA())
		})
	}

	assert.Equal(t, Rfloat(8), Rfloat(6).Add(2))
	assert.Equal(t, Rfloat(3), Rfloat(6).Div(2))
	assert.True(t, NAFloat().Neg().IsNA())
	assert.Equal(t, Rfloat(-1.5), Rfloat(1.5).Neg())
}

func TestFloatNaNIsNotNA(t *testing.T) {
	nan := Rfloat(0).Div(0)
	assert.True(t, nan.IsNaN())
	assert.False(t, nan.IsNA())
	assert.False(t, nan.Add(1).IsNA(), "NaN arithmetic stays NaN")
	assert.True(t, Rfloat(1).Div(0) == Rfloat(math.Inf(1)))
}

func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Rint
		want Rint
	}{
		{"add", Rint(2).Add(3), 5},
		{"sub", Rint(2).Sub(3), -1},
		{"mul", Rint(4).Mul(-3), -12},
		{"quo floor", Rint(-7).Quo(2), -4},
		{"quo exact", Rint(6).Quo(3), 2},
		{"rem sign of divisor", Rint(-7).Rem(3), 2},
		{"rem negative divisor", Rint(7).Rem(-3), -2},
		{"neg", Rint(5).Neg(), -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestIntNAAndOverflow(t *testing.T) {
	assert.True(t, NAInt().Add(1).IsNA())
	assert.True(t, Rint(1).Mul(NAInt()).IsNA())
	assert.True(t, Rint(math.MaxInt32).Add(1).IsNA(), "overflow becomes NA")
	assert.True(t, Rint(-math.MaxInt32).Sub(1).IsNA(), "reaching the sentinel becomes NA")
	assert.True(t, Rint(5).Quo(0).IsNA())
	assert.True(t, Rint(5).Rem(0).IsNA())
	assert.True(t, NAInt().Neg().IsNA())
}

func TestComparisonWithNA(t *testing.T) {
	assert.True(t, NAFloat().Eq(NAFloat()).IsNA(), "NA == NA is NA")
	assert.True(t, NAFloat().Lt(1).IsNA())
	assert.True(t, Rfloat(math.NaN()).Eq(1).IsNA())
	assert.True(t, NAInt().Eq(NAInt()).IsNA())
	assert.True(t, NABool().Eq(True).IsNA())

	assert.True(t, Rfloat(1).Lt(2).IsTrue())
	assert.True(t, Rfloat(2).Le(2).IsTrue())
	assert.True(t, Rfloat(3).Gt(2).IsTrue())
	assert.True(t, Rfloat(1).Ge(2).IsFalse())
	assert.True(t, Rint(1).Ne(2).IsTrue())
	assert.True(t, Rint(3).Eq(3).IsTrue())
	assert.True(t, True.Eq(True).IsTrue())
	assert.True(t, True.Ne(False).IsTrue())
}

func TestThreeValuedLogic(t *testing.T) {
	na := NABool()

	assert.Equal(t, False, na.And(False))
	assert.True(t, na.And(True).IsNA())
	assert.Equal(t, True, na.Or(True))
	assert.True(t, na.Or(False).IsNA())
	assert.True(t, na.Not().IsNA())
	assert.Equal(t, False, True.Not())

	assert.False(t, na.IsTrue())
	assert.False(t, na.IsFalse())

	v, ok := na.Bool()
	assert.False(t, ok)
	assert.False(t, v)
	v, ok = True.Bool()
	require.True(t, ok)
	assert.True(t, v)
}

func TestIdentical(t *testing.T) {
	nan := Rfloat(math.NaN())

	assert.True(t, NAFloat().Identical(NAFloat()))
	assert.True(t, nan.Identical(nan))
	assert.False(t, NAFloat().Identical(nan))
	assert.False(t, nan.Identical(NAFloat()))
	assert.True(t, Rfloat(1).Identical(1))
	assert.True(t, NAInt().Identical(NAInt()))
	assert.True(t, NABool().Identical(NABool()))
	assert.False(t, NABool().Identical(False))
}

func TestConversions(t *testing.T) {
	assert.True(t, NAInt().Float().IsNA())
	assert.Equal(t, Rfloat(3), Rint(3).Float())
	assert.Equal(t, Rint(3), Rfloat(3.9).Int())
	assert.Equal(t, Rint(-3), Rfloat(-3.9).Int())
	assert.True(t, NAFloat().Int().IsNA())
	assert.True(t, Rfloat(math.NaN()).Int().IsNA())
	assert.True(t, Rfloat(3e9).Int().IsNA())
	assert.Equal(t, Rint(1), True.Int())
	assert.True(t, NABool().Int().IsNA())
}

func TestString(t *testing.T) {
	assert.Equal(t, "NA", NAFloat().String())
	assert.Equal(t, "NaN", Rfloat(math.NaN()).String())
	assert.Equal(t, "1.5", Rfloat(1.5).String())
	assert.Equal(t, "NA", NAInt().String())
	assert.Equal(t, "-4", Rint(-4).String())
	assert.Equal(t, "TRUE", True.String())
	assert.Equal(t, "FALSE", False.String())
	assert.Equal(t, "NA", NABool().String())
}
