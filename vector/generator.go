package vector

import "iter"

// Generator produces the elements of a lazily backed vector. It must be
// deterministic and free of side effects: the same index always yields the
// same value, and At may be called from several goroutines at once while a
// vector materializes.
type Generator[T Element] interface {
	Len() int
	At(i int) T
}

// RegionGenerator is implemented by generators that can fill a span more
// cheaply than element by element.
type RegionGenerator[T Element] interface {
	Generator[T]
	Region(start int, dst []T)
}

// Func returns a generator that computes element i as fn(i).
func Func[T Element](n int, fn func(i int) T) Generator[T] {
	return funcGen[T]{n: n, fn: fn}
}

// Seq returns a generator over a restartable sequence of exactly n values.
// Random access replays the sequence from its start, so prefer Func when
// the value at an index can be computed directly.
func Seq[T Element](n int, seq iter.Seq[T]) Generator[T] {
	return seqGen[T]{n: n, seq: seq}
}

// Slice returns a generator over a private copy of values.
func Slice[T Element](values []T) Generator[T] {
	return sliceGen[T](append([]T(nil), values...))
}

type funcGen[T Element] struct {
	fn func(int) T
	n  int
}

func (g funcGen[T]) Len() int   { return g.n }
func (g funcGen[T]) At(i int) T { return g.fn(i) }
func (g funcGen[T]) Region(start int, dst []T) {
	for i := range dst {
		dst[i] = g.fn(start + i)
	}
}

type seqGen[T Element] struct {
	seq iter.Seq[T]
	n   int
}

func (g seqGen[T]) Len() int { return g.n }

func (g seqGen[T]) At(i int) T {
	var out [1]T
	g.Region(i, out[:])
	return out[0]
}

func (g seqGen[T]) Region(start int, dst []T) {
	end := start + len(dst)
	i := 0
	for v := range g.seq {
		if i >= end {
			break
		}
		if i >= start {
			dst[i-start] = v
		}
		i++
	}
}

type sliceGen[T Element] []T

func (g sliceGen[T]) Len() int   { return len(g) }
func (g sliceGen[T]) At(i int) T { return g[i] }
func (g sliceGen[T]) Region(start int, dst []T) {
	copy(dst, g[start:])
}

// fill writes gen's values for [start, start+len(dst)) into dst.
func fill[T Element](gen Generator[T], start int, dst []T) {
	if rg, ok := gen.(RegionGenerator[T]); ok {
		rg.Region(start, dst)
		return
	}
	for i := range dst {
		dst[i] = gen.At(start + i)
	}
}
