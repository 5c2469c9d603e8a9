package vector

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
)

// Element is the set of scalar kinds a vector can hold. Each has the same
// memory layout as the heap's storage cell for its type.
type Element interface {
	scalar.Rfloat | scalar.Rint | scalar.Rbool
}

// TypeOf returns the heap type that stores T.
func TypeOf[T Element]() heap.Type {
	var zero T
	switch any(zero).(type) {
	case scalar.Rfloat:
		return heap.RealSxp
	case scalar.Rint:
		return heap.IntSxp
	default:
		return heap.LglSxp
	}
}

func goType[T Element]() string {
	return reflect.TypeFor[T]().String()
}

// cells reinterprets heap storage as elements. data must come from
// heap.Data, whose blocks are 8-byte aligned.
func cells[T Element](data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var zero T
	n := len(data) / int(unsafe.Sizeof(zero))
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), n)
}

// identical is strict equality: NA matches NA.
func identical[T Element](a, b T) bool {
	switch x := any(a).(type) {
	case scalar.Rfloat:
		return x.Identical(any(b).(scalar.Rfloat))
	case scalar.Rint:
		return x.Identical(any(b).(scalar.Rint))
	default:
		return any(a).(scalar.Rbool).Identical(any(b).(scalar.Rbool))
	}
}

func isNA[T Element](v T) bool {
	switch x := any(v).(type) {
	case scalar.Rfloat:
		return x.IsNA()
	case scalar.Rint:
		return x.IsNA()
	default:
		return any(v).(scalar.Rbool).IsNA()
	}
}

func format[T Element](v T) string {
	return any(v).(scalar.Scalar).String()
}
