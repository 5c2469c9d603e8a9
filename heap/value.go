package heap

import "fmt"

// Value is the opaque boundary representation of a heap object: a handle
// plus the heap that owns it. It does not root anything; typed wrappers
// built from it do.
type Value struct {
	heap   *Heap
	handle Handle
}

// Nil returns the NULL value of h.
func (h *Heap) Nil() Value {
	return Value{heap: h}
}

func (v Value) Heap() *Heap    { return v.heap }
func (v Value) Handle() Handle { return v.handle }
func (v Value) IsNil() bool    { return v.heap == nil || v.Type() == NilSxp }
func (v Value) IsAltrep() bool { return v.heap != nil && v.heap.IsAltrep(v.handle) }

// Type returns the type tag; NULL for dead handles.
func (v Value) Type() Type {
	if v.heap == nil {
		return NilSxp
	}
	return v.heap.TypeOf(v.handle)
}

// Len returns the element count for vectors and 0 otherwise.
func (v Value) Len() int {
	if v.heap == nil {
		return 0
	}
	return v.heap.Length(v.handle)
}

func (v Value) String() string {
	switch t := v.Type(); {
	case t == NilSxp:
		return "NULL"
	case t.IsVector():
		mode := ""
		if v.IsAltrep() {
			mode = " altrep"
		}
		return fmt.Sprintf("<%s[%d]%s #%d>", t, v.Len(), mode, v.handle)
	default:
		tag, _ := v.heap.ExternalPtrTag(v.handle)
		return fmt.Sprintf("<%s %s #%d>", t, tag, v.handle)
	}
}
