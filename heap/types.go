package heap

// Handle is an opaque reference to an object in the heap.
// Handle 0 is reserved and always means NULL.
type Handle uint32

// Type is the storage tag of a heap object.
type Type uint8

const (
	NilSxp Type = iota
	LglSxp
	IntSxp
	RealSxp
	ExtPtrSxp
)

func (t Type) String() string {
	switch t {
	case NilSxp:
		return "NULL"
	case LglSxp:
		return "logical"
	case IntSxp:
		return "integer"
	case RealSxp:
		return "double"
	case ExtPtrSxp:
		return "externalptr"
	default:
		return "unknown"
	}
}

// IsVector reports whether the type carries elements.
func (t Type) IsVector() bool {
	return t == LglSxp || t == IntSxp || t == RealSxp
}

// ElemSize returns the storage width of one element in bytes.
func (t Type) ElemSize() uint32 {
	switch t {
	case RealSxp:
		return 8
	case IntSxp, LglSxp:
		return 4
	default:
		return 0
	}
}

// Finalizer is invoked by the collector with the payload of an
// unreachable external pointer. It runs at most once per handle.
type Finalizer func(addr any)

// EventType identifies heap lifecycle notifications.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFinalized
	EventCollected
	EventCleared
)

func (e EventType) String() string {
	switch e {
	case EventAllocated:
		return "allocated"
	case EventFinalized:
		return "finalized"
	case EventCollected:
		return "collected"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event represents a heap lifecycle event.
type Event struct {
	Handle Handle
	Type   EventType
	Object Type
	Length int
}

// Observer receives notifications about heap lifecycle events.
type Observer interface {
	OnHeapEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHeapEvent(e Event) { f(e) }

// Stats is a snapshot of heap bookkeeping.
type Stats struct {
	Live        int
	Protected   int
	Preserved   int
	BytesInUse  uint64
	Collections int
	Freed       int
	Finalized   int
}
