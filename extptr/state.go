package extptr

// State is the lifecycle position of an external pointer.
//
//	Constructed -> Rooted -> Unrooted -> Finalized
//	      \___________\________\______-> Released
type State uint8

const (
	StateConstructed State = iota
	StateRooted
	StateUnrooted
	StateFinalized
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateRooted:
		return "rooted"
	case StateUnrooted:
		return "unrooted"
	case StateFinalized:
		return "finalized"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

func (s State) destroyed() bool {
	return s == StateFinalized || s == StateReleased
}
