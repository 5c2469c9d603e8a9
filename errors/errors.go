package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAlloc     Phase = "alloc"     // heap allocation
	PhaseAccess    Phase = "access"    // element reads and writes
	PhaseConvert   Phase = "convert"   // boundary value to typed wrapper
	PhaseRoot      Phase = "root"      // protect/preserve bookkeeping
	PhaseRelease   Phase = "release"   // native-initiated destruction
	PhaseCollect   Phase = "collect"   // collector and finalizers
	PhaseSerialize Phase = "serialize" // save/load
	PhaseRuntime   Phase = "runtime"   // heap lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds   Kind = "out_of_bounds"
	KindTypeMismatch  Kind = "type_mismatch"
	KindOwnership     Kind = "ownership_violation"
	KindDoubleRelease Kind = "double_release"
	KindAllocation    Kind = "allocation"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidHandle Kind = "invalid_handle"
	KindUnsupported   Kind = "unsupported"
	KindClosed        Kind = "closed"
	KindStackBalance  Kind = "stack_balance"
)

// Sentinels for errors.Is checks that only care about the category.
var (
	ErrOutOfBounds   = &Error{Kind: KindOutOfBounds}
	ErrTypeMismatch  = &Error{Kind: KindTypeMismatch}
	ErrOwnership     = &Error{Kind: KindOwnership}
	ErrDoubleRelease = &Error{Kind: KindDoubleRelease}
	ErrAllocation    = &Error{Kind: KindAllocation}
	ErrInvalidHandle = &Error{Kind: KindInvalidHandle}
	ErrClosed        = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout rbridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	GoType string
	RType  string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.GoType != "" || e.RType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.RType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", R type ")
			b.WriteString(e.RType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("R type ")
			b.WriteString(e.RType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.RType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// RType sets the foreign type name
func (b *Builder) RType(t string) *Builder {
	b.err.RType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, op string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// RegionOutOfBounds creates an out of bounds error for a bulk range
func RegionOutOfBounds(phase Phase, op string, start, count, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("region [%d, %d) out of bounds (length %d)", start, start+count, length),
		Value:  start,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, rType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		RType:  rType,
	}
}

// Ownership creates an ownership violation error
func Ownership(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOwnership,
		Op:     op,
		Detail: detail,
	}
}

// DoubleRelease creates a double release error
func DoubleRelease(goType string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindDoubleRelease,
		GoType: goType,
		Detail: fmt.Sprintf("external pointer %d already destroyed", handle),
		Value:  handle,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// InvalidHandle creates an invalid handle error
func InvalidHandle(phase Phase, op string, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Op:     op,
		Detail: fmt.Sprintf("handle %d is not live", handle),
		Value:  handle,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Closed creates an error for use of a closed wrapper or heap
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// StackImbalance creates a protect stack error
func StackImbalance(requested, depth int) *Error {
	return &Error{
		Phase:  PhaseRoot,
		Kind:   KindStackBalance,
		Detail: fmt.Sprintf("unprotect %d with stack depth %d", requested, depth),
		Value:  requested,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
