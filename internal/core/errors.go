package core

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in a marshalling round-trip the error occurred
type Phase string

const (
	PhaseMap     Phase = "map"     // acquiring a buffer mapping
	PhaseRead    Phase = "read"    // buffer to Go
	PhaseWrite   Phase = "write"   // Go to buffer
	PhaseEngine  Phase = "engine"  // property or handle round-trip
	PhaseExecute Phase = "execute" // script execution
	PhaseStore   Phase = "store"   // snapshot persistence
)

// Kind categorizes the error
type Kind string

const (
	KindLengthMismatch      Kind = "length_mismatch"
	KindBufferUnavailable   Kind = "buffer_unavailable"
	KindEngineCommunication Kind = "engine_communication"
	KindMalformedView       Kind = "malformed_view"
	KindKindMismatch        Kind = "kind_mismatch"
	KindExecution           Kind = "execution"
)

// Error is the structured error returned by the buffer layer.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Handle Handle
	Detail string
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrLengthMismatch      = &Error{Kind: KindLengthMismatch}
	ErrBufferUnavailable   = &Error{Kind: KindBufferUnavailable}
	ErrEngineCommunication = &Error{Kind: KindEngineCommunication}
	ErrMalformedView       = &Error{Kind: KindMalformedView}
	ErrKindMismatch        = &Error{Kind: KindKindMismatch}
	ErrExecution           = &Error{Kind: KindExecution}
)

func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if !e.Handle.IsNull() {
		b.WriteString(" on ")
		b.WriteString(e.Handle.String())
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Is reports whether target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// LengthMismatch reports host data that cannot fill the buffer exactly.
func LengthMismatch(phase Phase, h Handle, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Handle: h,
		Detail: fmt.Sprintf("%d bytes supplied for a %d byte buffer", got, want),
	}
}

// BufferUnavailable reports a handle whose engine object is gone.
func BufferUnavailable(phase Phase, h Handle) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBufferUnavailable,
		Handle: h,
		Detail: "engine object released",
	}
}

// EngineFailure wraps a failed engine round-trip. An *Error cause that is
// already classified is returned unchanged.
func EngineFailure(phase Phase, h Handle, cause error, detail string) *Error {
	var classified *Error
	if errors.As(cause, &classified) {
		return classified
	}
	return &Error{
		Phase:  phase,
		Kind:   KindEngineCommunication,
		Handle: h,
		Detail: detail,
		Cause:  cause,
	}
}

// Malformed reports a buffer window that does not hold whole elements.
func Malformed(phase Phase, h Handle, byteLength, width int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedView,
		Handle: h,
		Detail: fmt.Sprintf("byte length %d is not a multiple of element width %d", byteLength, width),
	}
}

// KindMismatch reports an explicit, non-probing kind conflict.
func KindMismatch(phase Phase, h Handle, got, want ElementKind) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindKindMismatch,
		Handle: h,
		Detail: fmt.Sprintf("view is %s, want %s", got, want),
	}
}
