package core

import (
	"fmt"
	"regexp"
)

// Handle is an opaque token for an engine-side object. Handles are issued
// by a backend and never by this package; zero is never issued.
type Handle uint64

// IsNull reports whether the handle is the zero token.
func (h Handle) IsNull() bool { return h == 0 }

func (h Handle) String() string { return fmt.Sprintf("Handle(%d)", uint64(h)) }

// Engine is the collaborator a typed view needs from the embedding
// runtime. Implementations are not safe for concurrent use unless they say
// otherwise.
type Engine interface {
	// Alive reports whether h still refers to a live engine object.
	Alive(h Handle) bool

	// Uint reads a non-negative integer property (byteLength, byteOffset)
	// from the object behind h.
	Uint(h Handle, property string) (int, error)

	// Length returns the engine's element count for the typed array behind h.
	Length(h Handle) (int, error)

	// Buffer resolves the "buffer" property of h into a new handle. The
	// caller owns the returned handle and must Release it.
	Buffer(h Handle) (Handle, error)

	// Map makes bytes [offset, offset+length) of the ArrayBuffer behind buf
	// visible to Go. The slice is only valid until release is called, and
	// release must be called exactly once.
	Map(buf Handle, offset, length int) (data []byte, release func(), err error)

	// Release drops a handle. Releasing an unknown handle is a no-op.
	Release(h Handle)
}

// Backend is a complete engine: the Engine contract plus script execution
// and typed-array discovery. The root typedarray.Runtime delegates to one
// of these based on build tags.
type Backend interface {
	Engine

	// Execute runs a classic script. A script failure is reported as
	// *ExecutionError.
	Execute(resourceName, source string) error

	// Eval evaluates JavaScript and discards the result.
	Eval(js string) error

	// Lookup returns a handle to the value of a global variable along with
	// its Symbol.toStringTag, which is empty for non-typed-array values.
	Lookup(global string) (Handle, string, error)

	// Create allocates a zero-filled typed array of the given kind.
	Create(kind ElementKind, length int) (Handle, error)

	// Close disposes of the engine. Outstanding handles become dead.
	Close()
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether name can be spliced into generated
// JavaScript as a plain identifier reference.
func IsIdentifier(name string) bool {
	return identifierRE.MatchString(name)
}
