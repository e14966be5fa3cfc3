package buffer

import (
	"fmt"

	"github.com/cryguy/typedarray/internal/core"
)

// TypedArray is a kind-tagged view of an engine typed array. It holds a
// non-owning handle: releasing the engine object is up to whoever obtained
// the handle.
//
// The typical way of reading a view is through the To* methods, which copy
// the elements out in one mapping scope:
//
//	ints, err := ta.ToIntegers()
//	if err != nil { ... }
//	if ints == nil { /* not an Int32Array or Uint32Array */ }
//
// For in-place access, take the buffer and use a With* accessor:
//
//	buf, err := ta.Buffer()
//	if err != nil { ... }
//	defer buf.Close()
//	err = buf.WithLongs(func(v []int64) error { v[0]++; return nil })
type TypedArray struct {
	engine core.Engine
	handle core.Handle
	kind   core.ElementKind
	width  int
}

// New creates a view from the engine's type tag. Unrecognized tags give an
// invalid view; construction never fails.
func New(engine core.Engine, handle core.Handle, typeName string) *TypedArray {
	return NewFromKind(engine, handle, core.KindOf(typeName))
}

// NewFromKind creates a view of a known kind. Unknown kinds are folded to
// core.Invalid.
func NewFromKind(engine core.Engine, handle core.Handle, kind core.ElementKind) *TypedArray {
	width := core.WidthOf(kind)
	if width == 0 {
		kind = core.Invalid
	}
	return &TypedArray{
		engine: engine,
		handle: handle,
		kind:   kind,
		width:  width,
	}
}

// Kind returns the element kind.
func (t *TypedArray) Kind() core.ElementKind { return t.kind }

// ElementWidth returns the element width in bytes, 0 for invalid views.
func (t *TypedArray) ElementWidth() int { return t.width }

// IsValid reports whether the kind was recognized.
func (t *TypedArray) IsValid() bool { return t.kind != core.Invalid }

// Handle returns the engine handle of the typed array object.
func (t *TypedArray) Handle() core.Handle { return t.handle }

// Name returns the JS constructor name, or "" for invalid views.
func (t *TypedArray) Name() string {
	name, _ := core.NameOf(t.kind)
	return name
}

// Accepts reports whether conversions of family f apply to this view.
func (t *TypedArray) Accepts(f core.Family) bool {
	return f != core.FamilyNone && core.FamilyOf(t.kind) == f
}

func (t *TypedArray) String() string {
	return fmt.Sprintf("%s(%s)", t.kind, t.handle)
}

// ByteLength reads byteLength from the engine.
func (t *TypedArray) ByteLength() (int, error) {
	return t.readUint(core.PropertyByteLength)
}

// ByteOffset reads byteOffset from the engine.
func (t *TypedArray) ByteOffset() (int, error) {
	return t.readUint(core.PropertyByteOffset)
}

// Length returns the element count as the engine reports it.
func (t *TypedArray) Length() (int, error) {
	if !t.engine.Alive(t.handle) {
		return 0, core.BufferUnavailable(core.PhaseEngine, t.handle)
	}
	n, err := t.engine.Length(t.handle)
	if err != nil {
		return 0, core.EngineFailure(core.PhaseEngine, t.handle, err, "reading length")
	}
	return n, nil
}

func (t *TypedArray) readUint(property string) (int, error) {
	if !t.engine.Alive(t.handle) {
		return 0, core.BufferUnavailable(core.PhaseEngine, t.handle)
	}
	v, err := t.engine.Uint(t.handle, property)
	if err != nil {
		return 0, core.EngineFailure(core.PhaseEngine, t.handle, err, "reading "+property)
	}
	return v, nil
}

// Buffer resolves the backing ArrayBuffer, windowed to this view's
// byteOffset and byteLength. The caller must Close it.
func (t *TypedArray) Buffer() (*ArrayBuffer, error) {
	offset, err := t.ByteOffset()
	if err != nil {
		return nil, err
	}
	length, err := t.ByteLength()
	if err != nil {
		return nil, err
	}
	h, err := t.engine.Buffer(t.handle)
	if err != nil {
		return nil, core.EngineFailure(core.PhaseEngine, t.handle, err, "resolving "+core.PropertyBuffer)
	}
	return NewArrayBuffer(t.engine, h, offset, length), nil
}

// withBuffer runs fn with the backing buffer and closes it afterwards.
func (t *TypedArray) withBuffer(fn func(*ArrayBuffer) error) error {
	buf, err := t.Buffer()
	if err != nil {
		return err
	}
	defer buf.Close()
	return fn(buf)
}

// read copies the view out when its family matches, and returns nil with
// no engine access otherwise.
func read[T element](t *TypedArray, f core.Family) ([]T, error) {
	if !t.Accepts(f) {
		return nil, nil
	}
	var out []T
	err := t.withBuffer(func(b *ArrayBuffer) error {
		var rerr error
		out, rerr = readAll[T](b)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// write copies values into the view when its family matches, and returns
// false with no engine access otherwise.
func write[T element](t *TypedArray, f core.Family, values []T) (bool, error) {
	if !t.Accepts(f) {
		return false, nil
	}
	err := t.withBuffer(func(b *ArrayBuffer) error {
		return writeAll(b, values)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ToBytes copies an Int8Array, Uint8Array or Uint8ClampedArray out.
func (t *TypedArray) ToBytes() ([]byte, error) { return read[byte](t, core.FamilyBytes) }

// ToShorts copies an Int16Array or Uint16Array out.
func (t *TypedArray) ToShorts() ([]int16, error) { return read[int16](t, core.FamilyShorts) }

// ToIntegers copies an Int32Array or Uint32Array out.
func (t *TypedArray) ToIntegers() ([]int32, error) { return read[int32](t, core.FamilyIntegers) }

// ToLongs copies a BigInt64Array or BigUint64Array out.
func (t *TypedArray) ToLongs() ([]int64, error) { return read[int64](t, core.FamilyLongs) }

// ToFloats copies a Float32Array out.
func (t *TypedArray) ToFloats() ([]float32, error) { return read[float32](t, core.FamilyFloats) }

// ToDoubles copies a Float64Array out.
func (t *TypedArray) ToDoubles() ([]float64, error) { return read[float64](t, core.FamilyDoubles) }

// FromBytes overwrites an Int8Array, Uint8Array or Uint8ClampedArray.
func (t *TypedArray) FromBytes(values []byte) (bool, error) {
	return write(t, core.FamilyBytes, values)
}

// FromShorts overwrites an Int16Array or Uint16Array.
func (t *TypedArray) FromShorts(values []int16) (bool, error) {
	return write(t, core.FamilyShorts, values)
}

// FromIntegers overwrites an Int32Array or Uint32Array.
func (t *TypedArray) FromIntegers(values []int32) (bool, error) {
	return write(t, core.FamilyIntegers, values)
}

// FromLongs overwrites a BigInt64Array or BigUint64Array.
func (t *TypedArray) FromLongs(values []int64) (bool, error) {
	return write(t, core.FamilyLongs, values)
}

// FromFloats overwrites a Float32Array.
func (t *TypedArray) FromFloats(values []float32) (bool, error) {
	return write(t, core.FamilyFloats, values)
}

// FromDoubles overwrites a Float64Array.
func (t *TypedArray) FromDoubles(values []float64) (bool, error) {
	return write(t, core.FamilyDoubles, values)
}
