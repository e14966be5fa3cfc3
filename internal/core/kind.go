package core

// ElementKind identifies the element type of an engine typed array.
// The zero value is Invalid.
type ElementKind int

const (
	Invalid ElementKind = iota
	Int8
	Uint8
	Uint8Clamped
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	BigInt64
	BigUint64
)

// Canonical JS constructor names, as reported by Symbol.toStringTag.
const (
	NameInt8Array         = "Int8Array"
	NameUint8Array        = "Uint8Array"
	NameUint8ClampedArray = "Uint8ClampedArray"
	NameInt16Array        = "Int16Array"
	NameUint16Array       = "Uint16Array"
	NameInt32Array        = "Int32Array"
	NameUint32Array       = "Uint32Array"
	NameFloat32Array      = "Float32Array"
	NameFloat64Array      = "Float64Array"
	NameBigInt64Array     = "BigInt64Array"
	NameBigUint64Array    = "BigUint64Array"
	NameInvalid           = "Invalid"
)

// Named properties read from a typed array object.
const (
	PropertyBuffer     = "buffer"
	PropertyByteLength = "byteLength"
	PropertyByteOffset = "byteOffset"
	PropertyLength     = "length"
)

// Family groups element kinds that share a host slice type.
type Family int

const (
	FamilyNone Family = iota
	FamilyBytes
	FamilyShorts
	FamilyIntegers
	FamilyLongs
	FamilyFloats
	FamilyDoubles
)

var allKinds = []ElementKind{
	Int8, Uint8, Uint8Clamped,
	Int16, Uint16,
	Int32, Uint32,
	Float32, Float64,
	BigInt64, BigUint64,
}

// Kinds returns every valid element kind in canonical order.
func Kinds() []ElementKind {
	out := make([]ElementKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// WidthOf returns the byte width of one element of kind k, or 0 for
// Invalid and unknown values.
func WidthOf(k ElementKind) int {
	switch k {
	case Int8, Uint8, Uint8Clamped:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64, BigInt64, BigUint64:
		return 8
	default:
		return 0
	}
}

// NameOf returns the JS constructor name for k. The second result is
// false for Invalid and unknown values.
func NameOf(k ElementKind) (string, bool) {
	switch k {
	case Int8:
		return NameInt8Array, true
	case Uint8:
		return NameUint8Array, true
	case Uint8Clamped:
		return NameUint8ClampedArray, true
	case Int16:
		return NameInt16Array, true
	case Uint16:
		return NameUint16Array, true
	case Int32:
		return NameInt32Array, true
	case Uint32:
		return NameUint32Array, true
	case Float32:
		return NameFloat32Array, true
	case Float64:
		return NameFloat64Array, true
	case BigInt64:
		return NameBigInt64Array, true
	case BigUint64:
		return NameBigUint64Array, true
	default:
		return "", false
	}
}

// KindOf decodes a constructor name reported by the engine. Anything
// unrecognized decodes to Invalid.
func KindOf(name string) ElementKind {
	switch name {
	case NameInt8Array:
		return Int8
	case NameUint8Array:
		return Uint8
	case NameUint8ClampedArray:
		return Uint8Clamped
	case NameInt16Array:
		return Int16
	case NameUint16Array:
		return Uint16
	case NameInt32Array:
		return Int32
	case NameUint32Array:
		return Uint32
	case NameFloat32Array:
		return Float32
	case NameFloat64Array:
		return Float64
	case NameBigInt64Array:
		return BigInt64
	case NameBigUint64Array:
		return BigUint64
	default:
		return Invalid
	}
}

// FamilyOf returns the host representation family for k.
func FamilyOf(k ElementKind) Family {
	switch k {
	case Int8, Uint8, Uint8Clamped:
		return FamilyBytes
	case Int16, Uint16:
		return FamilyShorts
	case Int32, Uint32:
		return FamilyIntegers
	case Float32:
		return FamilyFloats
	case Float64:
		return FamilyDoubles
	case BigInt64, BigUint64:
		return FamilyLongs
	default:
		return FamilyNone
	}
}

// Valid reports whether k is a recognized element kind.
func (k ElementKind) Valid() bool {
	return WidthOf(k) != 0
}

func (k ElementKind) String() string {
	if name, ok := NameOf(k); ok {
		return name
	}
	return NameInvalid
}

// Width returns the host element width of the family.
func (f Family) Width() int {
	switch f {
	case FamilyBytes:
		return 1
	case FamilyShorts:
		return 2
	case FamilyIntegers, FamilyFloats:
		return 4
	case FamilyLongs, FamilyDoubles:
		return 8
	default:
		return 0
	}
}

func (f Family) String() string {
	switch f {
	case FamilyBytes:
		return "bytes"
	case FamilyShorts:
		return "shorts"
	case FamilyIntegers:
		return "integers"
	case FamilyLongs:
		return "longs"
	case FamilyFloats:
		return "floats"
	case FamilyDoubles:
		return "doubles"
	default:
		return "none"
	}
}
