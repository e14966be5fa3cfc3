package buffer

import (
	"github.com/cryguy/typedarray/internal/core"
)

// readAll copies the whole window into a new []T of length
// ByteLength/width. The result is independent of the engine buffer.
func readAll[T element](b *ArrayBuffer) ([]T, error) {
	var out []T
	err := withTyped(b, func(src []T) error {
		out = make([]T, len(src))
		copy(out, src)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeAll copies values over the whole window. The length check runs
// before the buffer is mapped, so a mismatch leaves it untouched.
func writeAll[T element](b *ArrayBuffer, values []T) error {
	width := widthOf[T]()
	if got := len(values) * width; got != b.byteLength {
		return core.LengthMismatch(core.PhaseWrite, b.handle, got, b.byteLength)
	}
	return withTyped(b, func(dst []T) error {
		copy(dst, values)
		return nil
	})
}

// ToBytes copies the window out as bytes.
func (b *ArrayBuffer) ToBytes() ([]byte, error) { return readAll[byte](b) }

// ToShorts copies the window out as int16 values.
func (b *ArrayBuffer) ToShorts() ([]int16, error) { return readAll[int16](b) }

// ToIntegers copies the window out as int32 values.
func (b *ArrayBuffer) ToIntegers() ([]int32, error) { return readAll[int32](b) }

// ToLongs copies the window out as int64 values.
func (b *ArrayBuffer) ToLongs() ([]int64, error) { return readAll[int64](b) }

// ToFloats copies the window out as float32 values.
func (b *ArrayBuffer) ToFloats() ([]float32, error) { return readAll[float32](b) }

// ToDoubles copies the window out as float64 values.
func (b *ArrayBuffer) ToDoubles() ([]float64, error) { return readAll[float64](b) }

// FromBytes overwrites the window. len(values) must equal ByteLength.
func (b *ArrayBuffer) FromBytes(values []byte) error { return writeAll(b, values) }

// FromShorts overwrites the window with int16 values.
func (b *ArrayBuffer) FromShorts(values []int16) error { return writeAll(b, values) }

// FromIntegers overwrites the window with int32 values.
func (b *ArrayBuffer) FromIntegers(values []int32) error { return writeAll(b, values) }

// FromLongs overwrites the window with int64 values.
func (b *ArrayBuffer) FromLongs(values []int64) error { return writeAll(b, values) }

// FromFloats overwrites the window with float32 values.
func (b *ArrayBuffer) FromFloats(values []float32) error { return writeAll(b, values) }

// FromDoubles overwrites the window with float64 values.
func (b *ArrayBuffer) FromDoubles(values []float64) error { return writeAll(b, values) }
