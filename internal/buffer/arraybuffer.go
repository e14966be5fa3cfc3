// Package buffer implements typed views over engine-owned ArrayBuffers.
//
// An ArrayBuffer is never held open: every access goes through one of the
// With* methods, which map the engine memory, hand a typed slice to the
// callback, and release the mapping before returning. Slices passed to a
// callback must not escape it.
//
// The engine objects behind a view are not safe for concurrent mutation.
// Two mapping scopes over the same buffer must not overlap across
// goroutines; callers provide that discipline.
package buffer

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/cryguy/typedarray/internal/core"
	"go.uber.org/zap"
)

// ArrayBuffer is the window [ByteOffset, ByteOffset+ByteLength) of an
// engine ArrayBuffer. Close releases the buffer handle.
type ArrayBuffer struct {
	engine     core.Engine
	handle     core.Handle
	byteOffset int
	byteLength int
	closed     bool
}

// NewArrayBuffer wraps a buffer handle. The ArrayBuffer takes ownership of
// the handle and releases it on Close.
func NewArrayBuffer(engine core.Engine, handle core.Handle, byteOffset, byteLength int) *ArrayBuffer {
	return &ArrayBuffer{
		engine:     engine,
		handle:     handle,
		byteOffset: byteOffset,
		byteLength: byteLength,
	}
}

// Handle returns the engine handle of the backing buffer.
func (b *ArrayBuffer) Handle() core.Handle { return b.handle }

// ByteOffset returns the offset of the window in the backing buffer.
func (b *ArrayBuffer) ByteOffset() int { return b.byteOffset }

// ByteLength returns the size of the window in bytes.
func (b *ArrayBuffer) ByteLength() int { return b.byteLength }

// Close releases the buffer handle. It is safe to call more than once.
func (b *ArrayBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.engine.Release(b.handle)
	return nil
}

// WithBytes maps the window and calls fn with its raw bytes.
func (b *ArrayBuffer) WithBytes(fn func([]byte) error) error {
	return withTyped(b, fn)
}

// WithShorts maps the window and calls fn with it reinterpreted as int16.
func (b *ArrayBuffer) WithShorts(fn func([]int16) error) error {
	return withTyped(b, fn)
}

// WithIntegers maps the window and calls fn with it reinterpreted as int32.
func (b *ArrayBuffer) WithIntegers(fn func([]int32) error) error {
	return withTyped(b, fn)
}

// WithLongs maps the window and calls fn with it reinterpreted as int64.
func (b *ArrayBuffer) WithLongs(fn func([]int64) error) error {
	return withTyped(b, fn)
}

// WithFloats maps the window and calls fn with it reinterpreted as float32.
func (b *ArrayBuffer) WithFloats(fn func([]float32) error) error {
	return withTyped(b, fn)
}

// WithDoubles maps the window and calls fn with it reinterpreted as float64.
func (b *ArrayBuffer) WithDoubles(fn func([]float64) error) error {
	return withTyped(b, fn)
}

// element is the set of host slice element types.
type element interface {
	~byte | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func widthOf[T element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// acquire maps the window. The returned release func must be called.
func (b *ArrayBuffer) acquire(width int) ([]byte, func(), error) {
	if b.closed || !b.engine.Alive(b.handle) {
		return nil, nil, core.BufferUnavailable(core.PhaseMap, b.handle)
	}
	if b.byteLength%width != 0 {
		return nil, nil, core.Malformed(core.PhaseMap, b.handle, b.byteLength, width)
	}
	data, release, err := b.engine.Map(b.handle, b.byteOffset, b.byteLength)
	if err != nil {
		return nil, nil, core.EngineFailure(core.PhaseMap, b.handle, err,
			fmt.Sprintf("mapping %d bytes at offset %d", b.byteLength, b.byteOffset))
	}
	if len(data) != b.byteLength {
		release()
		return nil, nil, core.EngineFailure(core.PhaseMap, b.handle, nil,
			fmt.Sprintf("engine mapped %d bytes, want %d", len(data), b.byteLength))
	}
	core.Logger().Debug("buffer mapped",
		zap.Stringer("handle", b.handle),
		zap.Int("offset", b.byteOffset),
		zap.Int("length", b.byteLength))
	return data, release, nil
}

// withTyped runs fn over the mapping reinterpreted as []T. The mapping is
// released on every exit path, including a panic in fn.
func withTyped[T element](b *ArrayBuffer, fn func([]T) error) error {
	width := widthOf[T]()
	data, release, err := b.acquire(width)
	if err != nil {
		return err
	}
	defer func() {
		release()
		core.Logger().Debug("buffer released", zap.Stringer("handle", b.handle))
	}()

	if len(data) == 0 {
		return fn([]T{})
	}
	if uintptr(unsafe.Pointer(&data[0]))%uintptr(width) == 0 {
		return fn(unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/width))
	}

	// Misaligned mapping: go through an aligned scratch copy.
	scratch := make([]T, len(data)/width)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&scratch[0])), len(data))
	copy(raw, data)
	ferr := fn(scratch)
	copy(data, raw)
	return ferr
}

// NativeOrder is the byte order of every mapping.
var NativeOrder binary.ByteOrder = binary.NativeEndian

// OrderName returns "little" or "big" for NativeOrder.
func OrderName() string {
	var probe [2]byte
	NativeOrder.PutUint16(probe[:], 1)
	if probe[0] == 1 {
		return "little"
	}
	return "big"
}
