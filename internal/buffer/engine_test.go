package buffer

import (
	"errors"
	"fmt"

	"github.com/cryguy/typedarray/internal/core"
)

// fakeEngine is an in-memory core.Engine. Buffers are plain byte slices and
// typed arrays are windows over them.
type fakeEngine struct {
	next    core.Handle
	objects map[core.Handle]any

	maps     int // Map calls
	releases int // mapping release calls
	dropped  int // Release calls

	failMap    error
	failUint   error
	failBuffer error
	lengthBias int // added to Length to simulate an engine-side resize
}

type fakeBuffer struct {
	data []byte
}

type fakeView struct {
	buffer     *fakeBuffer
	byteOffset int
	byteLength int
	width      int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{objects: make(map[core.Handle]any)}
}

func (e *fakeEngine) add(obj any) core.Handle {
	e.next++
	e.objects[e.next] = obj
	return e.next
}

// newView creates a typed array of kind over a fresh buffer holding data.
func (e *fakeEngine) newView(kind core.ElementKind, data []byte) *TypedArray {
	buf := &fakeBuffer{data: data}
	h := e.add(&fakeView{buffer: buf, byteLength: len(data), width: core.WidthOf(kind)})
	return NewFromKind(e, h, kind)
}

// newSubView creates a typed array over bytes [offset, offset+length) of data.
func (e *fakeEngine) newSubView(kind core.ElementKind, data []byte, offset, length int) *TypedArray {
	buf := &fakeBuffer{data: data}
	h := e.add(&fakeView{buffer: buf, byteOffset: offset, byteLength: length, width: core.WidthOf(kind)})
	return NewFromKind(e, h, kind)
}

// bytesOf returns the backing bytes of a view's buffer.
func (e *fakeEngine) bytesOf(t *TypedArray) []byte {
	return e.objects[t.Handle()].(*fakeView).buffer.data
}

func (e *fakeEngine) Alive(h core.Handle) bool {
	_, ok := e.objects[h]
	return ok
}

func (e *fakeEngine) view(h core.Handle) (*fakeView, error) {
	v, ok := e.objects[h].(*fakeView)
	if !ok {
		return nil, fmt.Errorf("%s is not a typed array", h)
	}
	return v, nil
}

func (e *fakeEngine) Uint(h core.Handle, property string) (int, error) {
	if e.failUint != nil {
		return 0, e.failUint
	}
	v, err := e.view(h)
	if err != nil {
		return 0, err
	}
	switch property {
	case core.PropertyByteLength:
		return v.byteLength, nil
	case core.PropertyByteOffset:
		return v.byteOffset, nil
	default:
		return 0, fmt.Errorf("unknown property %q", property)
	}
}

func (e *fakeEngine) Length(h core.Handle) (int, error) {
	v, err := e.view(h)
	if err != nil {
		return 0, err
	}
	if v.width == 0 {
		return 0, nil
	}
	return v.byteLength/v.width + e.lengthBias, nil
}

func (e *fakeEngine) Buffer(h core.Handle) (core.Handle, error) {
	if e.failBuffer != nil {
		return 0, e.failBuffer
	}
	v, err := e.view(h)
	if err != nil {
		return 0, err
	}
	return e.add(v.buffer), nil
}

func (e *fakeEngine) Map(h core.Handle, offset, length int) ([]byte, func(), error) {
	e.maps++
	if e.failMap != nil {
		return nil, nil, e.failMap
	}
	b, ok := e.objects[h].(*fakeBuffer)
	if !ok {
		return nil, nil, errors.New("not an ArrayBuffer")
	}
	if offset+length > len(b.data) {
		return nil, nil, fmt.Errorf("window %d+%d exceeds %d bytes", offset, length, len(b.data))
	}
	return b.data[offset : offset+length], func() { e.releases++ }, nil
}

func (e *fakeEngine) Release(h core.Handle) {
	e.dropped++
	delete(e.objects, h)
}

var _ core.Engine = (*fakeEngine)(nil)
