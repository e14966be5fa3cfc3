//go:build v8

package v8engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cryguy/typedarray/internal/core"
)

// Map stages bytes [offset, offset+length) of the buffer behind h in a
// SharedArrayBuffer and returns its contents. Release copies the staged
// bytes back into the original buffer.
func (b *Backend) Map(h core.Handle, offset, length int) ([]byte, func(), error) {
	if _, err := b.EvalInt(fmt.Sprintf("__ta.window(%d, %d, %d)", uint64(h), offset, length)); err != nil {
		return nil, nil, fmt.Errorf("mapping %s: %w", h, err)
	}
	if length == 0 {
		return []byte{}, func() {}, nil
	}

	sid := b.Issue()
	sabVal, err := b.evalValue(fmt.Sprintf("__ta.stage(%d, %d, %d, %d)", uint64(sid), uint64(h), offset, length))
	if err != nil {
		return nil, nil, fmt.Errorf("staging %s: %w", h, err)
	}
	data, releaseSAB, err := sabVal.SharedArrayBufferGetContents()
	if err != nil {
		_ = b.Eval(fmt.Sprintf("__ta.handles.delete(%d)", uint64(sid)))
		return nil, nil, fmt.Errorf("reading SharedArrayBuffer for %s: %w", h, err)
	}

	release := func() {
		releaseSAB()
		if b.closed {
			return
		}
		if err := b.Eval(fmt.Sprintf("__ta.unstage(%d, %d, %d)", uint64(sid), uint64(h), offset)); err != nil {
			core.Logger().Warn("v8engine: writing mapped window back failed",
				zap.Stringer("handle", h), zap.Int("offset", offset), zap.Int("length", length), zap.Error(err))
		}
	}
	return data, release, nil
}
