//go:build !v8

package quickjs

import (
	"encoding/base64"
	"fmt"
	"unsafe"

	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/libquickjs"

	"github.com/cryguy/typedarray/internal/core"
)

// btChunkSize is the raw byte chunk size for the fallback base64 transfer path.
const btChunkSize = 196608 // 192 KB raw → 256 KB base64

// mapGlobal is the temporary global the C API reads the buffer from.
const mapGlobal = "__ta_map"

// Map exposes bytes [offset, offset+length) of the buffer behind h. On the
// direct path the slice aliases the engine's backing store and the
// ArrayBuffer is kept referenced until release.
func (b *Backend) Map(h core.Handle, offset, length int) ([]byte, func(), error) {
	if _, err := b.EvalInt(fmt.Sprintf("__ta.window(%d, %d, %d)", uint64(h), offset, length)); err != nil {
		return nil, nil, fmt.Errorf("mapping %s: %w", h, err)
	}
	if length == 0 {
		return []byte{}, func() {}, nil
	}
	if b.useFallback {
		return b.mapFallback(h, offset, length)
	}
	return b.mapDirect(h, offset, length)
}

func (b *Backend) mapDirect(h core.Handle, offset, length int) ([]byte, func(), error) {
	if err := b.Eval(fmt.Sprintf("globalThis[%q] = __ta.get(%d);", mapGlobal, uint64(h))); err != nil {
		return nil, nil, fmt.Errorf("staging %s: %w", h, err)
	}
	defer func() { _ = b.Eval(fmt.Sprintf("delete globalThis[%q];", mapGlobal)) }()

	cName, err := libc.CString(mapGlobal)
	if err != nil {
		return nil, nil, fmt.Errorf("allocating property name: %w", err)
	}
	glob := lib.XJS_GetGlobalObject(b.tls, b.ctx)
	jsVal := lib.XJS_GetPropertyStr(b.tls, b.ctx, glob, cName)
	lib.XFreeValue(b.tls, b.ctx, glob)
	libc.Xfree(b.tls, cName)

	var size lib.Tsize_t
	dataPtr := lib.XJS_GetArrayBuffer(b.tls, b.ctx, uintptr(unsafe.Pointer(&size)), jsVal)
	if dataPtr == 0 || int(size) < offset+length {
		lib.XFreeValue(b.tls, b.ctx, jsVal)
		return nil, nil, fmt.Errorf("mapping %s: backing store unavailable", h)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr+uintptr(offset))), length)
	release := func() {
		if b.closed {
			return
		}
		lib.XFreeValue(b.tls, b.ctx, jsVal)
	}
	return data, release, nil
}

// --- Fallback: chunked base64 transfer (used if C API extraction fails) ---

// base64JS provides atob/btoa for the fallback path when the VM has none.
const base64JS = `
(function() {
	if (typeof globalThis.atob === 'function' && typeof globalThis.btoa === 'function') return;
	const _e = 'ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/';
	const _d = new Uint8Array(128);
	for (let i = 0; i < _e.length; i++) _d[_e.charCodeAt(i)] = i;

	globalThis.btoa = function(s) {
		const len = s.length;
		const out = [];
		for (let i = 0; i < len; i += 3) {
			const a = s.charCodeAt(i);
			const b = i + 1 < len ? s.charCodeAt(i + 1) : 0;
			const c = i + 2 < len ? s.charCodeAt(i + 2) : 0;
			out.push(
				_e[a >> 2],
				_e[((a & 3) << 4) | (b >> 4)],
				i + 1 < len ? _e[((b & 15) << 2) | (c >> 6)] : '=',
				i + 2 < len ? _e[c & 63] : '='
			);
		}
		return out.join('');
	};

	globalThis.atob = function(b64) {
		let pad = 0;
		if (b64[b64.length - 1] === '=') pad++;
		if (b64[b64.length - 2] === '=') pad++;
		const outLen = (b64.length / 4) * 3 - pad;
		const bytes = new Uint8Array(outLen);
		let j = 0;
		for (let i = 0; i < b64.length; i += 4) {
			const a = _d[b64.charCodeAt(i)];
			const b = _d[b64.charCodeAt(i + 1)];
			const c = _d[b64.charCodeAt(i + 2)];
			const d = _d[b64.charCodeAt(i + 3)];
			bytes[j++] = (a << 2) | (b >> 4);
			if (j < outLen) bytes[j++] = ((b & 15) << 4) | (c >> 2);
			if (j < outLen) bytes[j++] = ((c & 3) << 6) | d;
		}
		let result = '';
		for (let i = 0; i < outLen; i += 4096) {
			result += String.fromCharCode.apply(null, bytes.subarray(i, Math.min(i + 4096, outLen)));
		}
		return result;
	};
})();
`

// initFallbackTransfer registers Go callback functions for chunked base64 transfer.
func (b *Backend) initFallbackTransfer() error {
	if err := b.Eval(base64JS); err != nil {
		return fmt.Errorf("evaluating base64 helpers: %w", err)
	}

	if err := b.registerFunc("__ta_bt_chunk", func(offset int) (string, error) {
		if b.pendingBinary == nil {
			return "", fmt.Errorf("no pending binary data")
		}
		end := offset + btChunkSize
		if end > len(b.pendingBinary) {
			end = len(b.pendingBinary)
		}
		return base64.StdEncoding.EncodeToString(b.pendingBinary[offset:end]), nil
	}); err != nil {
		return fmt.Errorf("registering __ta_bt_chunk: %w", err)
	}

	if err := b.registerFunc("__ta_bt_recv", func(b64 string) (string, error) {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return "", fmt.Errorf("decoding binary chunk: %w", err)
		}
		b.pendingResult = append(b.pendingResult, decoded...)
		return "", nil
	}); err != nil {
		return fmt.Errorf("registering __ta_bt_recv: %w", err)
	}

	return nil
}

// mapFallback copies the window out and writes the copy back on release.
func (b *Backend) mapFallback(h core.Handle, offset, length int) ([]byte, func(), error) {
	data, err := b.readWindowFallback(h, offset, length)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if b.closed {
			return
		}
		if err := b.writeWindowFallback(h, offset, data); err != nil {
			core.Logger().Warn("quickjs: writing mapped window back failed",
				zap.Stringer("handle", h), zap.Int("offset", offset), zap.Int("length", len(data)), zap.Error(err))
		}
	}
	return data, release, nil
}

func (b *Backend) readWindowFallback(h core.Handle, offset, length int) ([]byte, error) {
	b.pendingResult = make([]byte, 0, length)
	defer func() { b.pendingResult = nil }()

	if err := b.Eval(fmt.Sprintf(`(function() {
		var view = new Uint8Array(__ta.get(%d), %d, %d);
		var cs = %d;
		for (var off = 0; off < view.length; off += cs) {
			var chunk = view.subarray(off, Math.min(off + cs, view.length));
			var parts = [];
			for (var i = 0; i < chunk.length; i += 8192) {
				parts.push(String.fromCharCode.apply(null, chunk.subarray(i, Math.min(i + 8192, chunk.length))));
			}
			__ta_bt_recv(btoa(parts.join('')));
		}
	})()`, uint64(h), offset, length, btChunkSize)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", h, err)
	}
	if len(b.pendingResult) != length {
		return nil, fmt.Errorf("reading %s: got %d bytes, want %d", h, len(b.pendingResult), length)
	}
	return b.pendingResult, nil
}

func (b *Backend) writeWindowFallback(h core.Handle, offset int, data []byte) error {
	b.pendingBinary = data
	defer func() { b.pendingBinary = nil }()

	return b.Eval(fmt.Sprintf(`(function() {
		var sz = %d;
		var view = new Uint8Array(__ta.get(%d), %d, sz);
		var off = 0;
		while (off < sz) {
			var raw = atob(__ta_bt_chunk(off));
			for (var i = 0; i < raw.length; i++) {
				view[off + i] = raw.charCodeAt(i);
			}
			off += raw.length;
		}
	})()`, len(data), uint64(h), offset))
}
