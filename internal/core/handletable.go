package core

import "fmt"

// HandleTableJS installs globalThis.__ta, the table that keeps JS objects
// referenced by Go handles alive, plus the accessors both backends
// evaluate against it. Ids are issued by the Go side.
const HandleTableJS = `
globalThis.__ta = (function() {
	const handles = new Map();
	function get(id) {
		if (!handles.has(id)) throw new RangeError('handle ' + id + ' released');
		return handles.get(id);
	}
	function window(id, offset, length) {
		const b = get(id);
		if (!(b instanceof ArrayBuffer) &&
			!(typeof SharedArrayBuffer === 'function' && b instanceof SharedArrayBuffer)) {
			throw new TypeError('not an ArrayBuffer');
		}
		if (offset < 0 || length < 0 || offset + length > b.byteLength) {
			throw new RangeError('window ' + offset + '+' + length + ' exceeds ' + b.byteLength + ' bytes');
		}
		return b.byteLength;
	}
	return {
		handles: handles,
		get: get,
		window: window,
		uint: function(id, prop) {
			const v = get(id)[prop];
			if (typeof v !== 'number') throw new TypeError(prop + ' is not a number');
			return v;
		},
		lookup: function(id, v) {
			handles.set(id, v);
			if (v === null || typeof v !== 'object' || !ArrayBuffer.isView(v)) return '';
			return v[Symbol.toStringTag] || '';
		},
		// stage copies a window into a fresh SharedArrayBuffer held under sid.
		stage: function(sid, id, offset, length) {
			window(id, offset, length);
			const sab = new SharedArrayBuffer(length);
			new Uint8Array(sab).set(new Uint8Array(get(id), offset, length));
			handles.set(sid, sab);
			return sab;
		},
		// unstage copies a staged window back and drops it.
		unstage: function(sid, id, offset) {
			const sab = get(sid);
			handles.delete(sid);
			new Uint8Array(get(id), offset, sab.byteLength).set(new Uint8Array(sab));
		},
	};
})();
`

// Evaluator is what HandleTable needs from an engine: JavaScript
// evaluation with typed results. Implementations fail once the engine is
// closed.
type Evaluator interface {
	Eval(js string) error
	EvalString(js string) (string, error)
	EvalBool(js string) (bool, error)
	EvalInt(js string) (int, error)
}

// HandleTable implements the handle side of Engine and Backend over the
// table installed by HandleTableJS. Backends embed it and add Map,
// Execute and Close.
type HandleTable struct {
	ev   Evaluator
	next Handle
}

// NewHandleTable returns a table that evaluates through ev. HandleTableJS
// must already have been evaluated.
func NewHandleTable(ev Evaluator) HandleTable {
	return HandleTable{ev: ev}
}

// Issue returns a fresh handle id. Ids are never reused.
func (t *HandleTable) Issue() Handle {
	t.next++
	return t.next
}

// Alive reports whether h is still in the handle table.
func (t *HandleTable) Alive(h Handle) bool {
	if h.IsNull() {
		return false
	}
	ok, err := t.ev.EvalBool(fmt.Sprintf("__ta.handles.has(%d)", uint64(h)))
	return err == nil && ok
}

// Uint reads a numeric property of the object behind h.
func (t *HandleTable) Uint(h Handle, property string) (int, error) {
	n, err := t.ev.EvalInt(fmt.Sprintf("__ta.uint(%d, %q)", uint64(h), property))
	if err != nil {
		return 0, fmt.Errorf("reading %s of %s: %w", property, h, err)
	}
	return n, nil
}

// Length reads the element count of the typed array behind h.
func (t *HandleTable) Length(h Handle) (int, error) {
	return t.Uint(h, PropertyLength)
}

// Buffer registers the backing ArrayBuffer of h under a new handle.
func (t *HandleTable) Buffer(h Handle) (Handle, error) {
	id := t.Issue()
	js := fmt.Sprintf("__ta.handles.set(%d, __ta.get(%d).%s)", uint64(id), uint64(h), PropertyBuffer)
	if err := t.ev.Eval(js); err != nil {
		return 0, fmt.Errorf("resolving buffer of %s: %w", h, err)
	}
	return id, nil
}

// Release drops h from the handle table.
func (t *HandleTable) Release(h Handle) {
	if h.IsNull() {
		return
	}
	_ = t.ev.Eval(fmt.Sprintf("__ta.handles.delete(%d)", uint64(h)))
}

// Lookup registers the value of a global binding and returns its type tag.
// Reading an undeclared name fails with the engine's ReferenceError.
func (t *HandleTable) Lookup(global string) (Handle, string, error) {
	if !IsIdentifier(global) {
		return 0, "", fmt.Errorf("looking up %q: not an identifier", global)
	}
	id := t.Issue()
	tag, err := t.ev.EvalString(fmt.Sprintf("__ta.lookup(%d, %s)", uint64(id), global))
	if err != nil {
		return 0, "", fmt.Errorf("looking up %q: %w", global, err)
	}
	return id, tag, nil
}

// Create allocates a zero-filled typed array and registers it.
func (t *HandleTable) Create(kind ElementKind, length int) (Handle, error) {
	name, ok := NameOf(kind)
	if !ok {
		return 0, fmt.Errorf("creating typed array: invalid element kind %d", int(kind))
	}
	if length < 0 {
		return 0, fmt.Errorf("creating %s: negative length %d", name, length)
	}
	id := t.Issue()
	if err := t.ev.Eval(fmt.Sprintf("__ta.handles.set(%d, new %s(%d))", uint64(id), name, length)); err != nil {
		return 0, fmt.Errorf("creating %s(%d): %w", name, length, err)
	}
	return id, nil
}
