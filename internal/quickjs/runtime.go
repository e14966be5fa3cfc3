//go:build !v8

// Package quickjs implements core.Backend on modernc.org/quickjs.
//
// Typed arrays observed by Go are kept alive in a JS-side handle table
// (globalThis.__ta) keyed by core.Handle. Buffer mappings go
// straight to the ArrayBuffer's backing store through the libquickjs C
// API; if the VM internals cannot be reached, mappings fall back to a
// chunked base64 copy that is written back on release.
package quickjs

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"

	"github.com/cryguy/typedarray/internal/core"
)

// Backend is a single QuickJS VM. It is not safe for concurrent use.
type Backend struct {
	vm  *quickjs.VM
	tls *libc.TLS // cached from VM internals for direct C API access
	ctx uintptr   // cached JSContext pointer for direct C API access

	core.HandleTable // Engine handle methods, evaluated through b
	closed           bool

	// fallback fields: used only when direct C API extraction fails
	// (e.g. if modernc.org/quickjs changes its unexported struct layout).
	useFallback   bool
	pendingBinary []byte // temp: data being written to JS
	pendingResult []byte // temp: data being read from JS
}

var _ core.Backend = (*Backend)(nil)

// New creates a QuickJS VM configured from cfg.
func New(cfg core.Config) (*Backend, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if cfg.Engine.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(cfg.Engine.MemoryLimitMB) * 1024 * 1024)
	}

	b := &Backend{vm: vm}
	b.HandleTable = core.NewHandleTable(b)
	if err := b.Eval(core.HandleTableJS); err != nil {
		vm.Close()
		return nil, fmt.Errorf("installing handle table: %w", err)
	}
	if err := b.initBinaryTransfer(); err != nil {
		vm.Close()
		return nil, fmt.Errorf("initializing buffer access: %w", err)
	}
	return b, nil
}

// Close disposes of the VM. Outstanding handles become dead.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.vm.Close()
}

// Eval evaluates JavaScript and discards the result.
func (b *Backend) Eval(js string) error {
	if b.closed {
		return fmt.Errorf("QuickJS VM is closed")
	}
	v, err := b.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (b *Backend) EvalString(js string) (string, error) {
	if b.closed {
		return "", fmt.Errorf("QuickJS VM is closed")
	}
	result, err := b.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (b *Backend) EvalBool(js string) (bool, error) {
	if b.closed {
		return false, fmt.Errorf("QuickJS VM is closed")
	}
	result, err := b.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	v, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return v, nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (b *Backend) EvalInt(js string) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("QuickJS VM is closed")
	}
	result, err := b.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// registerFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) are automatically unwrapped: on success
// returns T, on error throws a TypeError. This is necessary because the
// QuickJS Go wrapper returns multi-value results as JS arrays.
func (b *Backend) registerFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := b.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return b.Eval(wrapJS)
}

// setGlobal sets a global property on the VM's global object.
func (b *Backend) setGlobal(name string, value any) error {
	atom, err := b.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := b.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// initBinaryTransfer extracts the VM's internal tls and cContext pointers
// for direct C API access. If extraction fails (e.g. struct layout changed
// in a new quickjs version), falls back to chunked base64 transfer which
// is slower but doesn't depend on internal layout.
func (b *Backend) initBinaryTransfer() error {
	if err := b.tryExtractVMInternals(); err != nil {
		core.Logger().Warn("quickjs: direct buffer access unavailable, using copy fallback",
			zap.Error(err))
		b.useFallback = true
		return b.initFallbackTransfer()
	}

	// Smoke-test: try a trivial C API call to verify pointers are valid.
	glob := lib.XJS_GetGlobalObject(b.tls, b.ctx)
	lib.XFreeValue(b.tls, b.ctx, glob)

	return nil
}

// tryExtractVMInternals uses reflect+unsafe to cache the VM's tls and ctx.
func (b *Backend) tryExtractVMInternals() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic extracting VM internals: %v", p)
		}
	}()

	vmType := reflect.TypeOf(b.vm).Elem()
	vmPtr := uintptr(unsafe.Pointer(b.vm))

	// cContext is the first field of VM (offset 0).
	b.ctx = *(*uintptr)(unsafe.Pointer(vmPtr))
	if b.ctx == 0 {
		return fmt.Errorf("JSContext is nil")
	}

	// Get runtime pointer via its reflected field offset.
	rtField, ok := vmType.FieldByName("runtime")
	if !ok {
		return fmt.Errorf("quickjs.VM missing 'runtime' field")
	}
	rtPtr := *(*uintptr)(unsafe.Pointer(vmPtr + rtField.Offset))
	if rtPtr == 0 {
		return fmt.Errorf("runtime pointer is nil")
	}

	// tls is the second field in runtime (after cRuntime uintptr).
	b.tls = *(**libc.TLS)(unsafe.Pointer(rtPtr + unsafe.Sizeof(uintptr(0))))
	if b.tls == nil {
		return fmt.Errorf("TLS is nil")
	}

	return nil
}
