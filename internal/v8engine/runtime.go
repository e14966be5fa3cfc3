//go:build v8

// Package v8engine implements core.Backend on V8 through tommie/v8go.
//
// Go handles refer to entries of the JS-side table installed from
// core.HandleTableJS. V8 does not expose ArrayBuffer backing stores to
// Go, so a mapping stages the window in a SharedArrayBuffer and copies it
// back when released.
package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"

	"github.com/cryguy/typedarray/internal/core"
)

// Backend is a single V8 isolate and context. It is not safe for
// concurrent use.
type Backend struct {
	iso *v8.Isolate
	ctx *v8.Context

	core.HandleTable // Engine handle methods, evaluated through b
	closed           bool
}

var _ core.Backend = (*Backend)(nil)

// New creates an isolate configured from cfg.
func New(cfg core.Config) (*Backend, error) {
	var iso *v8.Isolate
	if cfg.Engine.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.Engine.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	ctx := v8.NewContext(iso)
	b := &Backend{iso: iso, ctx: ctx}
	b.HandleTable = core.NewHandleTable(b)

	if err := b.Eval(core.HandleTableJS); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("installing handle table: %w", err)
	}
	return b, nil
}

// Close disposes of the context and isolate.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.ctx.Close()
	b.iso.Dispose()
}

// Eval evaluates JavaScript and discards the result.
func (b *Backend) Eval(js string) error {
	if b.closed {
		return fmt.Errorf("V8 isolate is disposed")
	}
	_, err := b.ctx.RunScript(js, "eval.js")
	return err
}

// evalValue evaluates JavaScript and returns the raw result.
func (b *Backend) evalValue(js string) (*v8.Value, error) {
	if b.closed {
		return nil, fmt.Errorf("V8 isolate is disposed")
	}
	return b.ctx.RunScript(js, "eval_value.js")
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (b *Backend) EvalString(js string) (string, error) {
	val, err := b.evalValue(js)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (b *Backend) EvalBool(js string) (bool, error) {
	val, err := b.evalValue(js)
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, nil
	}
	return val.Boolean(), nil
}

// EvalInt evaluates JavaScript and returns the result as a Go int.
func (b *Backend) EvalInt(js string) (int, error) {
	val, err := b.evalValue(js)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	return int(val.Integer()), nil
}
