// Package typedarray gives Go code typed, fixed-width views over the
// ArrayBuffers of an embedded JavaScript engine.
//
// The engine is QuickJS by default and V8 when built with -tags v8. A
// Runtime owns one engine context; views obtained from it borrow handles
// that stay valid until released or until the Runtime is closed.
//
//	rt, err := typedarray.New(typedarray.DefaultConfig())
//	if err != nil { ... }
//	defer rt.Close()
//	if err := rt.Run("setup.js", "var samples = new Float64Array(4);"); err != nil { ... }
//	ta, err := rt.TypedArray("samples")
//	if err != nil { ... }
//	defer rt.Release(ta)
//	ok, err := ta.FromDoubles([]float64{1, 2, 3, 4})
package typedarray

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cryguy/typedarray/internal/buffer"
	"github.com/cryguy/typedarray/internal/core"
	"github.com/cryguy/typedarray/internal/script"
	"github.com/cryguy/typedarray/internal/snapshot"
)

// ErrClosed is returned by Runtime methods after Close.
var ErrClosed = errors.New("typedarray: runtime is closed")

// Runtime serializes access to one engine context. It is safe for
// concurrent use; the engine itself only ever sees one caller at a time.
type Runtime struct {
	mu      sync.Mutex
	backend core.Backend
	engine  *lockedEngine
	cfg     core.Config
	store   *snapshot.Store
	closed  bool
}

// New creates a Runtime on the engine selected at build time. When
// cfg.Log names a level or asks for development output and no logger has
// been installed with SetLogger, New installs NewLogger(cfg.Log).
func New(cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Log.Level != "" || cfg.Log.Development {
		err := core.SetDefaultLogger(func() (*zap.Logger, error) { return NewLogger(cfg.Log) })
		if err != nil {
			return nil, fmt.Errorf("configuring logger: %w", err)
		}
	}
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	r := &Runtime{backend: backend, cfg: cfg}
	r.engine = &lockedEngine{mu: &r.mu, rt: r}
	core.Logger().Debug("typedarray: runtime created",
		zap.Int("memory_limit_mb", cfg.Engine.MemoryLimitMB))
	return r, nil
}

// Run executes a script resource. TypeScript resources (.ts, .mts, .cts)
// are transpiled first. A script that throws yields *ExecutionError.
func (r *Runtime) Run(resourceName, source string) error {
	prepared, err := script.Prepare(resourceName, source)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.backend.Execute(resourceName, prepared)
}

// Eval evaluates JavaScript and discards the result.
func (r *Runtime) Eval(js string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.backend.Eval(js)
}

// TypedArray returns a view of the global binding named global. A value
// that is not a typed array yields an invalid view rather than an error.
// The caller must Release the view.
func (r *Runtime) TypedArray(global string) (*TypedArray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	h, tag, err := r.backend.Lookup(global)
	if err != nil {
		return nil, core.EngineFailure(core.PhaseEngine, 0, err, "looking up "+global)
	}
	return buffer.New(r.engine, h, tag), nil
}

// NewTypedArray allocates a zero-filled typed array of kind in the engine.
// The caller must Release it.
func (r *Runtime) NewTypedArray(kind ElementKind, length int) (*TypedArray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	h, err := r.backend.Create(kind, length)
	if err != nil {
		return nil, core.EngineFailure(core.PhaseEngine, 0, err, "creating typed array")
	}
	return buffer.NewFromKind(r.engine, h, kind), nil
}

// Release drops the engine reference held by ta. Releasing twice is a no-op.
func (r *Runtime) Release(ta *TypedArray) {
	if ta == nil {
		return
	}
	r.engine.Release(ta.Handle())
}

// Snapshots returns the snapshot store, opening it on first use. An empty
// Snapshot.Path selects an in-memory store.
func (r *Runtime) Snapshots() (*SnapshotStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.store != nil {
		return r.store, nil
	}
	var (
		store *snapshot.Store
		err   error
	)
	if r.cfg.Snapshot.Path == "" {
		store, err = snapshot.OpenMemory()
	} else {
		store, err = snapshot.Open(r.cfg.Snapshot.Path)
	}
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// Close shuts down the engine and the snapshot store. Views obtained from
// the Runtime report ErrBufferUnavailable afterwards.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.backend.Close()
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// lockedEngine hands views a core.Engine that takes the Runtime lock for
// each call, including the release of a mapping.
type lockedEngine struct {
	mu *sync.Mutex
	rt *Runtime
}

var _ core.Engine = (*lockedEngine)(nil)

func (e *lockedEngine) Alive(h core.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.rt.closed && e.rt.backend.Alive(h)
}

func (e *lockedEngine) Uint(h core.Handle, property string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt.closed {
		return 0, ErrClosed
	}
	return e.rt.backend.Uint(h, property)
}

func (e *lockedEngine) Length(h core.Handle) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt.closed {
		return 0, ErrClosed
	}
	return e.rt.backend.Length(h)
}

func (e *lockedEngine) Buffer(h core.Handle) (core.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt.closed {
		return 0, ErrClosed
	}
	return e.rt.backend.Buffer(h)
}

func (e *lockedEngine) Map(h core.Handle, offset, length int) ([]byte, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt.closed {
		return nil, nil, ErrClosed
	}
	data, release, err := e.rt.backend.Map(h, offset, length)
	if err != nil {
		return nil, nil, err
	}
	return data, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		release()
	}, nil
}

func (e *lockedEngine) Release(h core.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rt.closed {
		return
	}
	e.rt.backend.Release(h)
}
