package typedarray

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func mustRun(t *testing.T, rt *Runtime, source string) {
	t.Helper()
	if err := rt.Run("setup.js", source); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func lookup(t *testing.T, rt *Runtime, global string) *TypedArray {
	t.Helper()
	ta, err := rt.TypedArray(global)
	if err != nil {
		t.Fatalf("TypedArray(%q): %v", global, err)
	}
	t.Cleanup(func() { rt.Release(ta) })
	return ta
}

func TestRuntime_Uint8Scenario(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var bytes = new Uint8Array([0x01, 0x02, 0x03, 0x04]);")
	ta := lookup(t, rt, "bytes")

	if ta.Kind() != Uint8 || ta.ElementWidth() != 1 || !ta.IsValid() {
		t.Fatalf("view = %s width %d valid %v", ta, ta.ElementWidth(), ta.IsValid())
	}
	got, err := ta.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if string(got) != "\x01\x02\x03\x04" {
		t.Errorf("ToBytes() = %v, want [1 2 3 4]", got)
	}

	ok, err := ta.FromBytes([]byte{9, 9, 9, 9})
	if err != nil || !ok {
		t.Fatalf("FromBytes = %v, %v", ok, err)
	}
	got, err = ta.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if string(got) != "\x09\x09\x09\x09" {
		t.Errorf("ToBytes() = %v, want [9 9 9 9]", got)
	}

	// The engine sees the write.
	mustRun(t, rt, "if (bytes[3] !== 9) throw new Error('write not visible: ' + bytes[3]);")
}

func TestRuntime_Properties(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var whole = new Float32Array(8); var part = whole.subarray(2, 5);")
	ta := lookup(t, rt, "part")

	tests := []struct {
		name string
		get  func() (int, error)
		want int
	}{
		{"ByteLength", ta.ByteLength, 12},
		{"ByteOffset", ta.ByteOffset, 8},
		{"Length", ta.Length, 3},
	}
	for _, tt := range tests {
		got, err := tt.get()
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestRuntime_KindMismatchIsSentinel(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var doubles = new Float64Array([1, 2]);")
	ta := lookup(t, rt, "doubles")

	ints, err := ta.ToIntegers()
	if err != nil || ints != nil {
		t.Errorf("ToIntegers() = %v, %v; want nil, nil", ints, err)
	}
	ok, err := ta.FromBytes([]byte{1})
	if err != nil || ok {
		t.Errorf("FromBytes() = %v, %v; want false, nil", ok, err)
	}
}

func TestRuntime_LengthMismatch(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var ints = new Int32Array([7, 8]);")
	ta := lookup(t, rt, "ints")

	_, err := ta.FromIntegers([]int32{1, 2, 3})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	got, err := ta.ToIntegers()
	if err != nil {
		t.Fatalf("ToIntegers: %v", err)
	}
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("ToIntegers() = %v, want [7 8]", got)
	}
}

func TestRuntime_NonTypedArrayIsInvalid(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var notArray = [1, 2, 3];")
	ta := lookup(t, rt, "notArray")
	if ta.IsValid() || ta.Kind() != Invalid || ta.ElementWidth() != 0 {
		t.Errorf("view = %s, want an invalid view", ta)
	}
	got, err := ta.ToBytes()
	if err != nil || got != nil {
		t.Errorf("ToBytes() = %v, %v; want nil, nil", got, err)
	}
}

func TestRuntime_UndeclaredGlobal(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.TypedArray("nowhere")
	if !errors.Is(err, ErrEngineCommunication) {
		t.Errorf("err = %v, want ErrEngineCommunication", err)
	}
}

func TestRuntime_NewTypedArray(t *testing.T) {
	rt := newTestRuntime(t)
	ta, err := rt.NewTypedArray(BigInt64, 3)
	if err != nil {
		t.Fatalf("NewTypedArray: %v", err)
	}
	ok, err := ta.FromLongs([]int64{-1, 0, 1 << 40})
	if err != nil || !ok {
		t.Fatalf("FromLongs = %v, %v", ok, err)
	}
	got, err := ta.ToLongs()
	if err != nil {
		t.Fatalf("ToLongs: %v", err)
	}
	if len(got) != 3 || got[0] != -1 || got[2] != 1<<40 {
		t.Errorf("ToLongs() = %v", got)
	}

	rt.Release(ta)
	if _, err := ta.ToLongs(); !errors.Is(err, ErrBufferUnavailable) {
		t.Errorf("after Release err = %v, want ErrBufferUnavailable", err)
	}
	rt.Release(ta)
}

func TestRuntime_ScopedBufferAccess(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var shorts = new Int16Array([1, 2, 3]);")
	ta := lookup(t, rt, "shorts")

	buf, err := ta.Buffer()
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	err = buf.WithShorts(func(v []int16) error {
		for i := range v {
			v[i] *= 10
		}
		return nil
	})
	buf.Close()
	if err != nil {
		t.Fatalf("WithShorts: %v", err)
	}
	mustRun(t, rt, "if (shorts.join(',') !== '10,20,30') throw new Error(shorts.join(','));")
}

func TestRuntime_ExecutionDiagnostic(t *testing.T) {
	rt := newTestRuntime(t)
	err := rt.Run("script.js", "var ok = 1;\nvar also = 2;\nmissing + 1;\n")

	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecutionError", err)
	}
	if !errors.Is(err, ErrExecution) {
		t.Error("errors.Is(err, ErrExecution) = false")
	}
	d := ee.Diagnostic
	if d.ResourceName != "script.js" || d.LineNumber != 3 {
		t.Errorf("diagnostic at %s:%d, want script.js:3", d.ResourceName, d.LineNumber)
	}
	if !strings.Contains(d.Message, "missing") {
		t.Errorf("Message = %q, want it to name the missing binding", d.Message)
	}
	if d.SourceLine != "missing + 1;" {
		t.Errorf("SourceLine = %q", d.SourceLine)
	}
}

func TestRuntime_TypeScriptResource(t *testing.T) {
	rt := newTestRuntime(t)
	src := "var counts: Uint32Array = new Uint32Array([3, 4]);\nfunction total(a: Uint32Array): number { return a[0] + a[1]; }\nvar sum: number = total(counts);\n"
	mustRunNamed(t, rt, "counts.ts", src)

	ta := lookup(t, rt, "counts")
	got, err := ta.ToIntegers()
	if err != nil {
		t.Fatalf("ToIntegers: %v", err)
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("ToIntegers() = %v, want [3 4]", got)
	}
	mustRun(t, rt, "if (sum !== 7) throw new Error('sum = ' + sum);")
}

func TestRuntime_TypeScriptSyntaxError(t *testing.T) {
	rt := newTestRuntime(t)
	err := rt.Run("bad.ts", "let a: number = 1;\nconst = 2;\n")
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExecutionError", err)
	}
	if ee.Diagnostic.ResourceName != "bad.ts" || ee.Diagnostic.LineNumber != 2 {
		t.Errorf("diagnostic = %+v", ee.Diagnostic)
	}
}

func TestRuntime_Snapshots(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var state = new Float64Array([0.5, 1.5, 2.5]);")
	ta := lookup(t, rt, "state")

	store, err := rt.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if err := store.Save("state", ta); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mustRun(t, rt, "state.fill(0);")
	if err := store.Restore("state", ta); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := ta.ToDoubles()
	if err != nil {
		t.Fatalf("ToDoubles: %v", err)
	}
	if len(got) != 3 || got[0] != 0.5 || got[2] != 2.5 {
		t.Errorf("restored = %v, want [0.5 1.5 2.5]", got)
	}

	again, err := rt.Snapshots()
	if err != nil || again != store {
		t.Errorf("second Snapshots() = %p, %v; want the same store", again, err)
	}
}

func TestRuntime_ConcurrentReads(t *testing.T) {
	rt := newTestRuntime(t)
	mustRun(t, rt, "var shared = new Int32Array([1, 2, 3, 4]);")
	ta := lookup(t, rt, "shared")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ta.ToIntegers()
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 4 || got[3] != 4 {
				errs <- errors.New("unexpected contents")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRuntime_Closed(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustRun(t, rt, "var bytes = new Uint8Array(2);")
	ta, err := rt.TypedArray("bytes")
	if err != nil {
		t.Fatalf("TypedArray: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := rt.Run("x.js", "1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close err = %v, want ErrClosed", err)
	}
	if _, err := ta.ToBytes(); !errors.Is(err, ErrBufferUnavailable) {
		t.Errorf("ToBytes after Close err = %v, want ErrBufferUnavailable", err)
	}
	rt.Release(ta)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MemoryLimitMB = -1
	if _, err := New(cfg); err == nil {
		t.Error("New with negative memory limit: expected error")
	}
}

func mustRunNamed(t *testing.T, rt *Runtime, name, source string) {
	t.Helper()
	if err := rt.Run(name, source); err != nil {
		t.Fatalf("Run(%q): %v", name, err)
	}
}
