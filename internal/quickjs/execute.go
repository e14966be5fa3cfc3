//go:build !v8

package quickjs

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cryguy/typedarray/internal/core"
)

// sourceGlobal stages the script text so it never has to be quoted into
// generated JavaScript.
const sourceGlobal = "__ta_src"

// executeJS runs the staged source as global code and reports a thrown
// value as JSON. Declarations made with var or function become globals;
// let and const stay local to the resource.
const executeJS = `(function() {
	var src = globalThis.__ta_src;
	delete globalThis.__ta_src;
	try {
		(0, eval)(src);
		return '';
	} catch (e) {
		var msg;
		if (e instanceof Error) {
			msg = e.name + ': ' + e.message;
		} else {
			try { msg = 'Uncaught ' + String(e); } catch (_) { msg = 'Uncaught exception'; }
		}
		return JSON.stringify({ message: msg, stack: (e && e.stack) ? String(e.stack) : '' });
	}
})()`

type thrownValue struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

// Execute runs source as a classic script. A thrown exception is returned
// as *core.ExecutionError.
func (b *Backend) Execute(resourceName, source string) error {
	if err := b.setGlobal(sourceGlobal, source); err != nil {
		return fmt.Errorf("staging %s: %w", resourceName, err)
	}
	out, err := b.EvalString(executeJS)
	if err != nil {
		return fmt.Errorf("executing %s: %w", resourceName, err)
	}
	if out == "" {
		return nil
	}

	var thrown thrownValue
	if err := json.Unmarshal([]byte(out), &thrown); err != nil {
		return fmt.Errorf("decoding exception from %s: %w", resourceName, err)
	}
	d := diagnosticFor(resourceName, source, thrown)
	core.Logger().Debug("quickjs: script threw",
		zap.String("resource", resourceName),
		zap.Int("line", d.LineNumber),
		zap.String("message", d.Message))
	return &core.ExecutionError{Diagnostic: d}
}

// diagnosticFor locates the innermost frame of the stack in source. QuickJS
// reports 1-based columns and names eval'd code "<input>". A thrown
// primitive carries no stack, so its diagnostic has line 0 and an empty
// SourceLine.
func diagnosticFor(resourceName, source string, thrown thrownValue) core.ExecutionDiagnostic {
	message := strings.TrimSpace(thrown.Message)
	_, line, column, ok := core.FrameLocation(thrown.Stack)
	if !ok {
		return core.NewExecutionDiagnostic(message, resourceName, "", 0, 0, 0, 0, 0)
	}
	if column > 0 {
		column--
	}
	loc := core.Locate(source, line, column)
	return core.NewExecutionDiagnostic(message, resourceName, loc.SourceLine,
		line, loc.StartColumn, loc.EndColumn, loc.StartPosition, loc.EndPosition)
}
