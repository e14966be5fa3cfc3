//go:build v8

package v8engine

import (
	"errors"
	"fmt"
	"strings"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/cryguy/typedarray/internal/core"
)

// Execute runs source as a classic script under resourceName. Top-level
// bindings, including let and const, stay visible to Lookup.
func (b *Backend) Execute(resourceName, source string) error {
	if b.closed {
		return fmt.Errorf("V8 isolate is disposed")
	}
	_, err := b.ctx.RunScript(source, resourceName)
	if err == nil {
		return nil
	}
	var jsErr *v8.JSError
	if !errors.As(err, &jsErr) {
		return fmt.Errorf("executing %s: %w", resourceName, err)
	}
	d := diagnosticFor(resourceName, source, jsErr)
	core.Logger().Debug("v8engine: script threw",
		zap.String("resource", resourceName),
		zap.Int("line", d.LineNumber),
		zap.String("message", d.Message))
	return &core.ExecutionError{Diagnostic: d}
}

// diagnosticFor locates a V8 error. JSError.Location carries the message
// position with a 0-based column; stack frames use 1-based columns.
func diagnosticFor(resourceName, source string, jsErr *v8.JSError) core.ExecutionDiagnostic {
	message := strings.TrimSpace(jsErr.Message)
	_, line, column, ok := core.ParseLocation(jsErr.Location)
	if !ok {
		_, line, column, ok = core.FrameLocation(jsErr.StackTrace)
		if ok && column > 0 {
			column--
		}
	}
	if !ok {
		return core.NewExecutionDiagnostic(message, resourceName, "", 0, 0, 0, 0, 0)
	}
	loc := core.Locate(source, line, column)
	return core.NewExecutionDiagnostic(message, resourceName, loc.SourceLine,
		line, loc.StartColumn, loc.EndColumn, loc.StartPosition, loc.EndPosition)
}
