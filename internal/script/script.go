// Package script prepares resources for execution. TypeScript resources
// are transpiled with esbuild; everything else passes through unchanged.
package script

import (
	"path"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/cryguy/typedarray/internal/core"
)

// NeedsTranspile reports whether the resource name has a TypeScript
// extension.
func NeedsTranspile(resourceName string) bool {
	switch strings.ToLower(path.Ext(resourceName)) {
	case ".ts", ".mts", ".cts":
		return true
	}
	return false
}

// Prepare returns source ready for a classic-script Execute. Transpile
// failures are reported as *core.ExecutionError located in the original
// TypeScript.
func Prepare(resourceName, source string) (string, error) {
	if !NeedsTranspile(resourceName) {
		return source, nil
	}

	result := esbuild.Transform(source, esbuild.TransformOptions{
		Loader:     esbuild.LoaderTS,
		Sourcefile: resourceName,
		Target:     esbuild.ES2022,
		Format:     esbuild.FormatDefault,
	})
	if len(result.Errors) > 0 {
		return "", &core.ExecutionError{Diagnostic: diagnosticFor(resourceName, source, result.Errors[0])}
	}
	return string(result.Code), nil
}

func diagnosticFor(resourceName, source string, msg esbuild.Message) core.ExecutionDiagnostic {
	if msg.Location == nil {
		return core.NewExecutionDiagnostic(msg.Text, resourceName, "", 0, 0, 0, 0, 0)
	}
	// esbuild lines are 1-based and columns 0-based, same as the diagnostic.
	loc := core.Locate(source, msg.Location.Line, msg.Location.Column)
	end := loc.EndColumn
	endPos := loc.EndPosition
	if msg.Location.Length > 0 && loc.StartColumn+msg.Location.Length <= len(loc.SourceLine) {
		end = loc.StartColumn + msg.Location.Length
		endPos = loc.StartPosition + msg.Location.Length
	}
	return core.NewExecutionDiagnostic(msg.Text, resourceName, loc.SourceLine,
		msg.Location.Line, loc.StartColumn, end, loc.StartPosition, endPos)
}
