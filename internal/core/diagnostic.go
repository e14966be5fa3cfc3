package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ExecutionDiagnostic is the location and message of a failed script
// execution, as reported by the engine. Lines are 1-based; columns and
// positions are 0-based offsets into SourceLine and the resource.
type ExecutionDiagnostic struct {
	Message       string `json:"message"`
	ResourceName  string `json:"resourceName"`
	SourceLine    string `json:"sourceLine"`
	LineNumber    int    `json:"lineNumber"`
	StartColumn   int    `json:"startColumn"`
	EndColumn     int    `json:"endColumn"`
	StartPosition int    `json:"startPosition"`
	EndPosition   int    `json:"endPosition"`
}

// NewExecutionDiagnostic copies the engine's report as-is.
func NewExecutionDiagnostic(message, resourceName, sourceLine string,
	lineNumber, startColumn, endColumn, startPosition, endPosition int) ExecutionDiagnostic {
	return ExecutionDiagnostic{
		Message:       message,
		ResourceName:  resourceName,
		SourceLine:    sourceLine,
		LineNumber:    lineNumber,
		StartColumn:   startColumn,
		EndColumn:     endColumn,
		StartPosition: startPosition,
		EndPosition:   endPosition,
	}
}

// ExecutionError is returned by Backend.Execute when the script throws.
type ExecutionError struct {
	Diagnostic ExecutionDiagnostic
}

func (e *ExecutionError) Error() string {
	d := e.Diagnostic
	if d.LineNumber <= 0 {
		return fmt.Sprintf("%s: %s", d.ResourceName, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.ResourceName, d.LineNumber, d.StartColumn, d.Message)
}

// Is matches ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindExecution
}

// Location is a source span computed once at the engine boundary.
type Location struct {
	SourceLine    string
	StartColumn   int
	EndColumn     int
	StartPosition int
	EndPosition   int
}

// Locate finds the 1-based line and 0-based column in source and returns
// the line text plus a one-character span. Out-of-range input yields a
// zero span on an empty line.
func Locate(source string, line, column int) Location {
	if line <= 0 {
		return Location{}
	}
	offset := 0
	rest := source
	for i := 1; i < line; i++ {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return Location{}
		}
		offset += nl + 1
		rest = rest[nl+1:]
	}
	text := rest
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	text = strings.TrimSuffix(text, "\r")

	if column < 0 {
		column = 0
	}
	if column > len(text) {
		column = len(text)
	}
	end := column
	if end < len(text) {
		end++
	}
	return Location{
		SourceLine:    text,
		StartColumn:   column,
		EndColumn:     end,
		StartPosition: offset + column,
		EndPosition:   offset + end,
	}
}

// locationRE matches "name:line" or "name:line:col", optionally wrapped in
// a stack frame such as "at fn (name:3:5)".
var locationRE = regexp.MustCompile(`([^\s()]*?):(\d+)(?::(\d+))?\)?\s*$`)

// ParseLocation extracts the resource name, 1-based line and 1-based column
// from an engine location string. Column is 0 when the engine omitted it.
func ParseLocation(loc string) (name string, line, column int, ok bool) {
	m := locationRE.FindStringSubmatch(strings.TrimSpace(loc))
	if m == nil {
		return "", 0, 0, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, 0, false
	}
	if m[3] != "" {
		column, _ = strconv.Atoi(m[3])
	}
	return m[1], line, column, true
}

// FrameLocation returns the location of the first "at ..." frame of a JS
// stack trace that carries one. Native frames are skipped.
func FrameLocation(stack string) (name string, line, column int, ok bool) {
	for _, l := range strings.Split(stack, "\n") {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, "at ") {
			continue
		}
		if name, line, column, ok = ParseLocation(l); ok {
			return name, line, column, true
		}
	}
	return "", 0, 0, false
}
