package plan

import (
	"fmt"
	"strings"
)

// MissingInputFileError is returned when the plan document does not exist.
type MissingInputFileError struct {
	Path string
}

func (e *MissingInputFileError) Error() string {
	return fmt.Sprintf("no input file found at %s", e.Path)
}

// TemplateParseError reports a parameter block or rendered plan that is not
// valid YAML.
type TemplateParseError struct {
	File string
	Err  error
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *TemplateParseError) Unwrap() error {
	return e.Err
}

// NotADictError reports a parameter block that does not hold a mapping.
type NotADictError struct {
	File string
	Kind string
}

func (e *NotADictError) Error() string {
	return fmt.Sprintf("parameters section of %s is a %s, not a mapping", e.File, e.Kind)
}

// RenderError reports a template that failed to compile or execute. Line is
// zero when the engine did not report one.
type RenderError struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error rendering line %d of %s: %s", e.Line, e.File, e.Message)
	}
	return fmt.Sprintf("error rendering %s: %s", e.File, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// BaseplanCycleError reports a chain of baseplans that refers back to one of
// its own members.
type BaseplanCycleError struct {
	Chain []string
}

func (e *BaseplanCycleError) Error() string {
	return fmt.Sprintf("baseplan cycle: %s", strings.Join(e.Chain, " -> "))
}
