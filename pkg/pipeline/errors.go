package pipeline

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-insider/pkg/activity"
)

// Stage names, in execution order.
const (
	StageLoad      = "load"
	StageSelectDay = "select_day"
	StageBuild     = "build_graph"
	StageTrain     = "train"
	StagePredict   = "predict"
	StageExport    = "export"
)

// StageError reports which pipeline stage failed and on which day.
type StageError struct {
	Stage   string       // Stage that failed
	Day     activity.Day // Analysis day, when HasDay is set
	HasDay  bool
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StageError) Error() string {
	switch {
	case e.HasDay && e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Stage, e.Day, e.Context, e.Cause)
	case e.HasDay:
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Day, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *StageError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *StageError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StageErrors.
type ErrorBuilder struct {
	err StageError
}

// NewError creates a new error builder for the given stage.
func NewError(stage string) *ErrorBuilder {
	return &ErrorBuilder{err: StageError{Stage: stage}}
}

// Day sets the analysis day.
func (b *ErrorBuilder) Day(d activity.Day) *ErrorBuilder {
	b.err.Day = d
	b.err.HasDay = true
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StageError.
func (b *ErrorBuilder) Build() *StageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// StageOf returns the failing stage of err, or "" when err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
